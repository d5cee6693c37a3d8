package export

import (
	"encoding/csv"
	"io"

	"github.com/warp/textile-ledger/ledger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes txs in store order with a UTF-8 BOM.
func WriteCSV(w io.Writer, txs []ledger.Transaction) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, t := range txs {
		if err := cw.Write(row(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
