package receipt

import (
	"strings"

	"golang.org/x/text/width"
)

// runeWidth is the number of printer columns r occupies. Wide, fullwidth
// and ambiguous characters take two columns, since receipt printers run
// in GB mode.
func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth, width.EastAsianAmbiguous:
		return 2
	default:
		return 1
	}
}

// TextWidth is the display width of s in printer columns.
func TextWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}

func center(s string, w int) string {
	pad := (w - TextWidth(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}

// justify puts left and right on one line, at least one space apart.
func justify(left, right string, w int) string {
	spaces := w - TextWidth(left) - TextWidth(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

// wrap breaks s into lines no wider than w columns.
func wrap(s string, w int) []string {
	var (
		lines []string
		cur   strings.Builder
		curW  int
	)
	for _, r := range s {
		rw := runeWidth(r)
		if curW+rw > w && cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			curW = 0
		}
		cur.WriteRune(r)
		curW += rw
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	if len(lines) == 0 {
		return []string{s}
	}
	return lines
}
