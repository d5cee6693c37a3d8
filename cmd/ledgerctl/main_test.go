package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct {
	t    *testing.T
	dir  string
	data string
}

func newSession(t *testing.T) *session {
	dir := t.TempDir()
	return &session{t: t, dir: dir, data: filepath.Join(dir, "records.json")}
}

// run executes one ledgerctl invocation against the session's ledger file.
func (s *session) run(args ...string) (int, string, string) {
	s.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-data", s.data}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (s *session) mustRun(args ...string) string {
	s.t.Helper()
	code, out, errOut := s.run(args...)
	require.Equal(s.t, 0, code, "stderr: %s", errOut)
	return out
}

func TestAddAndList(t *testing.T) {
	s := newSession(t)

	out := s.mustRun("add", "-date", "2026-02-06", "-note", "张三", "2", "100", "1", "80")
	assert.Equal(t, "added #1: 2026-02-06 3 x ¥93.33 = ¥280.00\n", out)
	s.mustRun("add", "-date", "2026-02-07", "1", "50")

	out = s.mustRun("list", "-sort", "date_desc")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2 "), lines[1])
	assert.Contains(t, lines[2], "张三")

	_, err := os.Stat(s.data)
	assert.NoError(t, err, "ledger file written")
}

func TestReturnAndShow(t *testing.T) {
	s := newSession(t)
	s.mustRun("add", "-date", "2026-02-06", "3", "100")

	out := s.mustRun("return", "-date", "2026-02-06", "1", "2", "100")
	assert.Contains(t, out, "added return #2 against sale #1")
	assert.Contains(t, out, "still returnable: 1")

	out = s.mustRun("show", "1")
	assert.Contains(t, out, "linked returns:")
	assert.Contains(t, out, "still returnable: 1")

	code, _, errOut := s.run("return", "1", "2", "100")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "exceeds")
}

func TestRangeAndMonth(t *testing.T) {
	s := newSession(t)
	s.mustRun("add", "-date", "2026-02-01", "2", "100")
	s.mustRun("add", "-date", "2026-02-03", "1", "60")
	s.mustRun("add", "-date", "2026-02-03", "-return", "1", "100")

	out := s.mustRun("range", "2026-02-01", "2026-02-03")
	assert.Contains(t, out, "2026-02-01 ~ 2026-02-03: 3 transactions")
	assert.Contains(t, out, "net      2 sets  ¥160.00")

	out = s.mustRun("month", "2026-02")
	assert.Contains(t, out, "2026-02: 3 transactions")
	assert.Contains(t, out, "2026-02-03")

	code, _, _ := s.run("month", "2026-2")
	assert.Equal(t, 1, code)
}

func TestEditAndDelete(t *testing.T) {
	s := newSession(t)
	s.mustRun("add", "-date", "2026-02-06", "1", "10")
	s.mustRun("add", "-date", "2026-02-06", "1", "20")

	out := s.mustRun("edit", "2", "-note", "改价", "2", "25")
	assert.Equal(t, "updated #2: 2, ¥50.00\n", out)

	s.mustRun("delete", "1")
	out = s.mustRun("show", "1")
	assert.Contains(t, out, "改价", "former #2 is now #1")

	code, _, errOut := s.run("delete", "5")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not found")
}

func TestCheck_ReportsShiftedLink(t *testing.T) {
	s := newSession(t)
	s.mustRun("add", "-date", "2026-02-06", "1", "10")
	s.mustRun("add", "-date", "2026-02-06", "2", "20")
	s.mustRun("return", "-date", "2026-02-06", "2", "1", "20")

	out := s.mustRun("check")
	assert.Contains(t, out, "all return links intact")

	s.mustRun("delete", "1")
	code, out, _ := s.run("check")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "return #2 -> #2: shifted (sale is now #1)")
}

func TestImportWritesFailureLog(t *testing.T) {
	s := newSession(t)
	csvPath := filepath.Join(s.dir, "old.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("日期,数量,单价\n2026-02-06,2,100\nsomeday,1,50\n"), 0o644))

	out := s.mustRun("import", csvPath)

	assert.Contains(t, out, "imported 1 rows (utf-8), 1 failed")
	assert.Contains(t, out, "row 3:")
	log, err := os.ReadFile(filepath.Join(s.dir, "import_failed.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "Row 3")
}

func TestExportAndReceipt(t *testing.T) {
	s := newSession(t)
	s.mustRun("add", "-date", "2026-02-06", "2", "100")

	csvPath := filepath.Join(s.dir, "out.csv")
	out := s.mustRun("export", "-o", csvPath)
	assert.Equal(t, "exported to "+csvPath+"\n", out)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ufeffID,日期"))

	out = s.mustRun("receipt", "1")
	assert.Contains(t, out, "家纺四件套")
	assert.Contains(t, out, "¥200")

	code, _, _ := s.run("export", "-format", "doc")
	assert.Equal(t, 2, code)
}

func TestUsageErrors(t *testing.T) {
	s := newSession(t)

	code, _, errOut := s.run()
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "usage: ledgerctl")

	code, _, errOut = s.run("frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)

	code, _, _ = s.run("add", "2")
	assert.Equal(t, 2, code, "odd number of item arguments")

	code, _, _ = s.run("show", "abc")
	assert.Equal(t, 2, code)
}
