package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/plagiarism"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *plagiarism.RunResult {
	report := plagiarism.RankedReport{
		{Pair: plagiarism.Pair{A: "b.py", B: "a.py"}, Value: 1.0},
		{Pair: plagiarism.Pair{A: "a.py", B: "c.py"}, Value: 0.5},
	}
	return &plagiarism.RunResult{
		Documents: 3,
		Pairs:     3,
		Compared:  3,
		Workers:   2,
		Threshold: 0.5,
		Report:    report,
		Failures: []*plagiarism.ComparisonFailedError{
			{Pair: plagiarism.Pair{A: "b.py", B: "c.py"}, Cause: errors.New("unreadable")},
		},
		Summaries: plagiarism.Summarize(report),
		Risk:      "High",
		Duration:  15 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	out := Table(sampleResult())

	assert.Contains(t, out, "FILE A")
	assert.Contains(t, out, "1.000")
	assert.Contains(t, out, "near copy")
	assert.Contains(t, out, "1 comparison(s) failed")
	assert.Contains(t, out, "b.py <> c.py: unreadable")
	assert.Contains(t, out, "corpus risk: High")
}

func TestTable_EmptyReport(t *testing.T) {
	out := Table(&plagiarism.RunResult{Threshold: 0.9, Risk: "Safe"})
	assert.Contains(t, out, "No pairs at or above 0.900")
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(3), decoded["documents"])

	entries := decoded["report"].([]any)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]any)
	assert.Equal(t, 1.0, first["score"])

	failures := decoded["failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, "unreadable", failures[0].(map[string]any)["cause"])
}

func TestComparisonLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparisons.log")
	clog, err := OpenComparisonLog(path)
	require.NoError(t, err)

	clog.Record(plagiarism.Score{Pair: plagiarism.Pair{A: "a", B: "b"}, Value: 0.25})
	clog.RecordFailure(&plagiarism.ComparisonFailedError{Pair: plagiarism.Pair{A: "a", B: "c"}, Cause: errors.New("bad")})
	require.NoError(t, clog.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0]["a"])
	assert.Equal(t, 0.25, lines[0]["score"])
	assert.Equal(t, "bad", lines[1]["error"])
}
