package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RishiKendai/cheatcheck/internal/plagiarism"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CHEATCHECK_THRESHOLD", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func decodeResult(t *testing.T, out string) plagiarism.RunResult {
	t.Helper()
	var result struct {
		Documents int `json:"documents"`
		Report    []struct {
			Pair struct {
				A string `json:"a"`
				B string `json:"b"`
			} `json:"pair"`
			Score float64 `json:"score"`
		} `json:"report"`
		Skipped []string `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	decoded := plagiarism.RunResult{Documents: result.Documents, Skipped: result.Skipped}
	for _, entry := range result.Report {
		decoded.Report = append(decoded.Report, plagiarism.Score{
			Pair:  plagiarism.Pair{A: entry.Pair.A, B: entry.Pair.B},
			Value: entry.Score,
		})
	}
	return decoded
}

func TestCLI_RequiresSensitivity(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "x", "b.txt": "y"})
	_, err := execute(t, filepath.Join(dir, "*.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--sensitivity is required")
}

func TestCLI_ReportsIdenticalFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"A.txt": "hello world",
		"B.txt": "hello world",
		"C.txt": "goodbye",
	})

	out, err := execute(t, "-s", "0.9", "--format", "json", "-j", "2", filepath.Join(dir, "*.txt"))
	require.NoError(t, err)

	result := decodeResult(t, out)
	assert.Equal(t, 3, result.Documents)
	require.Len(t, result.Report, 1)
	assert.Equal(t, filepath.Join(dir, "A.txt"), result.Report[0].Pair.A)
	assert.Equal(t, filepath.Join(dir, "B.txt"), result.Report[0].Pair.B)
	assert.Equal(t, 1.0, result.Report[0].Value)
}

func TestCLI_TableOutput(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"one.py": "print('Hello')\r\n",
		"two.py": "PRINT('hello')\n",
	})

	out, err := execute(t, "--sensitivity", "1", "--ignore-case", filepath.Join(dir, "*.py"))
	require.NoError(t, err)
	assert.Contains(t, out, "one.py")
	assert.Contains(t, out, "two.py")
	assert.Contains(t, out, "1.000")
}

func TestCLI_SingleFileIsNotAnError(t *testing.T) {
	dir := writeFiles(t, map[string]string{"solo.txt": "alone"})

	out, err := execute(t, "-s", "0.5", "--format", "json", filepath.Join(dir, "*.txt"))
	require.NoError(t, err)
	result := decodeResult(t, out)
	assert.Empty(t, result.Report)
}

func TestCLI_TemplateAndComparisonLog(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"template.c": "int main() { return 0; }",
		"blank1.c":   "int main() { return 0; }",
		"blank2.c":   "int main() { return 0; }",
		"real1.c":    "int main() { puts(\"a\"); return 0; }",
		"real2.c":    "int main() { puts(\"b\"); return 0; }",
	})
	logPath := filepath.Join(t.TempDir(), "comparisons.jsonl")

	out, err := execute(t,
		"-s", "0.5", "--format", "json",
		"--template", filepath.Join(dir, "template.c"),
		"--log", logPath,
		filepath.Join(dir, "blank*.c"), filepath.Join(dir, "real*.c"),
	)
	require.NoError(t, err)

	result := decodeResult(t, out)
	assert.Equal(t, 2, result.Documents)
	assert.Len(t, result.Skipped, 2)
	require.Len(t, result.Report, 1)

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(string(logged)), "\n")+1)
}

func TestCLI_RejectsUnknownFormat(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "x", "b.txt": "y"})
	_, err := execute(t, "-s", "0.5", "--format", "xml", filepath.Join(dir, "*.txt"))
	assert.ErrorContains(t, err, "unknown output format")
}

func TestCLI_HelpExplainsTooFewFiles(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Fewer than two files is not an error")
}
