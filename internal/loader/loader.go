package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unicode/utf8"

	"github.com/RishiKendai/cheatcheck/internal/corpus"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/gogs/chardet"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"
)

// Discover expands file patterns (with ** support) into absolute, de-duplicated
// file paths in pattern order. Invalid patterns and patterns matching nothing
// are logged and skipped.
func Discover(patterns []string) []string {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("Invalid pattern, ignoring")
			continue
		}
		if len(matches) == 0 {
			log.Warn().Str("pattern", pattern).Msg("Pattern didn't match any files")
			continue
		}

		for _, match := range matches {
			abs, err := filepath.Abs(match)
			if err != nil {
				log.Warn().Err(err).Str("path", match).Msg("Cannot resolve path, ignoring")
				continue
			}
			if resolved, err := filepath.EvalSymlinks(abs); err == nil {
				abs = resolved
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			paths = append(paths, abs)
		}
	}

	return paths
}

// Decode converts file bytes to UTF-8, detecting the charset when the input
// is not already valid UTF-8.
func Decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err == nil {
		if enc, encErr := htmlindex.Get(result.Charset); encErr == nil {
			if decoded, decErr := enc.NewDecoder().Bytes(data); decErr == nil {
				log.Debug().
					Str("charset", result.Charset).
					Int("confidence", result.Confidence).
					Msg("Decoded non-UTF-8 input")
				return string(decoded)
			}
		}
	}

	log.Debug().Msg("Unknown charset, replacing invalid sequences")
	return toValidUTF8(data)
}

func toValidUTF8(data []byte) string {
	out := make([]rune, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		out = append(out, r) // RuneError for invalid bytes
		data = data[size:]
	}
	return string(out)
}

// ReadFile reads and decodes a single file.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(data), nil
}

// ReadAll reads paths concurrently and returns entries in the same order.
// parallelism <= 0 means one reader per CPU.
func ReadAll(ctx context.Context, paths []string, parallelism int) ([]corpus.Entry, error) {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	entries := make([]corpus.Entry, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			text, err := ReadFile(path)
			if err != nil {
				return err
			}
			entries[i] = corpus.Entry{ID: path, Text: text}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
