// Package textfile reads and merges EZIE-Mag hourly summary files on disk.
package textfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/ezie-mag-etl/internal/domain"
)

// ReadFile parses one hourly file.
func ReadFile(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return domain.ParseHourly(f, path)
}

// WriteFile writes records to path in the hourly file format.
func WriteFile(path string, records []domain.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := domain.WriteHourly(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Merger combines every hourly file in a directory into one table.
// It implements pipeline.Merger.
type Merger struct {
	onError domain.ParseErrorPolicy
	logger  *slog.Logger
}

// NewMerger creates a Merger with the given parse error policy.
func NewMerger(onError domain.ParseErrorPolicy, logger *slog.Logger) *Merger {
	if onError == "" {
		onError = domain.OnParseErrorFail
	}
	return &Merger{onError: onError, logger: logger}
}

// Merge parses the *smr.60s.txt files directly in dir in lexicographic path
// order and concatenates them. An empty directory yields an empty table.
//
// Under OnParseErrorFail every file is still parsed so that the returned
// *domain.MergeError names all offending files.
func (m *Merger) Merge(ctx context.Context, dir string) (domain.MergeResult, error) {
	files, err := FindHourly(dir)
	if err != nil {
		return domain.MergeResult{}, err
	}
	m.logger.Info("merging hourly files", "dir", dir, "files", len(files))

	res := domain.MergeResult{Files: files}
	tables := make([]*domain.Table, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return domain.MergeResult{}, err
		}
		t, err := ReadFile(path)
		if err != nil {
			m.logger.Warn("hourly file rejected", "file", path, "error", err)
			res.Failed = append(res.Failed, domain.FileFailure{Path: path, Err: err})
			continue
		}
		tables = append(tables, t)
	}

	if len(res.Failed) > 0 && m.onError == domain.OnParseErrorFail {
		return domain.MergeResult{Files: files, Failed: res.Failed}, &domain.MergeError{Failures: res.Failed}
	}

	res.Table = domain.Concat(tables...)
	return res, nil
}

// FindHourly lists the regular hourly files directly in dir, sorted by path.
func FindHourly(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("hourly dir: %w", err)
	}
	var out []string
	for _, ent := range entries {
		if !strings.HasSuffix(ent.Name(), domain.HourlySuffix) {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}
