package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"quotesheet/internal/normalize"
)

// Store is a workbook directory holding one CSV file per named table. It
// replaces the shared writer/workbook globals of earlier tooling with an
// explicit run-scoped object passed through the pipeline.
type Store struct {
	Dir string
}

// NewStore opens a workbook directory.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) tablePath(table string) string {
	return filepath.Join(s.Dir, table+".csv")
}

// ReadSymbols loads the designated column from the named table as an ordered
// symbol sequence. Empty and whitespace-only cells become "" placeholders;
// everything else is trimmed with case preserved. Order and count are kept
// exactly: no dedup, no filtering, no sorting. Several column names may be
// given; the first one present in the header is used.
func (s *Store) ReadSymbols(table string, columns ...string) ([]string, error) {
	path := s.tablePath(table)
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Table: table, Cause: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &ConfigurationError{Table: table, Cause: fmt.Errorf("empty table: %w", err)}
	}

	col := -1
	for _, name := range columns {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, &ConfigurationError{Table: table, Column: strings.Join(columns, "|")}
	}

	var symbols []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ConfigurationError{Table: table, Cause: err}
		}
		if col >= len(record) {
			symbols = append(symbols, "")
			continue
		}
		symbols = append(symbols, strings.TrimSpace(record[col]))
	}
	return symbols, nil
}

// WriteRows persists the rows to the named table, preserving order and the
// fixed column schema. The write goes through a temp file and rename so a
// failed run never leaves a truncated table behind.
func (s *Store) WriteRows(table string, rows []normalize.Row) error {
	path := s.tablePath(table)

	tmp, err := os.CreateTemp(s.Dir, table+"-*.csv")
	if err != nil {
		return &WriteError{Table: table, Path: path, Cause: err}
	}
	tmpPath := tmp.Name()

	if err := gocsv.MarshalFile(&rows, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &WriteError{Table: table, Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Table: table, Path: path, Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Table: table, Path: path, Cause: err}
	}
	return nil
}
