// Package manifest reads the CSV list of documents to translate.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oukeidos/tdocs/internal/apperrors"
	"github.com/oukeidos/tdocs/internal/language"
)

// Column names of the manifest header.
const (
	ColumnPath        = "relative_path"
	ColumnSourceLang  = "src_lang"
	ColumnTargetLangs = "target_langs"
)

// Row is one data line of the manifest.
type Row struct {
	// Line is the 1-based line number in the manifest file.
	Line        int
	Path        string
	SourceLang  string
	TargetLangs []string
}

// Validate reports why a row cannot be processed.
func (r Row) Validate() error {
	if r.Path == "" || r.SourceLang == "" {
		return errors.New("missing relative_path or src_lang")
	}
	if len(r.TargetLangs) == 0 {
		return errors.New("no target languages")
	}
	return nil
}

// Load reads the manifest at path. found is false when the file does not
// exist, which callers treat as nothing to do.
func Load(path string) (rows []Row, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, apperrors.Config(fmt.Sprintf("failed to open manifest %s", path), err)
	}
	defer f.Close()

	rows, err = Parse(f)
	if err != nil {
		return nil, true, apperrors.Config(fmt.Sprintf("invalid manifest %s: %v", path, err), err)
	}
	return rows, true, nil
}

// Parse reads manifest CSV. The first record is the header; columns are
// matched by name and may appear in any order. Lines starting with '#' and
// blank lines are ignored, including ones indented with whitespace. Rows are returned even when incomplete so the
// caller can report them.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := readRecord(cr)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, required := range []string{ColumnPath, ColumnSourceLang, ColumnTargetLangs} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("header is missing column %q", required)
		}
	}

	var rows []Row
	for {
		record, err := readRecord(cr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		cell := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		rows = append(rows, Row{
			Line:        line,
			Path:        cell(ColumnPath),
			SourceLang:  cell(ColumnSourceLang),
			TargetLangs: language.SplitList(cell(ColumnTargetLangs)),
		})
	}
	return rows, nil
}

// readRecord returns the next record that is neither a comment nor blank.
// The reader only recognizes '#' in the first column, so indented comments
// are filtered here.
func readRecord(cr *csv.Reader) ([]string, error) {
	for {
		record, err := cr.Read()
		if err != nil {
			return nil, err
		}
		first := strings.TrimSpace(record[0])
		if strings.HasPrefix(first, "#") || (len(record) == 1 && first == "") {
			continue
		}
		return record, nil
	}
}
