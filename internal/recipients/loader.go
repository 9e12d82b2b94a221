// Package recipients parses the ';'-delimited, headerless recipient file.
package recipients

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"bulk-sender/internal/domain"
	"bulk-sender/internal/template"
)

// Delimiter separates columns in the recipient file.
const Delimiter = ';'

// Result holds the loaded records and any non-fatal warnings.
type Result struct {
	Records  []domain.RecipientRecord
	Warnings []string
}

// Load reads path and binds each row positionally to expected, which must
// start with numero. Rows whose expected fields are all blank are dropped.
func Load(path string, expected []string) (*Result, error) {
	format := template.ExpectedFormat(dynamicOf(expected))

	rows, err := readRows(path)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Kind: domain.ErrUnreadableFile, Err: err}
	}

	res := &Result{}
	if len(rows) > 0 {
		if w := columnWarning(rows[0].fields, len(expected)); w != "" {
			res.Warnings = append(res.Warnings, w)
		}
	}

	hasNumero := false
	for _, row := range rows {
		fields := make(map[string]string, len(expected))
		blank := true
		for i, name := range expected {
			if i >= len(row.fields) {
				break
			}
			fields[name] = row.fields[i]
			if strings.TrimSpace(row.fields[i]) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}

		rec := domain.NewRecipientRecord(row.line, fields)
		if rec.Numero() != "" {
			hasNumero = true
		}
		res.Records = append(res.Records, rec)
	}

	if len(res.Records) == 0 || !hasNumero {
		return nil, &domain.LoadError{Path: path, Kind: domain.ErrEmptyOrNoIdentifiers, Expected: format}
	}

	return res, nil
}

// Probe reads up to limit rows to check the file is readable as ';'-separated
// UTF-8. It returns the number of rows read.
func Probe(path string, limit int) (int, error) {
	rows, err := readRows(path)
	if err != nil {
		return 0, &domain.LoadError{Path: path, Kind: domain.ErrUnreadableFile, Err: err}
	}
	if len(rows) > limit {
		return limit, nil
	}
	return len(rows), nil
}

type row struct {
	line   int
	fields []string
}

func readRows(path string) ([]row, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		return nil, errors.New("file is not valid UTF-8")
	}

	// Spreadsheet exports often prepend a BOM.
	data, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []row
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, row{line: line, fields: fields})
	}
	return rows, nil
}

func columnWarning(fields []string, expected int) string {
	actual := len(fields)
	// A trailing delimiter yields one empty extra field.
	if actual > 1 && fields[actual-1] == "" {
		actual--
	}

	switch {
	case actual > expected:
		return fmt.Sprintf("Advertencia: Archivo con %d columnas, esperadas %d. Se ignorarán extras.", actual, expected)
	case actual < expected:
		return fmt.Sprintf("Advertencia: Archivo con %d columnas, esperadas %d. Faltarán datos.", actual, expected)
	default:
		return ""
	}
}

func dynamicOf(expected []string) []string {
	if len(expected) > 0 && expected[0] == domain.FieldNumero {
		return expected[1:]
	}
	return expected
}
