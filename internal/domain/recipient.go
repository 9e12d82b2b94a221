package domain

import "strings"

// FieldNumero is the reserved column holding the destination identifier.
const FieldNumero = "numero"

// RecipientRecord is one row of the recipient file bound to column names.
// Columns past the end of a short row are absent, not blank.
type RecipientRecord struct {
	Line   int
	fields map[string]string
}

// NewRecipientRecord copies fields into an immutable record.
func NewRecipientRecord(line int, fields map[string]string) RecipientRecord {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return RecipientRecord{Line: line, fields: copied}
}

// Lookup returns the raw value of a column and whether the row supplied it.
func (r RecipientRecord) Lookup(name string) (string, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Value returns the raw value of a column, or "" when absent.
func (r RecipientRecord) Value(name string) string {
	return r.fields[name]
}

// Numero returns the trimmed destination identifier.
func (r RecipientRecord) Numero() string {
	return strings.TrimSpace(r.fields[FieldNumero])
}

// Len returns the number of columns the row supplied.
func (r RecipientRecord) Len() int {
	return len(r.fields)
}

// DisplayName is the label used in operator logs and the failure log:
// the numero, followed by the nombre column when present.
func (r RecipientRecord) DisplayName() string {
	numero := r.Numero()
	for k, v := range r.fields {
		if strings.EqualFold(k, "nombre") {
			if name := strings.TrimSpace(v); name != "" {
				return numero + " (" + name + ")"
			}
		}
	}
	return numero
}
