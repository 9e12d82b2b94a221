// Package template extracts, validates and renders {name} message placeholders.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"bulk-sender/internal/domain"
)

// tokenPattern matches escaped braces first so "{{x}}" is not a placeholder.
var tokenPattern = regexp.MustCompile(`\{\{|\}\}|\{([\p{L}\p{N}_]+)\}`)

// Placeholders returns every placeholder name in order of appearance,
// duplicates included.
func Placeholders(tmpl string) []string {
	var names []string
	for _, m := range tokenPattern.FindAllStringSubmatch(tmpl, -1) {
		if m[1] != "" {
			names = append(names, m[1])
		}
	}
	return names
}

// Analyze returns the dynamic variables of a template: the distinct
// placeholder names that are neither numero nor static, sorted.
func Analyze(tmpl string, staticNames []string) []string {
	static := make(map[string]struct{}, len(staticNames))
	for _, n := range staticNames {
		static[n] = struct{}{}
	}

	seen := make(map[string]struct{})
	dynamic := []string{}
	for _, name := range Placeholders(tmpl) {
		if name == domain.FieldNumero {
			continue
		}
		if _, ok := static[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		dynamic = append(dynamic, name)
	}

	sort.Strings(dynamic)
	return dynamic
}

// ExpectedFormat returns the input file layout for the given dynamic columns,
// e.g. "numero;nombre;".
func ExpectedFormat(dynamic []string) string {
	cols := append([]string{domain.FieldNumero}, dynamic...)
	return strings.Join(cols, ";") + ";"
}

// KnownNames returns reserved, static and dynamic names as one set.
func KnownNames(staticNames, dynamic []string) []string {
	known := make([]string, 0, len(staticNames)+len(dynamic)+1)
	known = append(known, domain.FieldNumero)
	known = append(known, staticNames...)
	return append(known, dynamic...)
}

// Validate checks that every placeholder resolves against known and that
// the template renders with synthetic values.
func Validate(tmpl string, known []string) error {
	set := make(map[string]struct{}, len(known))
	for _, n := range known {
		set[n] = struct{}{}
	}

	var missing []string
	reported := make(map[string]struct{})
	for _, name := range Placeholders(tmpl) {
		if _, ok := set[name]; ok {
			continue
		}
		if _, ok := reported[name]; ok {
			continue
		}
		reported[name] = struct{}{}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return &domain.TemplateError{Kind: domain.TemplateMissingVariable, Names: missing}
	}

	return CheckFormat(tmpl, known)
}

// CheckFormat renders the template with "[name]" for each known name so
// structural errors surface before any recipient is processed.
func CheckFormat(tmpl string, known []string) error {
	vars := make(map[string]string, len(known))
	for _, n := range known {
		vars[n] = "[" + n + "]"
	}
	_, err := Render(tmpl, vars)
	return err
}

// Render substitutes every placeholder with its value. "{{" and "}}" render
// as literal braces; any other unmatched brace is a format error.
func Render(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); {
		switch tmpl[i] {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", formatError("expected '}' before end of string")
			}
			name := tmpl[i+1 : i+1+end]
			if !isName(name) {
				return "", formatError(fmt.Sprintf("invalid placeholder {%s}", name))
			}
			value, ok := vars[name]
			if !ok {
				return "", formatError(fmt.Sprintf("no value for {%s}", name))
			}
			b.WriteString(value)
			i += end + 2
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", formatError("single '}' encountered in format string")
		default:
			b.WriteByte(tmpl[i])
			i++
		}
	}

	return b.String(), nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

func formatError(detail string) error {
	return &domain.TemplateError{Kind: domain.TemplateFormatError, Detail: detail}
}
