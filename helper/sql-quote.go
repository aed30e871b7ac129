package helper

import (
	"errors"
	"strings"
)

var ErrNulByte = errors.New("SQL text may not contain NUL bytes")

// QuoteIdentifier wraps an identifier in double quotes, doubling any embedded quotes.
// A dotted name such as schema.table is quoted per part.
func QuoteIdentifier(name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", ErrNulByte
	}
	if name == "" {
		return "", errors.New("empty SQL identifier")
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, "."), nil
}

// MustQuoteIdentifier is QuoteIdentifier for names known to be valid, e.g. table descriptors.
func MustQuoteIdentifier(name string) string {
	q, err := QuoteIdentifier(name)
	if err != nil {
		panic(err)
	}
	return q
}

// QuoteIdentifiers quotes every name in s.
func QuoteIdentifiers(s []string) ([]string, error) {
	retval := make([]string, len(s))
	for i, v := range s {
		q, err := QuoteIdentifier(v)
		if err != nil {
			return nil, err
		}
		retval[i] = q
	}
	return retval, nil
}

// QuoteLiteral wraps s in single quotes, doubling any embedded single quotes.
// Backslashes are escaped using the E'' form so the result is safe whatever standard_conforming_strings is set to.
func QuoteLiteral(s string) (string, error) {
	if strings.ContainsRune(s, 0) {
		return "", ErrNulByte
	}
	q := "'" + strings.ReplaceAll(s, "'", "''") + "'"
	if strings.Contains(s, `\`) {
		q = "E" + strings.ReplaceAll(q, `\`, `\\`)
	}
	return q, nil
}
