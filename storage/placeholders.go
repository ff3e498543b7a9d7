package storage

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// ErrEmptyInput is returned when a statement is requested for no rows or a table with no columns.
var ErrEmptyInput = errors.New("empty input")

// Placeholders returns n comma separated groups of f positional parameters: (?0, ?1), (?2, ?3) for n=2 and f=2.
// Parameter indexes increase across groups so the rows' values can be passed in order.
func Placeholders(n, f int) (string, error) {
	if n < 1 {
		return "", xerrors.Errorf("at least 1 row expected, got %d: %w", n, ErrEmptyInput)
	}
	if f < 1 {
		return "", xerrors.Errorf("at least 1 field expected, got %d: %w", f, ErrEmptyInput)
	}

	var sb strings.Builder
	next := 0
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := 0; j < f; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('?')
			sb.WriteString(strconv.Itoa(next))
			next++
		}
		sb.WriteByte(')')
	}
	return sb.String(), nil
}
