package sheetorm

import (
	"fmt"
	"regexp"
	"strings"
)

var bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// translateBrackets rewrites a free-form query, replacing every [Header]
// token with the column's positional code.
//
// Unlike the structured builder this fails loudly: a silently dropped token
// in a free-form query would change its meaning (a filter could collapse
// into "match everything"), so an unavailable schema or an unknown header
// is an error and no fetch happens.
func translateBrackets(s *Schema, query string) (string, error) {
	if s == nil || s.Empty() {
		return "", ErrNoSchema
	}

	var unknown []string
	out := bracketPattern.ReplaceAllStringFunc(query, func(token string) string {
		name := token[1 : len(token)-1]
		code, ok := s.Code(name)
		if !ok {
			unknown = append(unknown, name)
			return token
		}
		return code
	})

	if len(unknown) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownHeader, strings.Join(unknown, ", "))
	}
	return out, nil
}
