package db

import (
	"fmt"
	"strings"
)

// bindNamed rewrites :name placeholders into the driver's positional form and
// returns the matching argument list. Quoted text, comments and :: casts are
// left untouched. Without params the statement is returned as is, so trusted
// migration text is never rewritten.
func bindNamed(sqlText string, params []Param, placeholder func(n int) string) (string, []any, error) {
	if len(params) == 0 {
		return sqlText, nil, nil
	}
	byName := make(map[string]Value, len(params))
	for _, p := range params {
		byName[p.Name] = p.Value
	}

	var (
		out     strings.Builder
		args    []any
		quote   byte
		src     = sqlText
		comment bool
	)
	out.Grow(len(src))

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case comment:
			if c == '\n' {
				comment = false
			}
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			comment = true
		case c == ':' && i+1 < len(src) && src[i+1] == ':':
			out.WriteString("::")
			i++
			continue
		case c == ':' && i+1 < len(src) && isIdentStart(src[i+1]):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			name := src[i+1 : j]
			v, ok := byName[name]
			if !ok {
				return "", nil, fmt.Errorf("no value bound for parameter :%s", name)
			}
			args = append(args, v.Native())
			out.WriteString(placeholder(len(args)))
			i = j - 1
			continue
		}
		out.WriteByte(c)
	}
	return out.String(), args, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func questionMark(int) string { return "?" }

func dollarN(n int) string { return fmt.Sprintf("$%d", n) }
