package dump

import "strings"

// Unquote strips the surrounding single quotes of a string field and
// resolves the backslash escapes written by mysqldump. Unquoted fields
// (numbers, NULL) are returned unchanged.
func Unquote(field string) string {
	if len(field) < 2 || field[0] != '\'' || field[len(field)-1] != '\'' {
		return field
	}

	inner := field[1 : len(field)-1]
	if !strings.ContainsAny(inner, `\'`) {
		return inner
	}

	var b strings.Builder
	b.Grow(len(inner))

	for i := 0; i < len(inner); i++ {
		c := inner[i]

		switch {
		case c == '\\' && i+1 < len(inner):
			i++
			b.WriteByte(unescape(inner[i]))
		case c == '\'' && i+1 < len(inner) && inner[i+1] == '\'':
			i++
			b.WriteByte('\'')
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func unescape(c byte) byte {
	switch c {
	case '0':
		return 0
	case 'b':
		return '\b'
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'Z':
		return 0x1a
	default:
		return c
	}
}
