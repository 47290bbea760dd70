package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Statement is one parameterized SQL statement. Placeholders may be "?" or
// "$N" depending on the driver.
type Statement struct {
	SQL  string
	Args []any
}

// NewStatement builds a Statement.
func NewStatement(sql string, args ...any) Statement {
	return Statement{SQL: sql, Args: args}
}

// String renders the statement with its arguments inlined. The output is
// for traces only and must never be executed.
func (s Statement) String() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	var b strings.Builder
	next := 0
	inQuote := false
	for i := 0; i < len(s.SQL); i++ {
		c := s.SQL[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case inQuote:
			b.WriteByte(c)
		case c == '?':
			if next < len(s.Args) {
				b.WriteString(literal(s.Args[next]))
				next++
				continue
			}
			b.WriteByte(c)
		case c == '$':
			j := i + 1
			for j < len(s.SQL) && s.SQL[j] >= '0' && s.SQL[j] <= '9' {
				j++
			}
			n, err := strconv.Atoi(s.SQL[i+1 : j])
			if err != nil || n < 1 || n > len(s.Args) {
				b.WriteByte(c)
				continue
			}
			b.WriteString(literal(s.Args[n-1]))
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case []byte:
		return fmt.Sprintf("X'%X'", x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + x.UTC().Format(time.RFC3339Nano) + "'"
	case fmt.Stringer:
		return literal(x.String())
	default:
		return fmt.Sprint(x)
	}
}
