package script

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
)

// statement is the source text of one ';'-terminated call.
// Comments are blanked out so positions inside text stay valid.
type statement struct {
	text  string
	start hcl.Pos
}

// splitStatements cuts src at every ';' outside string literals.
// A final statement without ';' is kept. A newline ends an unterminated
// string and the statement holding it, so one bad literal cannot swallow
// the next line.
func splitStatements(src string) []statement {
	var (
		out     []statement
		buf     strings.Builder
		start   hcl.Pos
		started bool
		inStr   bool
		esc     bool
	)
	pos := hcl.Pos{Line: 1, Column: 1}

	flush := func() {
		if text := strings.TrimRightFunc(buf.String(), unicode.IsSpace); text != "" {
			out = append(out, statement{text: text, start: start})
		}
		buf.Reset()
		started = false
	}
	advance := func(r rune, size int) {
		pos.Byte += size
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	blank := func(r rune) {
		if !started {
			return
		}
		if r == '\n' {
			buf.WriteByte('\n')
		} else {
			buf.WriteByte(' ')
		}
	}

	for i := 0; i < len(src); {
		r, size := utf8.DecodeRuneInString(src[i:])

		if inStr {
			buf.WriteString(src[i : i+size])
			switch {
			case esc:
				esc = false
			case r == '\\':
				esc = true
			case r == '"':
				inStr = false
			case r == '\n':
				inStr = false
				flush()
			}
			advance(r, size)
			i += size
			continue
		}

		switch {
		case r == '/' && strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				r, size = utf8.DecodeRuneInString(src[i:])
				blank(r)
				advance(r, size)
				i += size
			}
			continue
		case r == '/' && strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			stop := len(src)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			for i < stop {
				r, size = utf8.DecodeRuneInString(src[i:])
				blank(r)
				advance(r, size)
				i += size
			}
			continue
		case r == ';':
			flush()
			advance(r, size)
			i += size
			continue
		case unicode.IsSpace(r) && !started:
			advance(r, size)
			i += size
			continue
		}

		if !started {
			start = pos
			started = true
		}
		if r == '"' {
			inStr = true
		}
		buf.WriteString(src[i : i+size])
		advance(r, size)
		i += size
	}
	flush()
	return out
}
