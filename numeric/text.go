package numeric

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

func registerText() {
	register("LEN", func(l *Library, args []Value) Value {
		return Num(l.t.FromInt(int64(utf8.RuneCountInString(l.Text(arg(args, 0))))))
	})
	register("LEFT", func(l *Library, args []Value) Value {
		return Str(Left(l.Text(arg(args, 0)), int(l.numArg(args, 1, 1))))
	})
	register("RIGHT", func(l *Library, args []Value) Value {
		return Str(Right(l.Text(arg(args, 0)), int(l.numArg(args, 1, 1))))
	})
	register("MID", func(l *Library, args []Value) Value {
		return Str(Mid(l.Text(arg(args, 0)), l.Int(arg(args, 1)), l.Int(arg(args, 2))))
	})
	register("UPPER", func(l *Library, args []Value) Value { return Str(l.upper(l.Text(arg(args, 0)))) })
	register("LOWER", func(l *Library, args []Value) Value { return Str(l.lower(l.Text(arg(args, 0)))) })
	register("PROPER", func(l *Library, args []Value) Value { return Str(l.proper(l.Text(arg(args, 0)))) })
	register("TRIM", func(l *Library, args []Value) Value { return Str(Trim(l.Text(arg(args, 0)))) })
	register("REPT", func(l *Library, args []Value) Value {
		n := l.Int(arg(args, 1))
		if n < 0 {
			return l.err()
		}
		return Str(strings.Repeat(l.Text(arg(args, 0)), n))
	})
	register("SUBSTITUTE", func(l *Library, args []Value) Value {
		s, src, tgt := l.Text(arg(args, 0)), l.Text(arg(args, 1)), l.Text(arg(args, 2))
		if a := arg(args, 3); !a.IsEmpty() {
			return Str(SubstituteNth(s, src, tgt, l.Int(a)))
		}
		return Str(Substitute(s, src, tgt))
	})
	register("REPLACE", func(l *Library, args []Value) Value {
		return Str(Replace(l.Text(arg(args, 0)), l.Int(arg(args, 1)), l.Int(arg(args, 2)), l.Text(arg(args, 3))))
	})
	register("EXACT", func(l *Library, args []Value) Value {
		return l.boolean(l.Text(arg(args, 0)) == l.Text(arg(args, 1)))
	})
	register("FIND", func(l *Library, args []Value) Value {
		return Num(l.t.FromInt(int64(Find(l.Text(arg(args, 0)), l.Text(arg(args, 1)), int(l.numArg(args, 2, 1))))))
	})
	register("SEARCH", func(l *Library, args []Value) Value {
		return Num(l.t.FromInt(int64(l.Search(l.Text(arg(args, 0)), l.Text(arg(args, 1)), int(l.numArg(args, 2, 1))))))
	})
	register("CONCATENATE", func(l *Library, args []Value) Value {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(l.Text(a))
		}
		return Str(sb.String())
	})
	register("VALUE", func(l *Library, args []Value) Value {
		a := arg(args, 0)
		if a.Type == TypeNumber {
			return a
		}
		if n, ok := l.ParseNumber(l.Text(a)); ok {
			return Num(n)
		}
		return l.err()
	})
	register("TEXT", func(l *Library, args []Value) Value {
		return Str(l.FormatText(l.Number(arg(args, 0)), l.Text(arg(args, 1))))
	})
}

// Left returns the first n characters of s.
func Left(s string, n int) string {
	r := []rune(s)
	if n < 1 {
		return ""
	}
	if n >= len(r) {
		return s
	}
	return string(r[:n])
}

// Right returns the last n characters of s.
func Right(s string, n int) string {
	r := []rune(s)
	if n < 1 {
		return ""
	}
	if n >= len(r) {
		return s
	}
	return string(r[len(r)-n:])
}

// Mid returns n characters of s starting at the 1-based position start.
func Mid(s string, start, n int) string {
	r := []rune(s)
	at := start - 1
	if at < 0 || at >= len(r) || n < 0 {
		return ""
	}
	end := at + n
	if end > len(r) {
		end = len(r)
	}
	return string(r[at:end])
}

// Substitute replaces every occurrence of src in s by tgt.
func Substitute(s, src, tgt string) string {
	if s == "" || src == "" || src == tgt {
		return s
	}
	return strings.ReplaceAll(s, src, tgt)
}

// SubstituteNth replaces the occurrence-th occurrence of src in s by tgt.
func SubstituteNth(s, src, tgt string, occurrence int) string {
	if occurrence <= 0 || s == "" || src == "" || src == tgt {
		return s
	}
	at, seen := 0, 0
	for at < len(s) {
		p := strings.Index(s[at:], src)
		if p < 0 {
			break
		}
		p += at
		if seen++; seen == occurrence {
			return s[:p] + tgt + s[p+len(src):]
		}
		at = p + len(src)
	}
	return s
}

// Replace replaces n characters of s at the 1-based position at by repl.
func Replace(s string, at, n int, repl string) string {
	if at < 1 || n < 0 {
		return ""
	}
	if s == "" {
		return repl
	}
	r := []rune(s)
	at--
	if at >= len(r) {
		return s + repl
	}
	if at+n >= len(r) {
		return string(r[:at]) + repl
	}
	return string(r[:at]) + repl + string(r[at+n:])
}

// Trim removes leading and trailing blanks and collapses inner runs of
// blanks into one.
func Trim(s string) string {
	var sb strings.Builder
	blank, text := false, false
	for _, c := range s {
		if c == ' ' {
			if text {
				blank = true
			}
			continue
		}
		text = true
		if blank {
			sb.WriteByte(' ')
			blank = false
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func (l *Library) proper(s string) string {
	var sb strings.Builder
	middle := false
	for _, c := range l.lower(s) {
		if !unicode.IsLetter(c) {
			middle = false
			sb.WriteRune(c)
			continue
		}
		if middle {
			sb.WriteRune(c)
			continue
		}
		sb.WriteString(l.upper(string(c)))
		middle = true
	}
	return sb.String()
}

// Find returns the 1-based position of what in within, searching from the
// 1-based position start, case-sensitively and without wildcards. It
// returns 0 if what is not found.
func Find(what, within string, start int) int {
	if what == "" {
		return 1
	}
	if within == "" {
		return 0
	}
	r := []rune(within)
	if start < 1 || start > len(r) {
		return 0
	}
	suffix := string(r[start-1:])
	p := strings.Index(suffix, what)
	if p < 0 {
		return 0
	}
	return start + utf8.RuneCountInString(suffix[:p])
}

// Search returns the 1-based position of the wildcard pattern what in
// within, searching from the 1-based position start and ignoring case. It
// returns 0 if what is not found.
func (l *Library) Search(what, within string, start int) int {
	if within == "" {
		return 0
	}
	if what == "" {
		return 1
	}
	r := []rune(within)
	if start < 1 || start > len(r) {
		return 0
	}
	// Positions are counted in runes of within, not of its folded form.
	suffix, index := l.lowerRunes(string(r[start-1:]))
	loc := WildcardPattern(l.lower(what)).FindStringIndex(suffix)
	if loc == nil {
		return 0
	}
	if loc[0] >= len(index) {
		return len(r) + 1
	}
	return start + index[loc[0]]
}

// WildcardPattern compiles a spreadsheet wildcard pattern: * matches any
// run, ? matches one character and ~ makes the next character literal.
// Every literal character is escaped by code point.
func WildcardPattern(pattern string) *regexp.Regexp {
	var src strings.Builder
	src.WriteString("(?s)")
	r := []rune(pattern)
	for i := 0; i < len(r); i++ {
		switch c := r[i]; c {
		case '*':
			src.WriteString(".*")
		case '?':
			src.WriteString(".")
		case '~':
			if i+1 < len(r) {
				i++
				c = r[i]
			}
			writeLiteral(&src, c)
		default:
			writeLiteral(&src, c)
		}
	}
	return regexp.MustCompile(src.String())
}

func writeLiteral(sb *strings.Builder, c rune) {
	fmt.Fprintf(sb, `\x{%x}`, c)
}
