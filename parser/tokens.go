package parser

import (
	"strings"

	"github.com/xuri/efp"
)

// token is an efp token with its byte offset in the formula text.
type token struct {
	efp.Token
	pos int
}

// locate drops whitespace tokens and assigns each remaining token the
// offset of its text, scanning the formula left to right. Tokens whose text
// does not occur verbatim, such as the implicit array row tokens, get the
// offset of the scan cursor.
func locate(text string, tokens []efp.Token) []token {
	out := make([]token, 0, len(tokens))
	cursor := 0
	for _, t := range tokens {
		if t.TType == efp.TokenTypeWhitespace || t.TType == "Noop" {
			continue
		}
		pos := cursor
		if needle := source(t); needle != "" {
			if i := indexFold(text[cursor:], needle); i >= 0 {
				pos = cursor + i
				cursor = pos + len(needle)
			}
		}
		out = append(out, token{Token: t, pos: pos})
	}
	return out
}

// source returns the text a token was read from, or "" if it has none.
func source(t efp.Token) string {
	switch t.TType {
	case efp.TokenTypeOperand:
		if t.TSubType == efp.TokenSubTypeText {
			return `"` + strings.ReplaceAll(t.TValue, `"`, `""`) + `"`
		}
		return t.TValue
	case efp.TokenTypeFunction:
		switch {
		case t.TSubType == efp.TokenSubTypeStop:
			return ""
		case t.TValue == "ARRAY":
			return "{"
		case t.TValue == "ARRAYROW":
			return ""
		}
		return t.TValue + "("
	case efp.TokenTypeSubexpression:
		if t.TSubType == efp.TokenSubTypeStart {
			return "("
		}
		return ")"
	case efp.TokenTypeArgument:
		return ""
	}
	return t.TValue
}

// indexFold is strings.Index ignoring ASCII case.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}
