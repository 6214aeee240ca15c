package numeric

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/nfp"
	"golang.org/x/text/language"
)

// separators returns the digit grouping and decimal separators of a locale.
func separators(tag language.Tag) (group, point rune) {
	base, _ := tag.Base()
	switch base.String() {
	case "de", "es", "it", "nl", "pt", "id", "tr", "da", "ro", "el":
		return '.', ','
	case "fr", "ru", "pl", "cs", "sv", "nb", "fi", "uk", "sk", "hu", "bg":
		return ' ', ','
	}
	return ',', '.'
}

// numberLayout is the numeric part of one number format section.
type numberLayout struct {
	minInt, minFrac, maxFrac int
	grouping, percent        bool
}

// FormatText formats n with a spreadsheet number format. Digit
// placeholders, the decimal point, grouping, percent and literal text are
// honored; date and time codes fall back to the general format.
func (l *Library) FormatText(n Number, format string) string {
	ps := nfp.NumberFormatParser()
	sections := ps.Parse(format)
	if len(sections) == 0 {
		return l.t.Format(n)
	}
	value := l.t.ToDecimal(n)
	section := sections[0]
	negative := value.IsNegative()
	switch {
	case value.IsZero() && len(sections) > 2:
		section = sections[2]
	case negative && len(sections) > 1:
		section, negative = sections[1], false
		value = value.Abs()
	}
	layout, ok := scanLayout(section.Items)
	if !ok {
		return l.t.Format(n)
	}
	if layout.percent {
		value = value.Mul(decimal.NewFromInt(100))
	}
	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
		value = value.Abs()
	}
	written := false
	for _, item := range section.Items {
		switch item.TType {
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeHashPlaceHolder, nfp.TokenTypeDecimalPoint,
			nfp.TokenTypeThousandsSeparator:
			if !written {
				sb.WriteString(l.layoutNumber(value, layout))
				written = true
			}
		case nfp.TokenTypePercent:
			sb.WriteByte('%')
		case nfp.TokenTypeLiteral:
			sb.WriteString(item.TValue)
		case nfp.TokenTypeGeneral:
			sb.WriteString(l.t.Format(l.t.FromDecimal(value)))
			written = true
		}
	}
	return sb.String()
}

func scanLayout(items []nfp.Token) (numberLayout, bool) {
	var layout numberLayout
	fraction := false
	for _, item := range items {
		switch item.TType {
		case nfp.TokenTypeZeroPlaceHolder:
			if fraction {
				layout.minFrac += len(item.TValue)
				layout.maxFrac += len(item.TValue)
			} else {
				layout.minInt += len(item.TValue)
			}
		case nfp.TokenTypeHashPlaceHolder:
			if fraction {
				layout.maxFrac += len(item.TValue)
			}
		case nfp.TokenTypeDecimalPoint:
			fraction = true
		case nfp.TokenTypeThousandsSeparator:
			if !fraction {
				layout.grouping = true
			}
		case nfp.TokenTypePercent:
			layout.percent = true
		case nfp.TokenTypeDateTimes, nfp.TokenTypeExponential:
			return layout, false
		}
	}
	return layout, true
}

func (l *Library) layoutNumber(value decimal.Decimal, layout numberLayout) string {
	fixed := value.Round(int32(layout.maxFrac)).StringFixed(int32(layout.maxFrac))
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	for len(fracPart) > layout.minFrac && strings.HasSuffix(fracPart, "0") {
		fracPart = fracPart[:len(fracPart)-1]
	}
	intPart = strings.TrimLeft(intPart, "0")
	for len(intPart) < layout.minInt {
		intPart = "0" + intPart
	}
	group, point := separators(l.ctx.locale)
	if layout.grouping {
		intPart = groupDigits(intPart, group)
	}
	if fracPart == "" {
		return intPart
	}
	return intPart + string(point) + fracPart
}

func groupDigits(digits string, sep rune) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteRune(sep)
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
