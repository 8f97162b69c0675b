// Package format renders amounts for people rather than machines.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := formatPositiveCurrency(math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Fixed renders an exact amount with two decimals and no separators, the
// form used in report tables and CSV exports (e.g., "1234.50").
func Fixed(amount decimal.Decimal) string {
	return amount.StringFixed(constants.AmountPlaces)
}

// Locale formats whole-unit currency values using a locale's digit grouping.
type Locale struct {
	printer *message.Printer
	symbol  string
}

// NewLocale builds a Locale from a BCP 47 tag such as "en" or "de-DE".
func NewLocale(tag, symbol string) (*Locale, error) {
	parsed, err := language.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", tag, err)
	}
	return &Locale{printer: message.NewPrinter(parsed), symbol: symbol}, nil
}

// MustLocale is NewLocale for tags known to be valid.
func MustLocale(tag, symbol string) *Locale {
	l, err := NewLocale(tag, symbol)
	if err != nil {
		panic(err)
	}
	return l
}

// WholeCurrency rounds half away from zero to whole units and groups digits
// per the locale (e.g., "$1,235" for 1234.5 in English).
func (l *Locale) WholeCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	units := rounded.BigInt()
	if units.IsInt64() {
		return sign + l.symbol + l.printer.Sprintf("%d", units.Int64())
	}
	return sign + l.symbol + groupDigits(units.String(), l.groupSeparator())
}

// groupSeparator returns the locale's thousands separator, or "" when the
// locale does not group or prints non-ASCII digits.
func (l *Locale) groupSeparator() string {
	rest := strings.TrimPrefix(l.printer.Sprintf("%d", 1000000), "1")
	end := strings.IndexByte(rest, '0')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// groupDigits inserts sep between groups of three digits.
func groupDigits(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var builder strings.Builder
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			builder.WriteString(sep)
		}
		builder.WriteByte(digits[i])
	}
	return builder.String()
}

func formatPositiveCurrency(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
