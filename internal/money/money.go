// Package money renders amounts held as integer minor units.
package money

import (
	"fmt"

	"consultly/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var indianEnglish = language.MustParse("en-IN")

const symbol = "₹"

// Format renders paise as rupees with Indian digit grouping, e.g. 150000 -> "₹1,500.00".
func Format(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	p := message.NewPrinter(indianEnglish)
	return p.Sprintf("%s%s%v.%02d", sign, symbol, number.Decimal(minor/100), minor%100)
}

// FormatWithCode appends the ISO currency code, as used in exports.
func FormatWithCode(minor int64) string {
	return fmt.Sprintf("%s %s", Format(minor), models.Currency)
}

// Major converts minor units to a decimal amount for spreadsheets.
func Major(minor int64) float64 {
	return float64(minor) / 100
}
