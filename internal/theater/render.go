package theater

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatFunc renders an amount of cents for display.
type FormatFunc func(Money) string

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders cents as US dollars, e.g. "$1,730.00". The cents are reduced to
// whole dollars with integer division before formatting, so any sub-dollar remainder
// is dropped rather than rounded.
func (c *Calculator) FormatUSD(cents Money) string {
	dollars := cents / c.rates.CentsPerDollar
	sign := ""
	if dollars < 0 {
		sign = "-"
		dollars = -dollars
	}
	return sign + "$" + usPrinter.Sprintf("%d", dollars) + ".00"
}

// RenderText lays out a statement as plain text, one line per performance followed by
// the amount owed and the credits earned.
func RenderText(stmt Statement, format FormatFunc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statement for %s\n", stmt.Customer)
	for _, line := range stmt.Lines {
		fmt.Fprintf(&b, "  %s: %s (%d seats)\n", line.PlayName, format(line.Amount), line.Audience)
	}
	fmt.Fprintf(&b, "Amount owed is %s\n", format(stmt.TotalAmount))
	fmt.Fprintf(&b, "You earned %d credits\n", stmt.TotalCredits)
	return b.String()
}
