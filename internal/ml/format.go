package ml

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatUSD renders a price as US dollars with thousands separators and no
// decimals, e.g. "$ 1,000,000".
func FormatUSD(price float64) string {
	return message.NewPrinter(language.AmericanEnglish).Sprintf("$ %.0f", price)
}
