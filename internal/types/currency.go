package types

import "strings"

// DefaultCurrency is applied when a document request carries no currency code
const DefaultCurrency = "ILS"

// CURRENCY_CODES_SYMBOLS is a map of 3 digit ISO currency codes to their symbols
// TODO add more currencies or look for a library
var CURRENCY_CODES_SYMBOLS = map[string]string{
	"ils": "₪",
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"aud": "AU$",
	"cad": "CA$",
	"chf": "CHF",
	"sek": "kr",
	"jpy": "¥",
	"cny": "¥",
	"inr": "₹",
	"rub": "₽",
	"try": "₺",
}

// GetCurrencySymbol returns the symbol for a given currency code
// if the code is not found, it returns the code itself
func GetCurrencySymbol(code string) string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[strings.ToLower(code)]; ok {
		return symbol
	}
	return code
}

// NormalizeCurrency uppercases a currency code and falls back to the default
// when the code is empty. Codes are treated as opaque identifiers beyond that.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}

// IsMatchingCurrency compares two currency codes ignoring case
func IsMatchingCurrency(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
