package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Currencies whose smallest unit is the whole unit. Stripe expects
// amounts for these without the x100 multiplier.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true,
	"CLP": true,
	"DJF": true,
	"GNF": true,
	"JPY": true,
	"KMF": true,
	"KRW": true,
	"MGA": true,
	"PYG": true,
	"RWF": true,
	"UGX": true,
	"VND": true,
	"VUV": true,
	"XAF": true,
	"XOF": true,
	"XPF": true,
}

func IsZeroDecimalCurrency(currency string) bool {
	return zeroDecimalCurrencies[strings.ToUpper(currency)]
}

// AmountToSmallestUnit converts a decimal amount into the integer
// amount expected by the payment provider for the given currency.
func AmountToSmallestUnit(amount float64, currency string) int64 {
	if IsZeroDecimalCurrency(currency) {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}

// SmallestUnitToAmount is the inverse of AmountToSmallestUnit.
func SmallestUnitToAmount(cents int64, currency string) float64 {
	if IsZeroDecimalCurrency(currency) {
		return float64(cents)
	}
	return float64(cents) / 100
}

func Slugify(value string) string {
	return slug.Make(value)
}

// UniqueSlug appends a short random suffix for names that collide.
func UniqueSlug(value string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%s", slug.Make(value), suffix)
}
