package services

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders a USD price the way the price table shows it: six
// decimals below one cent, four below one dollar, otherwise grouped with two.
func FormatPrice(price float64) string {
	switch {
	case price < 0.01:
		return fmt.Sprintf("$%.6f", price)
	case price < 1:
		return fmt.Sprintf("$%.4f", price)
	default:
		return usdPrinter.Sprintf("$%.2f", price)
	}
}

// FormatMarketCap abbreviates to trillions, billions or millions
func FormatMarketCap(marketCap float64) string {
	switch {
	case marketCap >= 1e12:
		return fmt.Sprintf("$%.2fT", marketCap/1e12)
	case marketCap >= 1e9:
		return fmt.Sprintf("$%.2fB", marketCap/1e9)
	case marketCap >= 1e6:
		return fmt.Sprintf("$%.2fM", marketCap/1e6)
	default:
		return fmt.Sprintf("$%.2f", marketCap)
	}
}

// FormatVolume abbreviates to billions, millions or thousands
func FormatVolume(volume float64) string {
	switch {
	case volume >= 1e9:
		return fmt.Sprintf("$%.2fB", volume/1e9)
	case volume >= 1e6:
		return fmt.Sprintf("$%.2fM", volume/1e6)
	case volume >= 1e3:
		return fmt.Sprintf("$%.2fK", volume/1e3)
	default:
		return fmt.Sprintf("$%.2f", volume)
	}
}

// FormatPercentage renders a signed change; nil renders as N/A
func FormatPercentage(percentage *float64) string {
	if percentage == nil {
		return "N/A"
	}
	if *percentage > 0 {
		return fmt.Sprintf("+%.2f%%", *percentage)
	}
	return fmt.Sprintf("%.2f%%", *percentage)
}
