// Package balance converts raw MIST amounts into the strings shown on
// leaderboards and mint pages.
package balance

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// Decimals is the SUI scale: 1 SUI = 10^9 MIST
	Decimals = 9

	// displayDecimals is the number of fractional digits kept for display
	displayDecimals = 3
)

var printer = message.NewPrinter(language.AmericanEnglish)

// ToMajorUnits converts a MIST amount given as a base-10 string into SUI.
// Invalid or empty input formats as "0".
func ToMajorUnits(minor string) string {
	v, ok := ParseMinor(minor)
	if !ok {
		return "0"
	}
	return ToMajorUnitsInt(v)
}

// ToMajorUnitsInt converts a MIST amount into SUI, truncated (never rounded)
// to three decimals, with trailing zeros and a dangling point removed.
func ToMajorUnitsInt(minor *big.Int) string {
	if minor == nil || minor.Sign() == 0 {
		return "0"
	}
	return decimal.NewFromBigInt(minor, -Decimals).Truncate(displayDecimals).String()
}

// ToMajorUnitsUint is ToMajorUnitsInt for amounts held as uint64 (prices, budgets)
func ToMajorUnitsUint(minor uint64) string {
	return ToMajorUnitsInt(new(big.Int).SetUint64(minor))
}

// MajorUnitsFloat is the float64 approximation of the truncated SUI amount,
// used only for ranking and progress bars.
func MajorUnitsFloat(minor *big.Int) float64 {
	f, err := strconv.ParseFloat(ToMajorUnitsInt(minor), 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseMinor parses a base-10 integer amount. Empty strings are treated as zero.
func ParseMinor(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), true
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return v, true
}

// GroupThousands formats a decimal string with en-US digit grouping and at
// most three fractional digits, e.g. "1234567.5" -> "1,234,567.5".
func GroupThousands(value string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return "0"
	}
	return printer.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(displayDecimals)))
}

// Display is the leaderboard balance cell: grouped, truncated SUI
func Display(minor *big.Int) string {
	return GroupThousands(ToMajorUnitsInt(minor))
}

// ShortAddress abbreviates an address as 0x123456...abcdef
func ShortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-6:]
}
