package reports

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// Round2 rounds half away from zero to two decimals. It is meant for
// display and export only; builders keep full precision.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatAmount renders an amount with thousands grouping and two decimals.
func FormatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", Round2(v))
}

// FormatPlain renders an amount with two decimals and no grouping, as
// spreadsheets and CSV consumers expect.
func FormatPlain(v float64) string {
	return decimal.NewFromFloat(Round2(v)).StringFixed(2)
}

func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
