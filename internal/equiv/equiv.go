// Package equiv translates kgCO2e totals into relatable real-world
// comparisons for report and terminal output, using EPA-published
// conversion factors.
package equiv

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// EPA greenhouse gas equivalency factors (2024 edition).
// Each factor is the kgCO2e represented by one unit of the activity,
// so the comparison value is total / factor.
const (
	// KgPerCarMile is kgCO2e per mile driven by an average passenger vehicle.
	KgPerCarMile = 0.192

	// KgPerTreeSeedling is kgCO2e sequestered by one urban tree seedling
	// grown for ten years.
	KgPerTreeSeedling = 60.0

	// KgPerHomeDay is kgCO2e from one day of average US household electricity.
	KgPerHomeDay = 18.3
)

// MinKg is the smallest total worth translating. Below this the
// comparisons round to zero and add noise instead of context.
const MinKg = 1.0

const (
	millionThreshold = 1_000_000
	billionThreshold = 1_000_000_000
)

var (
	// ErrNotFinite is returned for NaN or infinite totals.
	ErrNotFinite = errors.New("emission total is not a finite number")

	// ErrNegative is returned for totals below zero.
	ErrNegative = errors.New("emission total is negative")
)

// Kind identifies one comparison category.
type Kind int

const (
	CarMiles Kind = iota
	TreeSeedlings
	HomeDays
)

func (k Kind) String() string {
	switch k {
	case CarMiles:
		return "car_miles"
	case TreeSeedlings:
		return "tree_seedlings"
	case HomeDays:
		return "home_days"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Item is one computed comparison.
type Item struct {
	Kind      Kind    `json:"kind"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	Label     string  `json:"label"`
}

// Summary holds every comparison for a single emission total.
type Summary struct {
	Kg       float64 `json:"kg"`
	Items    []Item  `json:"items"`
	Sentence string  `json:"sentence"`
	Empty    bool    `json:"empty"`
}

var printer = message.NewPrinter(language.English)

// ForKilograms computes comparisons for a total expressed in kgCO2e.
// Totals under MinKg produce an empty Summary with no error.
func ForKilograms(kg float64) (Summary, error) {
	if math.IsNaN(kg) || math.IsInf(kg, 0) {
		return Summary{Empty: true}, ErrNotFinite
	}
	if kg < 0 {
		return Summary{Empty: true}, ErrNegative
	}
	if kg < MinKg {
		return Summary{Kg: kg, Empty: true}, nil
	}

	miles := kg / KgPerCarMile
	trees := kg / KgPerTreeSeedling
	days := kg / KgPerHomeDay

	items := []Item{
		{Kind: CarMiles, Value: miles, Formatted: formatCount(miles), Label: "miles driven"},
		{Kind: TreeSeedlings, Value: trees, Formatted: formatCount(trees), Label: "tree seedlings grown for 10 years"},
		{Kind: HomeDays, Value: days, Formatted: formatCount(days), Label: "days of home electricity"},
	}

	sentence := fmt.Sprintf("Equivalent to driving ~%s miles, or ~%s tree seedlings grown for 10 years",
		items[0].Formatted, items[1].Formatted)

	return Summary{Kg: kg, Items: items, Sentence: sentence}, nil
}

// formatCount renders a comparison value for display. Large values use
// an abbreviated scale, everything else a comma-separated integer.
func formatCount(v float64) string {
	switch {
	case v >= billionThreshold:
		return fmt.Sprintf("%.1f billion", v/billionThreshold)
	case v >= millionThreshold:
		return fmt.Sprintf("%.1f million", v/millionThreshold)
	default:
		return printer.Sprintf("%d", int64(math.Round(v)))
	}
}
