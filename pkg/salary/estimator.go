// Package salary turns a posting's declared pay range into a single
// imputed salary value.
package salary

import "strings"

// Default imputation factors for one-sided ranges.
const (
	// DefaultLowerOnlyFactor scales a range that only declares a lower bound.
	DefaultLowerOnlyFactor = 1.2

	// DefaultUpperOnlyFactor scales a range that only declares an upper bound.
	DefaultUpperOnlyFactor = 0.8
)

// currencyAliases maps provider-specific currency tokens to ISO 4217 codes.
var currencyAliases = map[string]string{
	"RUR": "RUB",
	"RUB": "RUB",
}

// Range is the pay range declared by a single posting.
// A nil bound means the provider did not declare it.
type Range struct {
	From     *float64
	To       *float64
	Currency string
}

// Estimator imputes a single salary from a Range.
type Estimator struct {
	// TargetCurrency is the canonical currency estimates are restricted to.
	TargetCurrency string

	LowerOnlyFactor float64
	UpperOnlyFactor float64
}

// NewEstimator returns an Estimator with the default factors.
func NewEstimator(targetCurrency string) Estimator {
	return Estimator{
		TargetCurrency:  targetCurrency,
		LowerOnlyFactor: DefaultLowerOnlyFactor,
		UpperOnlyFactor: DefaultUpperOnlyFactor,
	}
}

// Estimate returns the imputed salary for r, or false when no estimate
// can be made (foreign currency or no bounds at all).
// Bounds are not validated; negative values pass through unchanged.
func (e Estimator) Estimate(r Range) (float64, bool) {
	if CanonicalCurrency(r.Currency) != CanonicalCurrency(e.TargetCurrency) {
		return 0, false
	}

	switch {
	case r.From != nil && r.To != nil:
		return (*r.From + *r.To) / 2, true
	case r.From != nil:
		return *r.From * e.LowerOnlyFactor, true
	case r.To != nil:
		return *r.To * e.UpperOnlyFactor, true
	default:
		return 0, false
	}
}

// Estimate imputes a salary using the default factors.
func Estimate(r Range, targetCurrency string) (float64, bool) {
	return NewEstimator(targetCurrency).Estimate(r)
}

// CanonicalCurrency normalizes a provider currency token ("RUR", "rub")
// to its ISO code. Unknown tokens are upper-cased.
func CanonicalCurrency(token string) string {
	code := strings.ToUpper(strings.TrimSpace(token))
	if alias, ok := currencyAliases[code]; ok {
		return alias
	}
	return code
}

// Bound is a convenience for building a Range bound from a literal.
func Bound(v float64) *float64 {
	return &v
}
