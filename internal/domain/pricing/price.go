package pricing

// Config carries the site-wide discount settings. It is loaded once from
// the environment at startup and injected into the handlers that price
// things; nothing in this package reads global state.
type Config struct {
	GlobalDiscountActive  bool
	GlobalDiscountPercent int
}

// Quote is the result of pricing one course. All amounts are integer minor
// units (cents); conversion to major units happens only at presentation
// boundaries.
type Quote struct {
	OriginalCents   int64
	DiscountedCents int64
	AppliedPercent  int
	ShowDiscount    bool
}

// EffectivePrice computes the price actually charged for a base price.
// A coupon percentage overrides the global discount entirely; the two are
// never stacked. The same function prices both the client-facing display
// and the server-side charge, so it must stay pure and deterministic.
func (c Config) EffectivePrice(baseCents int64, couponPercent *int) Quote {
	switch {
	case couponPercent != nil:
		return Quote{
			OriginalCents:   baseCents,
			DiscountedCents: applyPercentOff(baseCents, *couponPercent),
			AppliedPercent:  *couponPercent,
			ShowDiscount:    *couponPercent > 0,
		}
	case c.GlobalDiscountActive:
		return Quote{
			OriginalCents:   baseCents,
			DiscountedCents: applyPercentOff(baseCents, c.GlobalDiscountPercent),
			AppliedPercent:  c.GlobalDiscountPercent,
			ShowDiscount:    c.GlobalDiscountPercent > 0,
		}
	default:
		return Quote{
			OriginalCents:   baseCents,
			DiscountedCents: baseCents,
		}
	}
}

// applyPercentOff keeps everything in integer cents, rounding half-up.
func applyPercentOff(cents int64, percent int) int64 {
	if percent <= 0 {
		return cents
	}
	if percent >= 100 {
		return 0
	}
	return (cents*int64(100-percent) + 50) / 100
}

// ValidPercent reports whether p is a usable discount percentage.
func ValidPercent(p int) bool {
	return p >= 0 && p <= 100
}

// Major converts minor units to major units for display payloads. This is
// the only place float enters the picture.
func Major(cents int64) float64 {
	return float64(cents) / 100
}
