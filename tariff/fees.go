package tariff

import (
	"time"

	"github.com/orinocoz/energymeter/types/maybe"
)

// feeSource is one step of a fee resolution chain. It reports false when
// it has no opinion, handing over to the next step.
type feeSource func(t time.Time) (float64, bool)

// resolveFee returns the value of the first source that knows the fee, or 0.
func resolveFee(t time.Time, sources ...feeSource) float64 {
	for _, src := range sources {
		if v, ok := src(t); ok {
			return v
		}
	}
	return 0
}

func fromSchedule(fee DatedFee) feeSource {
	return fee.At
}

func fromConfig(v *float64) feeSource {
	m := maybe.FromPtr(v)
	return func(time.Time) (float64, bool) {
		return m.Value(), m.IsValid()
	}
}

func fromPackage(pkg NetworkPackage, found bool, period Period) feeSource {
	return func(time.Time) (float64, bool) {
		if !found {
			return 0, false
		}
		return pkg.Rate(period)
	}
}

func fromPackageFallback(pkg NetworkPackage, found bool, period Period) feeSource {
	return func(t time.Time) (float64, bool) {
		if !found {
			return 0, false
		}
		for _, p := range fallbackPeriods(period) {
			if r, ok := pkg.Rate(p); ok {
				return r, true
			}
		}
		return 0, false
	}
}

// fallbackPeriods lists the periods whose rate is used when a package
// has no rate for the classified one.
func fallbackPeriods(period Period) []Period {
	switch period {
	case PeriodRestPeak:
		return []Period{PeriodNight, PeriodDay}
	case PeriodDay:
		return nil
	default:
		return []Period{PeriodDay}
	}
}
