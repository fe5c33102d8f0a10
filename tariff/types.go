package tariff

import (
	"time"

	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/slice"
)

type Period string

const (
	PeriodDay      Period = "DAY"
	PeriodNight    Period = "NIGHT"
	PeriodDayPeak  Period = "DAY_PEAK"
	PeriodRestPeak Period = "REST_PEAK"
	PeriodFlat     Period = "FLAT"
)

func (p Period) IsValid() bool {
	switch p {
	case PeriodDay, PeriodNight, PeriodDayPeak, PeriodRestPeak, PeriodFlat:
		return true
	default:
		return false
	}
}

// NetworkPackage is a network operator tariff product with energy rates
// in cents/kWh excluding VAT.
type NetworkPackage struct {
	ID                 string             `json:"id"`
	Label              string             `json:"label"`
	Periods            []Period           `json:"periods"`
	EnergyRatesExclVat map[Period]float64 `json:"energyRatesExclVat"`
}

func (p NetworkPackage) Supports(period Period) bool {
	for _, pp := range p.Periods {
		if pp == period {
			return true
		}
	}
	return false
}

func (p NetworkPackage) IsFlatOnly() bool {
	return len(p.Periods) > 0 && slice.All(p.Periods, func(pp Period) bool { return pp == PeriodFlat })
}

func (p NetworkPackage) Rate(period Period) (float64, bool) {
	r, ok := p.EnergyRatesExclVat[period]
	return r, ok
}

type DatedValue struct {
	EffectiveFrom string  `json:"effectiveFrom"` // YYYY-MM-DD, local market date
	ExclVat       float64 `json:"exclVat"`
}

// DatedFee is a national levy whose rate changes on known dates.
type DatedFee struct {
	Changes []DatedValue `json:"changes,omitempty"`
}

// At returns the latest value that is effective at t. Entries with
// unparsable dates are ignored.
func (f DatedFee) At(t time.Time) (float64, bool) {
	var (
		found    bool
		value    float64
		foundVal time.Time
	)
	for _, c := range f.Changes {
		from, err := hours.ParseDate(c.EffectiveFrom)
		if err != nil {
			continue
		}
		if t.Before(from) {
			continue
		}
		if !found || !from.Before(foundVal) {
			found = true
			value = c.ExclVat
			foundVal = from
		}
	}
	return value, found
}

type NationalFees struct {
	RenewableSurcharge   DatedFee `json:"renewableSurcharge"`
	ExciseTax            DatedFee `json:"exciseTax"`
	SecurityOfSupplyFee  DatedFee `json:"securityOfSupplyFee"`
	BalancingCapacityFee DatedFee `json:"balancingCapacityFee"`
}

// DayHours is the legacy whole-hour day tariff definition.
type DayHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Breakdown struct {
	Timestamp            time.Time `json:"timestamp"`
	Spot                 float64   `json:"spot"`
	SpotOnly             bool      `json:"spotOnly"`
	Period               Period    `json:"period,omitempty"`
	NetworkFee           float64   `json:"networkFee"`
	RenewableSurcharge   float64   `json:"renewableSurcharge"`
	ExciseTax            float64   `json:"exciseTax"`
	SecurityOfSupplyFee  float64   `json:"securityOfSupplyFee"`
	BalancingCapacityFee float64   `json:"balancingCapacityFee"`
	PurchaseMargin       float64   `json:"purchaseMargin"`
	SalesMargin          float64   `json:"salesMargin"`
	VatPercent           float64   `json:"vatPercent"`
	Subtotal             float64   `json:"subtotal"`
	Total                float64   `json:"total"`
	TotalWithMargins     float64   `json:"totalWithMargins"`
}
