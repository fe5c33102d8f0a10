package tariff

import (
	"time"

	"github.com/orinocoz/energymeter/calendar"
)

// Engine turns spot prices into delivered prices. It holds only read-only
// reference data and is safe for concurrent use.
type Engine struct {
	ref        *Reference
	calendar   *calendar.Resolver
	classifier *Classifier
}

func NewEngine(ref *Reference, cal *calendar.Resolver) *Engine {
	return &Engine{
		ref:        ref,
		calendar:   cal,
		classifier: NewClassifier(ref, cal),
	}
}

func (e *Engine) Reference() *Reference {
	return e.ref
}

func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

func (e *Engine) Calendar() *calendar.Resolver {
	return e.calendar
}

// Total returns the delivered price in cents/kWh including VAT, without
// margins. Without a network package the spot price is returned as is.
func (e *Engine) Total(spot float64, t time.Time, cfg Config) float64 {
	return e.Breakdown(spot, t, cfg).Total
}

// TotalWithMargins is Total with purchase and sales margins added before VAT.
func (e *Engine) TotalWithMargins(spot float64, t time.Time, cfg Config) float64 {
	return e.Breakdown(spot, t, cfg).TotalWithMargins
}

func (e *Engine) Breakdown(spot float64, t time.Time, cfg Config) Breakdown {
	b := Breakdown{
		Timestamp: t,
		Spot:      spot,
	}
	if !cfg.HasPackage() {
		b.SpotOnly = true
		b.Subtotal = spot
		b.Total = spot
		b.TotalWithMargins = spot
		return b
	}

	id := cfg.PackageID()
	b.Period = e.classifier.Classify(id, t)
	b.NetworkFee = e.networkFee(id, b.Period, t, cfg)

	fees := e.ref.NationalFees
	b.RenewableSurcharge = resolveFee(t, fromSchedule(fees.RenewableSurcharge), fromConfig(cfg.RenewableSurcharge))
	b.ExciseTax = resolveFee(t, fromSchedule(fees.ExciseTax), fromConfig(cfg.ExciseTax))
	b.SecurityOfSupplyFee = resolveFee(t, fromSchedule(fees.SecurityOfSupplyFee), fromConfig(cfg.SecurityOfSupplyFee))
	b.BalancingCapacityFee = resolveFee(t, fromSchedule(fees.BalancingCapacityFee), fromConfig(cfg.BalancingCapacityFee))
	b.PurchaseMargin = resolveFee(t, fromConfig(cfg.PurchaseMargin))
	b.SalesMargin = resolveFee(t, fromConfig(cfg.SalesMargin))
	b.VatPercent = e.vatPercent(cfg)

	b.Subtotal = spot + b.NetworkFee + b.RenewableSurcharge + b.ExciseTax + b.SecurityOfSupplyFee + b.BalancingCapacityFee
	vat := 1 + b.VatPercent/100
	b.Total = b.Subtotal * vat
	b.TotalWithMargins = (b.Subtotal + b.PurchaseMargin + b.SalesMargin) * vat
	return b
}

func (e *Engine) networkFee(packageID string, period Period, t time.Time, cfg Config) float64 {
	pkg, found := e.ref.Package(packageID)

	legacy := cfg.TransferNight
	if e.classifier.BaseDayNight(packageID, t) == PeriodDay {
		legacy = cfg.TransferDay
	}

	return resolveFee(t,
		fromPackage(pkg, found, period),
		fromPackageFallback(pkg, found, period),
		fromConfig(legacy),
	)
}

func (e *Engine) vatPercent(cfg Config) float64 {
	if cfg.VatPercent != nil {
		return *cfg.VatPercent
	}
	return e.ref.VatPercent
}
