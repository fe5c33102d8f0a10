package settings

import (
	"errors"
	"fmt"
	"math"

	"github.com/orinocoz/energymeter/optimize"
	"github.com/orinocoz/energymeter/series"
	"github.com/orinocoz/energymeter/tariff"
)

var ErrInvalid = errors.New("invalid settings")

type Display struct {
	ShowMargins bool `json:"showMargins"` // Show the full price including margins
	ShowPast    bool `json:"showPast"`    // Include past slots of today in the series
}

// Settings is everything a user can change: the tariff configuration and
// the preferences used for best window selection and display.
type Settings struct {
	Tariff        tariff.Config `json:"tariff"`
	Resolution    int           `json:"resolution"`    // Minutes, 15 or 60
	DurationHours float64       `json:"durationHours"` // Best window length
	Mode          optimize.Mode `json:"mode"`
	KWh           float64       `json:"kwh"` // Consumption for the cost calculator
	Display       Display       `json:"display"`
}

// Prefs are the server side defaults for the non-tariff settings.
type Prefs struct {
	Resolution    int
	DurationHours float64
	Mode          optimize.Mode
}

func (s Settings) Clone() Settings {
	res := s
	res.Tariff = s.Tariff.Clone()
	return res
}

// Defaults builds settings from the reference document and preferences.
func Defaults(ref *tariff.Reference, prefs Prefs) Settings {
	s := Settings{
		Tariff:        ref.Fees.Clone(),
		Resolution:    prefs.Resolution,
		DurationHours: prefs.DurationHours,
		Mode:          prefs.Mode,
		KWh:           10,
		Display:       Display{ShowPast: true},
	}
	if !series.ValidResolution(s.Resolution) {
		s.Resolution = 60
	}
	if _, ok := optimize.DurationSlots(s.DurationHours, s.Resolution); !ok {
		s.DurationHours = 2
	}
	if !s.Mode.IsValid() {
		s.Mode = optimize.ModeConsecutive
	}
	return s
}

// Resolve populates settings in order: defaults, then persisted values,
// then overrides derived from the selected network package.
func Resolve(defaults Settings, persisted *Settings, ref *tariff.Reference) Settings {
	res := defaults.Clone()
	if persisted != nil {
		res.Tariff = res.Tariff.Overlay(persisted.Tariff)
		if persisted.Resolution != 0 {
			res.Resolution = persisted.Resolution
		}
		if persisted.DurationHours != 0 {
			res.DurationHours = persisted.DurationHours
		}
		if persisted.Mode != "" {
			res.Mode = persisted.Mode
		}
		if persisted.KWh != 0 {
			res.KWh = persisted.KWh
		}
		res.Display = persisted.Display
	}
	applyPackage(&res.Tariff, ref)
	return res
}

// applyPackage mirrors the package rates into the legacy day and night
// fields so that they show what is actually charged.
func applyPackage(cfg *tariff.Config, ref *tariff.Reference) {
	if !cfg.HasPackage() {
		return
	}
	pkg, ok := ref.Package(cfg.PackageID())
	if !ok {
		return
	}
	if pkg.IsFlatOnly() {
		if r, ok := pkg.Rate(tariff.PeriodFlat); ok {
			cfg.TransferDay = tariff.Float(r)
			cfg.TransferNight = tariff.Float(r)
		}
		return
	}
	if r, ok := pkg.Rate(tariff.PeriodDay); ok {
		cfg.TransferDay = tariff.Float(r)
	}
	if r, ok := pkg.Rate(tariff.PeriodNight); ok {
		cfg.TransferNight = tariff.Float(r)
	}
}

// Validate checks the settings against the reference data. The returned
// error wraps ErrInvalid.
func (s Settings) Validate(ref *tariff.Reference) error {
	var errs []error
	if !series.ValidResolution(s.Resolution) {
		errs = append(errs, fmt.Errorf("resolution must be 15 or 60 minutes, got %d", s.Resolution))
	} else if _, ok := optimize.DurationSlots(s.DurationHours, s.Resolution); !ok {
		errs = append(errs, fmt.Errorf("duration %v h is not a positive multiple of %d minutes", s.DurationHours, s.Resolution))
	}
	if !s.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("unknown mode %q", s.Mode))
	}
	if s.KWh < 0 || math.IsNaN(s.KWh) {
		errs = append(errs, fmt.Errorf("kwh must not be negative"))
	}

	fees := map[string]*float64{
		"transferDay":          s.Tariff.TransferDay,
		"transferNight":        s.Tariff.TransferNight,
		"renewableSurcharge":   s.Tariff.RenewableSurcharge,
		"exciseTax":            s.Tariff.ExciseTax,
		"securityOfSupplyFee":  s.Tariff.SecurityOfSupplyFee,
		"balancingCapacityFee": s.Tariff.BalancingCapacityFee,
		"purchaseMargin":       s.Tariff.PurchaseMargin,
		"salesMargin":          s.Tariff.SalesMargin,
	}
	for name, v := range fees {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			errs = append(errs, fmt.Errorf("%s must be a number", name))
		}
	}
	if v := s.Tariff.VatPercent; v != nil && (*v < 0 || *v > 100 || math.IsNaN(*v)) {
		errs = append(errs, fmt.Errorf("vatPercent must be between 0 and 100"))
	}
	if s.Tariff.HasPackage() {
		if _, ok := ref.Package(s.Tariff.PackageID()); !ok {
			errs = append(errs, fmt.Errorf("unknown network package %q", s.Tariff.PackageID()))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
