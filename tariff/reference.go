package tariff

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/orinocoz/energymeter/calendar"
	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/slice"
)

//go:embed defaults.json
var embeddedDefaults []byte

type PeakWindows struct {
	Weekday []calendar.TimeWindow `json:"weekday"`
	RestDay []calendar.TimeWindow `json:"restDay"`
}

// Reference is the static defaults document: default fees, day hours,
// network packages, national fee schedules, holidays and display labels.
type Reference struct {
	Timezone        string                 `json:"timezone"`
	Fees            Config                 `json:"fees"`
	VatPercent      float64                `json:"vatPercent"`
	DayHours        DayHours               `json:"dayHours"`
	DayWindow       calendar.TimeWindow    `json:"dayWindow"`
	WinterMonths    []int                  `json:"winterMonths"`
	PeakWindows     PeakWindows            `json:"peakWindows"`
	NetworkPackages []NetworkPackage       `json:"networkPackages"`
	NationalFees    NationalFees           `json:"nationalFees"`
	Holidays        []calendar.HolidayRule `json:"holidays"`
	Labels          map[string]string      `json:"labels"`
	Units           map[string]string      `json:"units"`
}

// LoadReference reads the defaults document from path, or the embedded
// document when path is empty.
func LoadReference(path string) (*Reference, error) {
	if path == "" {
		return ParseReference(embeddedDefaults)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read defaults document %s: %w", path, err)
	}
	return ParseReference(data)
}

func ParseReference(data []byte) (*Reference, error) {
	var ref Reference
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("decode defaults document: %w", err)
	}
	ref.applyDefaults()
	return &ref, nil
}

func (r *Reference) applyDefaults() {
	if r.Timezone == "" {
		r.Timezone = "Europe/Tallinn"
	}
	if r.VatPercent == 0 && r.Fees.VatPercent != nil {
		r.VatPercent = *r.Fees.VatPercent
	}
	if r.DayHours == (DayHours{}) {
		r.DayHours = DayHours{Start: 7, End: 23}
	}
	if r.DayWindow == (calendar.TimeWindow{}) {
		r.DayWindow = r.DayHours.Window()
	}
	if len(r.WinterMonths) == 0 {
		r.WinterMonths = []int{11, 12, 1, 2, 3}
	}
}

// Location returns the market time zone, Tallinn if the configured one is unknown.
func (r *Reference) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return hours.Tallinn()
	}
	return loc
}

func (r *Reference) Package(id string) (NetworkPackage, bool) {
	return slice.Find(r.NetworkPackages, func(p NetworkPackage) bool { return p.ID == id })
}

// Problems lists entries that will be ignored at runtime. None of them are fatal.
func (r *Reference) Problems() []error {
	var errs []error
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", r.Timezone, err))
	}
	if err := r.DayWindow.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("day window: %w", err))
	}
	for _, w := range append(append([]calendar.TimeWindow{}, r.PeakWindows.Weekday...), r.PeakWindows.RestDay...) {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("peak window: %w", err))
		}
	}
	for _, m := range r.WinterMonths {
		if m < 1 || m > 12 {
			errs = append(errs, fmt.Errorf("winter month %d out of range", m))
		}
	}
	for _, p := range r.NetworkPackages {
		for _, period := range p.Periods {
			if !period.IsValid() {
				errs = append(errs, fmt.Errorf("package %s: unknown period %q", p.ID, period))
			}
		}
	}
	fees := map[string]DatedFee{
		"renewableSurcharge":   r.NationalFees.RenewableSurcharge,
		"exciseTax":            r.NationalFees.ExciseTax,
		"securityOfSupplyFee":  r.NationalFees.SecurityOfSupplyFee,
		"balancingCapacityFee": r.NationalFees.BalancingCapacityFee,
	}
	for name, fee := range fees {
		for _, c := range fee.Changes {
			if _, err := hours.ParseDate(c.EffectiveFrom); err != nil {
				errs = append(errs, fmt.Errorf("national fee %s: %w", name, err))
			}
		}
	}
	return errs
}

func (d DayHours) Window() calendar.TimeWindow {
	return calendar.TimeWindow{
		Start: fmt.Sprintf("%02d:00", d.Start),
		End:   fmt.Sprintf("%02d:00", d.End),
	}
}
