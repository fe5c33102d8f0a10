package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orinocoz/energymeter/calendar"
)

func tallinn(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Tallinn")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	require.NoError(t, err)
	return ts
}

func newEngine(t *testing.T, ref *Reference) *Engine {
	t.Helper()
	cal := calendar.NewResolver(ref.Location(), ref.Holidays)
	require.Empty(t, cal.Skipped())
	return NewEngine(ref, cal)
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	ref, err := LoadReference("")
	require.NoError(t, err)
	require.Empty(t, ref.Problems())
	return newEngine(t, ref)
}

const customReference = `{
  "vatPercent": 20,
  "peakWindows": { "restDay": [{ "start": "16:00", "end": "20:00" }] },
  "networkPackages": [
    { "id": "restonly", "periods": ["DAY", "NIGHT", "REST_PEAK"], "energyRatesExclVat": { "DAY": 4, "NIGHT": 2 } },
    { "id": "peakonly", "periods": ["DAY_PEAK", "NIGHT"], "energyRatesExclVat": { "DAY": 6, "NIGHT": 2 } },
    { "id": "norates", "periods": ["DAY", "NIGHT"], "energyRatesExclVat": {} }
  ]
}`

func TestClassify(t *testing.T) {
	c := defaultEngine(t).Classifier()

	tests := []struct {
		name    string
		pkg     string
		at      string
		expects Period
	}{
		{"flat package", "vork1", "2025-01-15 10:00", PeriodFlat},
		{"flat package on holiday", "vork1", "2025-02-24 10:00", PeriodFlat},
		{"weekday day", "vork2", "2025-01-15 10:00", PeriodDay},
		{"weekday late evening", "vork2", "2025-01-15 22:00", PeriodNight},
		{"weekday early morning", "vork2", "2025-01-15 06:59", PeriodNight},
		{"saturday", "vork2", "2025-01-18 10:00", PeriodNight},
		{"independence day", "vork2", "2025-02-24 10:00", PeriodNight},
		{"winter weekday peak", "vork5", "2025-01-15 10:00", PeriodDayPeak},
		{"winter weekday evening peak", "vork5", "2025-01-15 19:59", PeriodDayPeak},
		{"winter weekday between peaks", "vork5", "2025-01-15 13:00", PeriodDay},
		{"winter rest day peak", "vork5", "2025-01-18 17:00", PeriodRestPeak},
		{"winter holiday peak", "vork5", "2025-12-25 16:00", PeriodRestPeak},
		{"winter rest day off peak", "vork5", "2025-01-18 10:00", PeriodNight},
		{"summer weekday", "vork5", "2025-06-11 10:00", PeriodDay},
		{"summer saturday evening", "vork5", "2025-06-14 17:00", PeriodNight},
		{"unknown package uses legacy day hours", "missing", "2025-01-15 22:30", PeriodDay},
		{"unknown package at night", "missing", "2025-01-15 23:30", PeriodNight},
		{"unknown package on weekend", "missing", "2025-01-18 12:00", PeriodNight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expects, c.Classify(tt.pkg, tallinn(t, tt.at)))
		})
	}
}

func TestSpotOnlyPassthrough(t *testing.T) {
	e := defaultEngine(t)
	cfg := e.Reference().Fees.Clone()
	cfg.NetworkPackageID = nil

	for _, spot := range []float64{-3.21, 0, 0.1, 12.3456, 250} {
		at := tallinn(t, "2025-01-15 10:00")
		assert.Equal(t, spot, e.Total(spot, at, cfg))
		assert.Equal(t, spot, e.TotalWithMargins(spot, at, cfg))
		assert.True(t, e.Breakdown(spot, at, cfg).SpotOnly)
	}

	cfg.NetworkPackageID = String("")
	assert.Equal(t, 7.5, e.Total(7.5, tallinn(t, "2025-01-15 10:00"), cfg))
}

func TestExciseTaxSchedule(t *testing.T) {
	e := defaultEngine(t)
	cfg := Config{NetworkPackageID: String("vork2"), ExciseTax: Float(0.21)}

	before := e.Breakdown(10, tallinn(t, "2024-12-31 12:00"), cfg)
	after := e.Breakdown(10, tallinn(t, "2025-06-01 12:00"), cfg)

	assert.Equal(t, 0.21, before.ExciseTax)
	assert.Equal(t, 0.30, after.ExciseTax)
}

func TestDatedFeeBoundary(t *testing.T) {
	fee := DatedFee{Changes: []DatedValue{
		{EffectiveFrom: "2025-07-01", ExclVat: 0.758},
		{EffectiveFrom: "2025-01-01", ExclVat: 0.5},
		{EffectiveFrom: "not a date", ExclVat: 99},
	}}

	_, ok := fee.At(tallinn(t, "2024-12-31 23:59"))
	assert.False(t, ok)

	v, ok := fee.At(tallinn(t, "2025-01-01 00:00"))
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	v, _ = fee.At(tallinn(t, "2025-06-30 23:45"))
	assert.Equal(t, 0.5, v)

	v, _ = fee.At(tallinn(t, "2025-07-01 00:00"))
	assert.Equal(t, 0.758, v)
}

func TestTotal(t *testing.T) {
	e := defaultEngine(t)
	cfg := Config{
		NetworkPackageID: String("vork2"),
		PurchaseMargin:   Float(0.5),
		SalesMargin:      Float(0.25),
	}
	at := tallinn(t, "2025-01-15 10:00")

	b := e.Breakdown(10, at, cfg)
	assert.Equal(t, PeriodDay, b.Period)
	assert.Equal(t, 5.21, b.NetworkFee)
	assert.Equal(t, 0.84, b.RenewableSurcharge)
	assert.Equal(t, 0.30, b.ExciseTax)
	assert.Zero(t, b.SecurityOfSupplyFee, "not effective yet and not configured")
	assert.Zero(t, b.BalancingCapacityFee, "not effective yet and not configured")
	assert.Equal(t, 24.0, b.VatPercent, "reference VAT is used when unset")
	assert.InDelta(t, 16.35, b.Subtotal, 1e-9)
	assert.InDelta(t, 20.274, e.Total(10, at, cfg), 1e-9)
	assert.InDelta(t, 21.204, e.TotalWithMargins(10, at, cfg), 1e-9)

	cfg.VatPercent = Float(0)
	assert.InDelta(t, 16.35, e.Total(10, at, cfg), 1e-9)
}

func TestTotalWithEffectiveFees(t *testing.T) {
	e := defaultEngine(t)
	cfg := Config{
		NetworkPackageID:    String("vork2"),
		SecurityOfSupplyFee: Float(1),
		VatPercent:          Float(0),
	}

	b := e.Breakdown(0, tallinn(t, "2025-08-05 23:00"), cfg)
	assert.Equal(t, PeriodNight, b.Period)
	assert.Equal(t, 3.03, b.NetworkFee)
	assert.Equal(t, 0.758, b.SecurityOfSupplyFee, "schedule wins once effective")
	assert.Equal(t, 0.373, b.BalancingCapacityFee)

	b = e.Breakdown(0, tallinn(t, "2025-03-05 23:00"), cfg)
	assert.Equal(t, 1.0, b.SecurityOfSupplyFee, "configured value before the schedule starts")
}

func TestNetworkFeeFallback(t *testing.T) {
	ref, err := ParseReference([]byte(customReference))
	require.NoError(t, err)
	ref.Holidays = nil
	e := newEngine(t, ref)

	cfg := Config{TransferDay: Float(3.95), TransferNight: Float(2.30), VatPercent: Float(0)}

	tests := []struct {
		name    string
		pkg     string
		at      string
		period  Period
		network float64
	}{
		{"rest peak falls back to night", "restonly", "2025-01-18 17:00", PeriodRestPeak, 2},
		{"day peak package without peak window", "peakonly", "2025-01-15 10:00", PeriodDay, 6},
		{"missing rates use legacy day", "norates", "2025-01-15 10:00", PeriodDay, 3.95},
		{"missing rates use legacy night", "norates", "2025-01-15 23:30", PeriodNight, 2.30},
		{"unknown package uses legacy day", "unknown", "2025-01-15 22:30", PeriodDay, 3.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg.Clone()
			c.NetworkPackageID = String(tt.pkg)
			b := e.Breakdown(0, tallinn(t, tt.at), c)
			assert.Equal(t, tt.period, b.Period)
			assert.Equal(t, tt.network, b.NetworkFee)
		})
	}

	c := Config{NetworkPackageID: String("norates")}
	assert.Zero(t, e.Breakdown(0, tallinn(t, "2025-01-15 10:00"), c).NetworkFee)
	assert.Equal(t, 20.0, e.Breakdown(0, tallinn(t, "2025-01-15 10:00"), c).VatPercent)
}

func TestResolveFee(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	none := func(time.Time) (float64, bool) { return 0, false }
	one := func(time.Time) (float64, bool) { return 1, true }
	two := func(time.Time) (float64, bool) { return 2, true }

	assert.Zero(t, resolveFee(at))
	assert.Zero(t, resolveFee(at, none))
	assert.Equal(t, 1.0, resolveFee(at, none, one, two))
	assert.Equal(t, 2.0, resolveFee(at, two, one))
	assert.Equal(t, 0.5, resolveFee(at, fromConfig(nil), fromConfig(Float(0.5))))
}

func TestConfigOverlay(t *testing.T) {
	base := Config{TransferDay: Float(1), NetworkPackageID: String("vork2")}
	res := base.Overlay(Config{TransferDay: Float(2), ExciseTax: Float(0.3)})

	assert.Equal(t, 2.0, *res.TransferDay)
	assert.Equal(t, 0.3, *res.ExciseTax)
	assert.Equal(t, "vork2", res.PackageID())
	assert.Equal(t, 1.0, *base.TransferDay, "overlay must not modify the receiver")

	*res.TransferDay = 5
	assert.Equal(t, 1.0, *base.TransferDay)
}

func TestReferenceProblems(t *testing.T) {
	ref, err := ParseReference([]byte(`{
  "timezone": "Mars/Olympus",
  "winterMonths": [0, 12],
  "dayWindow": { "start": "7", "end": "22:00" },
  "networkPackages": [{ "id": "x", "periods": ["EVENING"] }],
  "nationalFees": { "exciseTax": { "changes": [{ "effectiveFrom": "soon", "exclVat": 1 }] } }
}`))
	require.NoError(t, err)
	assert.Len(t, ref.Problems(), 5)
	assert.Equal(t, "Europe/Tallinn", ref.Location().String())

	_, err = ParseReference([]byte(`{`))
	assert.Error(t, err)
}
