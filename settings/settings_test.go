package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orinocoz/energymeter/optimize"
	"github.com/orinocoz/energymeter/tariff"
)

type memStore struct {
	values map[string]string
	err    error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) SaveSetting(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *memStore) DeleteSetting(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func reference(t *testing.T) *tariff.Reference {
	t.Helper()
	ref, err := tariff.LoadReference("")
	require.NoError(t, err)
	return ref
}

var prefs = Prefs{Resolution: 60, DurationHours: 2, Mode: optimize.ModeConsecutive}

func TestDefaults(t *testing.T) {
	ref := reference(t)
	s := Defaults(ref, Prefs{Resolution: 30, DurationHours: 0.25, Mode: "fastest"})

	assert.Equal(t, 60, s.Resolution)
	assert.Equal(t, 2.0, s.DurationHours)
	assert.Equal(t, optimize.ModeConsecutive, s.Mode)
	assert.Equal(t, "vork2", s.Tariff.PackageID())
	assert.NoError(t, s.Validate(ref))
}

func TestResolvePrecedence(t *testing.T) {
	ref := reference(t)
	defaults := Defaults(ref, prefs)

	persisted := &Settings{
		Tariff:        tariff.Config{ExciseTax: tariff.Float(0.5), NetworkPackageID: tariff.String("vork4")},
		DurationHours: 3,
		Mode:          optimize.ModeCheapest,
	}
	s := Resolve(defaults, persisted, ref)

	assert.Equal(t, 0.5, *s.Tariff.ExciseTax, "persisted wins over defaults")
	assert.Equal(t, 0.84, *s.Tariff.RenewableSurcharge, "defaults fill the gaps")
	assert.Equal(t, 3.0, s.DurationHours)
	assert.Equal(t, 60, s.Resolution)
	assert.Equal(t, optimize.ModeCheapest, s.Mode)
	assert.Equal(t, 3.69, *s.Tariff.TransferDay, "package rates override the legacy fields")
	assert.Equal(t, 2.10, *s.Tariff.TransferNight)

	assert.Equal(t, 3.95, *defaults.Tariff.TransferDay, "defaults are not modified")
}

func TestResolveFlatPackage(t *testing.T) {
	ref := reference(t)
	s := Resolve(Defaults(ref, prefs), &Settings{Tariff: tariff.Config{NetworkPackageID: tariff.String("vork1")}}, ref)
	assert.Equal(t, 7.72, *s.Tariff.TransferDay)
	assert.Equal(t, 7.72, *s.Tariff.TransferNight)
}

func TestValidate(t *testing.T) {
	ref := reference(t)
	valid := Defaults(ref, prefs)

	tests := []struct {
		name   string
		modify func(s *Settings)
	}{
		{"resolution", func(s *Settings) { s.Resolution = 5 }},
		{"duration", func(s *Settings) { s.DurationHours = 0.5 }},
		{"mode", func(s *Settings) { s.Mode = "fast" }},
		{"kwh", func(s *Settings) { s.KWh = -1 }},
		{"vat", func(s *Settings) { s.Tariff.VatPercent = tariff.Float(120) }},
		{"package", func(s *Settings) { s.Tariff.NetworkPackageID = tariff.String("vork9") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid.Clone()
			tt.modify(&s)
			err := s.Validate(ref)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	ref := reference(t)
	store := newMemStore()

	m := NewManager(ctx, store, ref, prefs)
	assert.Equal(t, "vork2", m.Current().Tariff.PackageID())

	s, err := m.Update(ctx, []byte(`{"tariff":{"networkPackageId":null,"exciseTax":0.3},"resolution":15,"durationHours":0.75}`))
	require.NoError(t, err)
	assert.False(t, s.Tariff.HasPackage())
	assert.Equal(t, 0.3, *s.Tariff.ExciseTax)
	assert.Equal(t, 15, s.Resolution)
	assert.Equal(t, 0.84, *s.Tariff.RenewableSurcharge, "fields missing from the patch are kept")

	// A new manager picks up the persisted value.
	m2 := NewManager(ctx, store, ref, prefs)
	assert.Equal(t, 15, m2.Current().Resolution)
	assert.False(t, m2.Current().Tariff.HasPackage())

	_, err = m.Update(ctx, []byte(`{"durationHours":0.1}`))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 0.75, m.Current().DurationHours, "failed updates change nothing")

	_, err = m.Update(ctx, []byte(`{`))
	assert.ErrorIs(t, err, ErrInvalid)

	s, err = m.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, s.Resolution)
	assert.Equal(t, "vork2", s.Tariff.PackageID())
	_, ok := store.values[storageKey]
	assert.False(t, ok)
}

func TestManagerCurrentIsACopy(t *testing.T) {
	m := NewManager(context.Background(), newMemStore(), reference(t), prefs)
	s := m.Current()
	*s.Tariff.ExciseTax = 99
	assert.NotEqual(t, 99.0, *m.Current().Tariff.ExciseTax)
}

func TestManagerIgnoresBrokenStore(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.values[storageKey] = `{"resolution": "sixty"}`

	m := NewManager(ctx, store, reference(t), prefs)
	assert.Equal(t, 60, m.Current().Resolution)

	store.values[storageKey] = `{"resolution": 7}`
	m = NewManager(ctx, store, reference(t), prefs)
	assert.Equal(t, 60, m.Current().Resolution, "invalid persisted settings fall back to defaults")

	store.err = errors.New("disk full")
	m = NewManager(ctx, store, reference(t), prefs)
	_, err := m.Update(ctx, []byte(`{"kwh": 5}`))
	assert.Error(t, err)
}
