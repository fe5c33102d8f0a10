package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/orinocoz/energymeter/tariff"
)

const storageKey = "settings"

// Store is the key-value persistence behind the settings.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SaveSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// Load returns the persisted settings, or nil when nothing is stored.
func Load(ctx context.Context, store Store) (*Settings, error) {
	raw, ok, err := store.GetSetting(ctx, storageKey)
	if err != nil || !ok {
		return nil, err
	}
	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode persisted settings: %w", err)
	}
	return &s, nil
}

func Save(ctx context.Context, store Store, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return store.SaveSetting(ctx, storageKey, string(data))
}

// Manager holds the resolved settings. Readers get copies, updates
// replace the whole value.
type Manager struct {
	logger   *slog.Logger
	store    Store
	ref      *tariff.Reference
	defaults Settings

	mu      sync.RWMutex
	current Settings
}

// NewManager resolves the settings from the defaults and the store. An
// unreadable stored value is logged and ignored.
func NewManager(ctx context.Context, store Store, ref *tariff.Reference, prefs Prefs) *Manager {
	m := &Manager{
		logger:   slog.Default().With(slog.String("module", "settings")),
		store:    store,
		ref:      ref,
		defaults: Defaults(ref, prefs),
	}
	persisted, err := Load(ctx, store)
	if err != nil {
		m.logger.Warn("ignoring persisted settings", slog.Any("error", err))
		persisted = nil
	}
	m.current = Resolve(m.defaults, persisted, ref)
	if err := m.current.Validate(ref); err != nil {
		m.logger.Warn("persisted settings are invalid, using defaults", slog.Any("error", err))
		m.current = Resolve(m.defaults, nil, ref)
	}
	return m
}

func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

func (m *Manager) Defaults() Settings {
	return Resolve(m.defaults, nil, m.ref)
}

// Update applies a JSON patch onto the current settings. Fields missing
// from the patch keep their value, null clears an optional fee.
func (m *Manager) Update(ctx context.Context, patch []byte) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current.Clone()
	if err := json.Unmarshal(patch, &next); err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	applyPackage(&next.Tariff, m.ref)
	if err := next.Validate(m.ref); err != nil {
		return Settings{}, err
	}
	if err := Save(ctx, m.store, next); err != nil {
		return Settings{}, err
	}
	m.current = next
	m.logger.Info("settings updated", slog.String("package", next.Tariff.PackageID()), slog.Int("resolution", next.Resolution))
	return next.Clone(), nil
}

// Reset removes the persisted settings and returns to the defaults.
func (m *Manager) Reset(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteSetting(ctx, storageKey); err != nil {
		return Settings{}, err
	}
	m.current = m.Defaults()
	m.logger.Info("settings reset to defaults")
	return m.current.Clone(), nil
}
