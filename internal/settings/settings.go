package settings

import (
	"fmt"
	"sync"

	"github.com/imrishuroy/go-table-orders/internal/store"
)

// CollectionName is the store collection holding the settings document.
const CollectionName = "settings"

// DefaultMaxTables applies when the settings file carries no positive value.
const DefaultMaxTables = 20

// Settings mirrors the admin settings document. Only MaxTables is read by
// the order core; the station toggles are carried so the file round-trips.
type Settings struct {
	MaxTables           int    `json:"maxTables"`
	PizzeriaMenuEnabled bool   `json:"pizzeriaMenuEnabled"`
	PubEssenEnabled     bool   `json:"pubEssenEnabled"`
	PubTrinkenEnabled   bool   `json:"pubTrinkenEnabled"`
	PubClosed           bool   `json:"pubClosed"`
	Logo                string `json:"logo,omitempty"`
	Background          string `json:"background,omitempty"`
}

// Defaults is written on first boot.
func Defaults() Settings {
	return Settings{
		MaxTables:           DefaultMaxTables,
		PizzeriaMenuEnabled: true,
		PubEssenEnabled:     true,
		PubTrinkenEnabled:   true,
	}
}

// Provider serves the current settings to the order core.
type Provider struct {
	mu  sync.RWMutex
	cur Settings
}

// Load reads the settings document from l.
func Load(l store.Loader) (*Provider, error) {
	var s Settings
	if err := l.Load(CollectionName, Defaults(), &s); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return NewProvider(s), nil
}

// NewProvider serves s as-is; a non-positive MaxTables reads as DefaultMaxTables.
func NewProvider(s Settings) *Provider {
	return &Provider{cur: s}
}

// MaxTables returns the highest valid table number.
func (p *Provider) MaxTables() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cur.MaxTables < 1 {
		return DefaultMaxTables
	}
	return p.cur.MaxTables
}

// Current returns a copy of the settings.
func (p *Provider) Current() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur
}
