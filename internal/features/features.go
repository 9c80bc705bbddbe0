package features

import (
	"sort"
	"sync"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{
		flags: make(map[string]*FeatureFlag),
	}
}

// Settings carries the configured state of the predefined flags.
type Settings struct {
	TradePreview      bool
	ButtonAffordances bool
	EventHooks        bool
	DevTokens         bool
}

// NewDefaultManager registers every predefined flag with the given state.
func NewDefaultManager(s Settings) *Manager {
	m := NewManager()
	m.Register(FeatureTradePreview, s.TradePreview, "show a read-only preview before publishing an onboarding trade")
	m.Register(FeatureButtonAffordances, s.ButtonAffordances, "allow like/skip button presses on decks in addition to gestures")
	m.Register(FeatureEventHooks, s.EventHooks, "publish domain events to subscribed hooks")
	m.Register(FeatureDevTokens, s.DevTokens, "expose the development token issuer")
	return m
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return false
	}

	return flag.Enabled
}

// Apply sets the predefined flags to s, as after a configuration reload.
func (m *Manager) Apply(s Settings) {
	m.Set(FeatureTradePreview, s.TradePreview)
	m.Set(FeatureButtonAffordances, s.ButtonAffordances)
	m.Set(FeatureEventHooks, s.EventHooks)
	m.Set(FeatureDevTokens, s.DevTokens)
}

// Set switches a registered flag. Unknown names are ignored.
func (m *Manager) Set(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = enabled
	}
}

// GetAll returns copies of all feature flags sorted by name.
func (m *Manager) GetAll() []FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]FeatureFlag, 0, len(m.flags))
	for _, v := range m.flags {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Predefined feature flag names
const (
	// FeatureTradePreview inserts the preview phase after the last onboarding step
	FeatureTradePreview = "trade_preview"
	// FeatureButtonAffordances enables the like/skip button endpoints
	FeatureButtonAffordances = "button_affordances"
	// FeatureEventHooks enables event-driven hooks
	FeatureEventHooks = "event_hooks"
	// FeatureDevTokens enables POST /auth/token
	FeatureDevTokens = "dev_tokens"
)
