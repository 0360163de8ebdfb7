package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"

	"smc_bot/internal/smc"
)

// Settings are the operator's analysis toggles.
type Settings struct {
	smc.Config   `yaml:",inline"`
	NewsAnalysis bool `yaml:"news_analysis" json:"newsAnalysis"`
	AutoGenerate bool `yaml:"auto_generate" json:"autoGenerate"`
}

func DefaultSettings() Settings {
	return Settings{
		Config:       smc.DefaultConfig(),
		NewsAnalysis: true,
		AutoGenerate: false,
	}
}

func (s *Settings) toggles() map[string]*bool {
	return map[string]*bool{
		"order_blocks":     &s.OrderBlocks,
		"fvg":              &s.FVG,
		"bos":              &s.BOS,
		"choch":            &s.CHoCH,
		"liquidity":        &s.Liquidity,
		"market_structure": &s.MarketStructure,
		"news_analysis":    &s.NewsAnalysis,
		"auto_generate":    &s.AutoGenerate,
	}
}

// ToggleNames lists the accepted toggle names, sorted.
func ToggleNames() []string {
	var s Settings
	names := make([]string, 0, 8)
	for k := range s.toggles() {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SettingsStore keeps the toggles in a YAML file. An empty path keeps them
// in memory only.
type SettingsStore struct {
	path string

	mu  sync.RWMutex
	cur Settings
}

// NewSettingsStore loads path; a missing file yields the defaults.
func NewSettingsStore(path string) (*SettingsStore, error) {
	st := &SettingsStore{path: path, cur: DefaultSettings()}
	if path == "" {
		return st, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(raw, &st.cur); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return st, nil
}

func (st *SettingsStore) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.cur
}

// Set replaces the settings and saves them.
func (st *SettingsStore) Set(s Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.saveLocked(s); err != nil {
		return err
	}
	st.cur = s
	return nil
}

// Toggle flips one setting by name ("fvg", "auto_generate", ...) and returns
// the new value.
func (st *SettingsStore) Toggle(name string) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.cur
	p, ok := next.toggles()[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return false, fmt.Errorf("unknown setting %q, expected one of %s", name, strings.Join(ToggleNames(), ", "))
	}
	*p = !*p
	if err := st.saveLocked(next); err != nil {
		return false, err
	}
	st.cur = next
	return *p, nil
}

func (st *SettingsStore) saveLocked(s Settings) error {
	if st.path == "" {
		return nil
	}
	raw, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
