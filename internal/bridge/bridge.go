// Package bridge holds the JSON-in, JSON-out plumbing shared by the C and
// WebAssembly bindings.
package bridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmylchreest/plink/pkg/cleaner"
	"github.com/jmylchreest/plink/pkg/rules"
)

// Config is the JSON accepted by the bindings when building a cleaner.
// Option fields left out keep their default values.
type Config struct {
	cleaner.Options

	// Preset "strict" adds the PresetStrict parameter list.
	Preset string `json:"preset,omitempty"`

	// RulesPath loads a rule database from disk instead of the embedded one.
	RulesPath string `json:"rules_path,omitempty"`
}

// ParseConfig decodes configJSON over the defaults. An empty string yields
// the defaults.
func ParseConfig(configJSON string) (Config, error) {
	cfg := Config{Options: cleaner.DefaultOptions()}
	if configJSON == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid cleaner config: %w", err)
	}
	switch cfg.Preset {
	case "", "default", "strict":
	default:
		return Config{}, fmt.Errorf("unknown preset: %s", cfg.Preset)
	}
	return cfg, nil
}

// Build creates the cleaner described by cfg.
func (cfg Config) Build() (*cleaner.Cleaner, error) {
	opts := cfg.Options
	if cfg.Preset == "strict" {
		opts = cleaner.PresetStrict().Merge(opts)
	}
	if cfg.RulesPath == "" {
		return cleaner.NewDefault(opts)
	}
	db, err := rules.FromFile(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	return cleaner.New(db, opts)
}

// NewCleaner parses configJSON and builds the cleaner.
func NewCleaner(configJSON string) (*cleaner.Cleaner, error) {
	cfg, err := ParseConfig(configJSON)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

// Default returns the shared cleaner with default options.
var Default = sync.OnceValues(func() (*cleaner.Cleaner, error) {
	return cleaner.NewDefault(cleaner.DefaultOptions())
})

// CleanJSON cleans rawURL and returns the result as JSON.
func CleanJSON(c *cleaner.Cleaner, rawURL string) (string, error) {
	res, err := c.Clean(rawURL)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DefaultOptionsJSON returns the default options as JSON.
func DefaultOptionsJSON() string {
	data, _ := json.Marshal(cleaner.DefaultOptions())
	return string(data)
}

// Cache reuses cleaners across calls with the same configuration, so
// callers passing options on every call do not recompile the rules each
// time.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*cleaner.Cleaner
}

// NewCache creates a cache holding at most max cleaners.
func NewCache(max int) *Cache {
	if max < 1 {
		max = 1
	}
	return &Cache{max: max, entries: make(map[string]*cleaner.Cleaner)}
}

// Get returns the cleaner for configJSON, building it on first use.
func (c *Cache) Get(configJSON string) (*cleaner.Cleaner, error) {
	cfg, err := ParseConfig(configJSON)
	if err != nil {
		return nil, err
	}
	keyBytes, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	key := string(keyBytes)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.entries[key]; ok {
		return cl, nil
	}
	cl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if len(c.entries) >= c.max {
		clear(c.entries)
	}
	c.entries[key] = cl
	return cl, nil
}

// Len returns the number of cached cleaners.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RulesInfo summarizes a rule database.
type RulesInfo struct {
	Path          string   `json:"path,omitempty"`
	Providers     int      `json:"providers"`
	Patterns      int      `json:"patterns"`
	Active        int      `json:"active"`
	CompileErrors []string `json:"compile_errors,omitempty"`
}

// DescribeRules loads the database at path, or the embedded one when path
// is empty, and compiles it.
func DescribeRules(path string) (*RulesInfo, error) {
	var (
		db  *rules.Database
		err error
	)
	if path == "" {
		db, err = rules.Default()
	} else {
		db, err = rules.FromFile(path)
	}
	if err != nil {
		return nil, err
	}

	c, err := cleaner.New(db, cleaner.DefaultOptions())
	if err != nil {
		return nil, err
	}
	info := &RulesInfo{
		Path:      path,
		Providers: db.Len(),
		Patterns:  db.PatternCount(),
		Active:    len(c.Providers()),
	}
	for _, e := range c.CompileErrors() {
		info.CompileErrors = append(info.CompileErrors, e.Error())
	}
	return info, nil
}
