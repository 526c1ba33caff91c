// Package rules defines the rule database consumed by the URL cleaner.
//
// The database follows the ClearURLs data format: a "providers" object
// mapping a provider name to its definition. Provider order is significant,
// since the cleaner applies active providers in the order they appear in the
// source document, so Database keeps entries in insertion order instead of
// exposing a map.
package rules

import "errors"

// ErrMissingProviders is returned when a document has no "providers" object.
var ErrMissingProviders = errors.New("rule database has no providers object")

// Provider is the declarative definition of one provider, as found in the
// rule database. All patterns are regular expressions.
type Provider struct {
	URLPattern        string   `json:"urlPattern" yaml:"urlPattern" validate:"required"`
	Rules             []string `json:"rules,omitempty" yaml:"rules,omitempty" validate:"dive,required"`
	RawRules          []string `json:"rawRules,omitempty" yaml:"rawRules,omitempty" validate:"dive,required"`
	Exceptions        []string `json:"exceptions,omitempty" yaml:"exceptions,omitempty" validate:"dive,required"`
	Redirections      []string `json:"redirections,omitempty" yaml:"redirections,omitempty" validate:"dive,required"`
	ReferralMarketing []string `json:"referralMarketing,omitempty" yaml:"referralMarketing,omitempty" validate:"dive,required"`
	CompleteProvider  bool     `json:"completeProvider,omitempty" yaml:"completeProvider,omitempty"`

	// ForceRedirection tells a browser to navigate to the cleaned URL. It is
	// kept for fidelity with the source data; the cleaner never acts on it.
	ForceRedirection bool `json:"forceRedirection,omitempty" yaml:"forceRedirection,omitempty"`
}

// Entry is a named provider definition.
type Entry struct {
	Name     string
	Provider Provider
}

// Database is an ordered collection of provider definitions.
type Database struct {
	entries []Entry
	index   map[string]int
}

// New creates a database from the given entries, in order.
func New(entries ...Entry) *Database {
	db := &Database{}
	for _, e := range entries {
		db.Add(e.Name, e.Provider)
	}
	return db
}

// Add appends a provider. Adding a name that already exists replaces the
// definition but keeps its original position.
func (d *Database) Add(name string, p Provider) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[name]; ok {
		d.entries[i].Provider = p
		return
	}
	d.index[name] = len(d.entries)
	d.entries = append(d.entries, Entry{Name: name, Provider: p})
}

// Get returns the provider with the given name.
func (d *Database) Get(name string) (Provider, bool) {
	if d == nil {
		return Provider{}, false
	}
	i, ok := d.index[name]
	if !ok {
		return Provider{}, false
	}
	return d.entries[i].Provider, true
}

// Len returns the number of providers.
func (d *Database) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Names returns provider names in database order.
func (d *Database) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.entries))
	for i, e := range d.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the entries in database order.
func (d *Database) Entries() []Entry {
	if d == nil {
		return nil
	}
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Clone returns a deep copy of the database.
func (d *Database) Clone() *Database {
	if d == nil {
		return nil
	}
	clone := &Database{}
	for _, e := range d.entries {
		p := e.Provider
		p.Rules = cloneStrings(p.Rules)
		p.RawRules = cloneStrings(p.RawRules)
		p.Exceptions = cloneStrings(p.Exceptions)
		p.Redirections = cloneStrings(p.Redirections)
		p.ReferralMarketing = cloneStrings(p.ReferralMarketing)
		clone.Add(e.Name, p)
	}
	return clone
}

// PatternCount returns the total number of patterns across all providers.
func (d *Database) PatternCount() int {
	if d == nil {
		return 0
	}
	total := 0
	for _, e := range d.entries {
		p := e.Provider
		total += 1 + len(p.Rules) + len(p.RawRules) + len(p.Exceptions) +
			len(p.Redirections) + len(p.ReferralMarketing)
	}
	return total
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
