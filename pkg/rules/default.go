package rules

import (
	_ "embed"
	"sync"
)

//go:generate go run ../../cmd/plink rules update --out data/clearurls.json

// defaultData is the ruleset compiled into the binary: a curated set of
// common providers plus globalRules, in the upstream ClearURLs format. The
// CLI prefers a full database fetched with `plink rules update`;
// `go generate` replaces this one with it.
//
//go:embed data/clearurls.json
var defaultData []byte

var loadDefault = sync.OnceValues(func() (*Database, error) {
	return FromJSON(defaultData)
})

// Default returns a copy of the embedded rule database.
func Default() (*Database, error) {
	db, err := loadDefault()
	if err != nil {
		return nil, err
	}
	return db.Clone(), nil
}

// DefaultData returns the raw bytes of the embedded rule database.
func DefaultData() []byte {
	out := make([]byte, len(defaultData))
	copy(out, defaultData)
	return out
}
