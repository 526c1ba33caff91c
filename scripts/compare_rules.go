// compare_rules.go - Compare how two rule databases clean the same URLs
//
// Usage: go run scripts/compare_rules.go <rules-a> [rules-b] < urls.txt
//
// With one database, the embedded rules are compared against it.
//
// Example:
//   plink rules update --out /tmp/latest.json
//   go run scripts/compare_rules.go /tmp/latest.json < urls.txt

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jmylchreest/plink/pkg/cleaner"
	"github.com/jmylchreest/plink/pkg/rules"
)

func load(path string) *cleaner.Cleaner {
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
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", label(path), err)
		os.Exit(1)
	}

	c, err := cleaner.New(db, cleaner.DefaultOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error compiling %s: %v\n", label(path), err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d providers, %d skipped\n", label(path), len(c.Providers()), len(c.CompileErrors()))
	return c
}

func label(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

func describe(c *cleaner.Cleaner, raw string) string {
	res, err := c.Clean(raw)
	if err != nil {
		return "error: " + err.Error()
	}
	switch {
	case res.Cancel:
		return "blocked"
	case res.Redirect:
		return "redirect " + res.String()
	}
	return res.String()
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/compare_rules.go <rules-a> [rules-b] < urls.txt")
		os.Exit(1)
	}

	pathA, pathB := "", os.Args[1]
	if len(os.Args) > 2 {
		pathA, pathB = os.Args[1], os.Args[2]
	}
	a, b := load(pathA), load(pathB)
	fmt.Println()

	var total, differ int
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		total++

		outA, outB := describe(a, raw), describe(b, raw)
		if outA == outB {
			continue
		}
		differ++
		fmt.Println(raw)
		fmt.Printf("  %s: %s\n", label(pathA), outA)
		fmt.Printf("  %s: %s\n", label(pathB), outB)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading URLs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%d of %d URLs cleaned differently\n", differ, total)
}
