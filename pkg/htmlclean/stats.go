package htmlclean

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Stats captures what the rewriter did to a document.
type Stats struct {
	InputBytes  int `json:"input_bytes"`
	OutputBytes int `json:"output_bytes"`

	LinksSeen       int `json:"links_seen"`
	LinksSkipped    int `json:"links_skipped"` // relative, fragment or non-http
	LinksChanged    int `json:"links_changed"`
	LinksRedirected int `json:"links_redirected"`
	LinksBlocked    int `json:"links_blocked"`
	LinksFailed     int `json:"links_failed"`

	// RulesFired counts rule identifiers across every changed link.
	RulesFired map[string]int `json:"rules_fired"`

	ParseDuration   time.Duration `json:"parse_duration_ms"`
	RewriteDuration time.Duration `json:"rewrite_duration_ms"`
	TotalDuration   time.Duration `json:"total_duration_ms"`
}

// NewStats creates a new Stats instance with initialized maps.
func NewStats() *Stats {
	return &Stats{RulesFired: make(map[string]int)}
}

func (s *Stats) recordRules(rules []string) {
	for _, r := range rules {
		s.RulesFired[r]++
	}
}

// String returns a human-readable summary of the stats.
func (s *Stats) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Links: %d seen, %d changed, %d redirected, %d blocked, %d failed, %d skipped\n",
		s.LinksSeen, s.LinksChanged, s.LinksRedirected, s.LinksBlocked, s.LinksFailed, s.LinksSkipped))

	if len(s.RulesFired) > 0 {
		names := make([]string, 0, len(s.RulesFired))
		for name := range s.RulesFired {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%d", name, s.RulesFired[name]))
		}
		sb.WriteString("Rules: " + strings.Join(parts, ", ") + "\n")
	}

	sb.WriteString(fmt.Sprintf("Timing: parse=%v, rewrite=%v, total=%v\n",
		s.ParseDuration.Round(time.Microsecond),
		s.RewriteDuration.Round(time.Microsecond),
		s.TotalDuration.Round(time.Microsecond)))
	return sb.String()
}

// Warning represents a link that could not be rewritten, or was blocked.
type Warning struct {
	Phase   string `json:"phase"`   // "parse", "clean", "output"
	Message string `json:"message"` // Human-readable description
	Context string `json:"context"` // Offending link
}

// String returns a formatted warning message.
func (w Warning) String() string {
	if w.Context != "" {
		return fmt.Sprintf("[%s] %s (context: %s)", w.Phase, w.Message, w.Context)
	}
	return fmt.Sprintf("[%s] %s", w.Phase, w.Message)
}

// Result contains the rewritten document.
type Result struct {
	// Content is the rewritten document. On parse or output errors it is
	// the original input.
	Content string `json:"content"`

	Stats    *Stats    `json:"stats"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// AddWarning adds a warning to the result.
func (r *Result) AddWarning(phase, message, context string) {
	r.Warnings = append(r.Warnings, Warning{
		Phase:   phase,
		Message: message,
		Context: context,
	})
}

// HasWarnings returns true if any warnings were recorded.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}
