package rules

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Published locations of the ClearURLs ruleset and its SHA-256 digest.
const (
	DefaultSourceURL = "https://rules2.clearurls.xyz/data.minify.json"
	DefaultHashURL   = "https://rules2.clearurls.xyz/rules.minify.hash"
)

// maxDatabaseSize bounds the download; the upstream ruleset is well under 1 MiB.
const maxDatabaseSize = 16 << 20

// UpdateOptions configures Update.
type UpdateOptions struct {
	// SourceURL is the rule database location. Defaults to DefaultSourceURL.
	SourceURL string

	// HashURL serves the expected hex SHA-256 of the database. Empty skips
	// verification.
	HashURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Client performs the requests. Defaults to a client with a 30s timeout.
	Client *http.Client
}

// UpdateResult describes a completed update.
type UpdateResult struct {
	Path      string `json:"path"`
	SHA256    string `json:"sha256"`
	Verified  bool   `json:"verified"`
	Bytes     int64  `json:"bytes"`
	Providers int    `json:"providers"`
}

// Update downloads a rule database, verifies its digest when a hash URL is
// set, checks that it parses and validates, then atomically replaces dest.
// dest is left untouched on any failure.
func Update(ctx context.Context, dest string, opts UpdateOptions) (*UpdateResult, error) {
	if opts.SourceURL == "" {
		opts.SourceURL = DefaultSourceURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}

	var expected string
	if opts.HashURL != "" {
		raw, err := fetch(ctx, opts, opts.HashURL, 1024)
		if err != nil {
			return nil, fmt.Errorf("fetch hash: %w", err)
		}
		fields := strings.Fields(string(raw))
		if len(fields) == 0 {
			return nil, fmt.Errorf("fetch hash: empty response from %s", opts.HashURL)
		}
		expected = strings.ToLower(fields[0])
	}

	data, err := fetch(ctx, opts, opts.SourceURL, maxDatabaseSize)
	if err != nil {
		return nil, fmt.Errorf("fetch rule database: %w", err)
	}

	sum := sha256.Sum256(data)
	actual := hex.EncodeToString(sum[:])
	if expected != "" && actual != expected {
		return nil, fmt.Errorf("sha256 mismatch: got %s, want %s", actual, expected)
	}

	db, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(dest, data); err != nil {
		return nil, fmt.Errorf("write rule database: %w", err)
	}

	return &UpdateResult{
		Path:      dest,
		SHA256:    actual,
		Verified:  expected != "",
		Bytes:     int64(len(data)),
		Providers: db.Len(),
	}, nil
}

func fetch(ctx context.Context, opts UpdateOptions, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}

	resp, err := opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, limit)
	}
	return buf.Bytes(), nil
}

func writeAtomic(dest string, data []byte) (retErr error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".plink-rules-*")
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp.Name()) // partial write
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
