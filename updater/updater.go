/*
Package updater checks whether a newer release has been published.

PURPOSE:
  Fetches a small version manifest ({"version": "1.2.0", "message": ...})
  and compares it with the running version. It never downloads or
  installs anything and holds no ledger state, so a caller may abandon
  a check at any time.

USAGE:
  c := updater.New(url, "1.0.0", 10*time.Second)
  select {
  case out := <-c.CheckAsync(ctx):
      ...
  case <-time.After(time.Second):
      // give up; the goroutine finishes on its own
  }
*/
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const userAgent = "TextileAccounting/1.0"

// ErrInvalidVersion is returned for version strings that aren't dotted
// integers.
var ErrInvalidVersion = errors.New("invalid version")

// Manifest is the published version document.
type Manifest struct {
	Version string `json:"version"`
	Message string `json:"message"`
}

// Result is the outcome of one check.
type Result struct {
	Current   string   `json:"current_version"`
	Latest    Manifest `json:"latest"`
	Available bool     `json:"update_available"`
}

// Outcome is delivered by CheckAsync.
type Outcome struct {
	Result Result
	Err    error
}

type Checker struct {
	URL     string
	Current string
	Client  *http.Client
	now     func() time.Time
}

// New returns a checker whose requests time out after timeout.
func New(manifestURL, current string, timeout time.Duration) *Checker {
	return &Checker{
		URL:     manifestURL,
		Current: current,
		Client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Check fetches the manifest and compares versions.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	res := Result{Current: c.Current}

	u, err := url.Parse(c.URL)
	if err != nil {
		return res, fmt.Errorf("parse manifest url: %w", err)
	}
	// Defeat CDN caching of the manifest.
	q := u.Query()
	q.Set("t", strconv.FormatInt(c.now().Unix(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return res, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.Client.Do(req)
	if err != nil {
		return res, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("fetch manifest: unexpected status %s", resp.Status)
	}

	var m Manifest
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&m); err != nil {
		return res, fmt.Errorf("decode manifest: %w", err)
	}
	res.Latest = m

	cmp, err := CompareVersions(c.Current, m.Version)
	if err != nil {
		return res, err
	}
	res.Available = cmp < 0
	return res, nil
}

// CheckAsync runs Check in a goroutine. The channel is buffered, so the
// goroutine exits even if nobody reads the outcome.
func (c *Checker) CheckAsync(ctx context.Context) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		res, err := c.Check(ctx)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

// CompareVersions compares dotted versions on their first three numeric
// parts, padding missing parts with zero. It returns -1, 0 or 1.
func CompareVersions(a, b string) (int, error) {
	pa, err := versionParts(a)
	if err != nil {
		return 0, err
	}
	pb, err := versionParts(b)
	if err != nil {
		return 0, err
	}
	for i := 0; i < 3; i++ {
		switch {
		case pa[i] < pb[i]:
			return -1, nil
		case pa[i] > pb[i]:
			return 1, nil
		}
	}
	return 0, nil
}

func versionParts(v string) ([3]int, error) {
	var parts [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return parts, fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	for i, s := range strings.Split(v, ".") {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return parts, fmt.Errorf("%w: %q", ErrInvalidVersion, v)
		}
		if i < 3 {
			parts[i] = n
		}
	}
	return parts, nil
}
