// Package celestrak queries the CelesTrak GP element service for two-line
// element sets and keeps satellite orbits current.
package celestrak

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"satcore/internal/httpclient"
	"satcore/pkg/domain"
)

// DefaultBaseURL is the public CelesTrak host.
const DefaultBaseURL = "https://celestrak.org"

const (
	gpPath        = "/NORAD/elements/gp.php"
	noData        = "No GP data found"
	invalidPrefix = "Invalid query"
	maxBody       = 16 << 20
)

// Kind selects the GP query parameter.
type Kind string

const (
	KindCatalogNumber  Kind = "CATNR"
	KindIntlDesignator Kind = "INTDES"
	KindGroup          Kind = "GROUP"
	KindName           Kind = "NAME"
	KindSpecial        Kind = "SPECIAL"
)

func (k Kind) valid() bool {
	switch k {
	case KindCatalogNumber, KindIntlDesignator, KindGroup, KindName, KindSpecial:
		return true
	}
	return false
}

// Query is one GP lookup.
type Query struct {
	Kind  Kind
	Value string
}

// ByCatalogNumber queries a single NORAD catalog number.
func ByCatalogNumber(n int64) Query {
	return Query{Kind: KindCatalogNumber, Value: strconv.FormatInt(n, 10)}
}

func (q Query) values() url.Values {
	return url.Values{string(q.Kind): {q.Value}, "FORMAT": {"TLE"}}
}

// TLE is a named two-line element set.
type TLE struct {
	Name  string
	Line1 string
	Line2 string
}

// CatalogNumber reads the NORAD catalog number from columns 3-7 of line 1.
func (t TLE) CatalogNumber() (int64, error) {
	if len(t.Line1) < 7 {
		return 0, &domain.FormatError{Source: "celestrak tle", Detail: "line 1 too short"}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(t.Line1[2:7]), 10, 64)
	if err != nil {
		return 0, &domain.FormatError{Source: "celestrak tle", Detail: fmt.Sprintf("catalog number: %v", err)}
	}
	return n, nil
}

// Source resolves a query to element sets. Client implements it.
type Source interface {
	Query(ctx context.Context, q Query) ([]TLE, error)
}

// Client queries CelesTrak and caches successful responses for a TTL.
type Client struct {
	http    *httpclient.Client
	baseURL string
	cache   *gocache.Cache
}

var _ Source = (*Client)(nil)

// NewClient returns a Client for baseURL. A non-positive ttl disables caching.
func NewClient(hc *httpclient.Client, baseURL string, ttl time.Duration) (*Client, error) {
	if hc == nil {
		return nil, errors.New("celestrak: http client required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
	if ttl > 0 {
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c, nil
}

// Query runs q. "No GP data found" yields an empty result.
func (c *Client) Query(ctx context.Context, q Query) ([]TLE, error) {
	if !q.Kind.valid() {
		return nil, fmt.Errorf("celestrak: unknown query kind %q", q.Kind)
	}
	key := string(q.Kind) + "=" + q.Value
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return append([]TLE(nil), cached.([]TLE)...), nil
		}
	}

	resp, err := c.http.Get(ctx, c.baseURL+gpPath+"?"+q.values().Encode())
	if err != nil {
		return nil, &domain.BackendError{Op: "celestrak gp", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.BackendError{Op: "celestrak gp", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &domain.BackendError{Op: "celestrak gp", Err: err}
	}
	tles, err := ParseTLE(string(body))
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.SetDefault(key, append([]TLE(nil), tles...))
	}
	return tles, nil
}

// ParseTLE splits a FORMAT=TLE body into 3-line records.
func ParseTLE(body string) ([]TLE, error) {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &domain.FormatError{Source: "celestrak gp", Detail: err.Error()}
	}
	if len(lines) == 1 {
		switch {
		case lines[0] == noData:
			return []TLE{}, nil
		case strings.HasPrefix(lines[0], invalidPrefix):
			return nil, &domain.FormatError{Source: "celestrak gp", Detail: lines[0]}
		}
	}
	if len(lines)%3 != 0 {
		return nil, &domain.FormatError{Source: "celestrak gp", Detail: fmt.Sprintf("%d lines is not a multiple of 3", len(lines))}
	}
	tles := make([]TLE, 0, len(lines)/3)
	for i := 0; i < len(lines); i += 3 {
		tles = append(tles, TLE{Name: strings.TrimSpace(lines[i]), Line1: lines[i+1], Line2: lines[i+2]})
	}
	return tles, nil
}
