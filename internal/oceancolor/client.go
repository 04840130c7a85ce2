// Package oceancolor ingests geophysical products from the NASA OceanColor
// file search and getfile services.
package oceancolor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"satcore/internal/httpclient"
	"satcore/pkg/domain"
)

const (
	// DefaultBaseURL is the public OceanColor data host.
	DefaultBaseURL = "https://oceandata.sci.gsfc.nasa.gov"

	searchPath  = "/api/file_search"
	getfilePath = "/cgi/getfile/"

	noResults = "No Results Found"

	queryTimeLayout = "2006-01-02 15:04:05"
	itemTimeLayout  = "20060102T150405"

	// maxSearchBody bounds how much of a search response is read.
	maxSearchBody = 8 << 20
)

// Query selects the products of one sensor and data type inside a time window.
type Query struct {
	Start    time.Time
	End      time.Time
	SensorID int64
	DataID   int64
}

// Form renders q as the file_search form body.
func (q Query) Form() url.Values {
	return url.Values{
		"results_as_file": {"1"},
		"sensor_id":       {strconv.FormatInt(q.SensorID, 10)},
		"dtid":            {strconv.FormatInt(q.DataID, 10)},
		"sdate":           {q.Start.UTC().Format(queryTimeLayout)},
		"edate":           {q.End.UTC().Format(queryTimeLayout)},
		"subType":         {"1"},
	}
}

// Provider is the part of the OceanColor API the ingestion job needs.
type Provider interface {
	Search(ctx context.Context, q Query) ([]string, error)
	Download(ctx context.Context, item string) (string, error)
}

// Client talks to the OceanColor search and getfile endpoints through a
// credential-safe httpclient.Client.
type Client struct {
	http    *httpclient.Client
	baseURL string
	tempDir string
}

var _ Provider = (*Client)(nil)

// NewClient returns a Client for baseURL. Downloads are written below tempDir,
// or the OS temp directory when empty.
func NewClient(hc *httpclient.Client, baseURL, tempDir string) (*Client, error) {
	if hc == nil {
		return nil, errors.New("oceancolor: http client required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("oceancolor: base url: %w", err)
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/"), tempDir: tempDir}, nil
}

// Search returns the product names matching q in provider order. A body that
// is exactly the provider's "No Results Found" line yields an empty, non-nil
// slice.
func (c *Client) Search(ctx context.Context, q Query) ([]string, error) {
	resp, err := c.http.PostForm(ctx, c.baseURL+searchPath, q.Form())
	if err != nil {
		return nil, &domain.BackendError{Op: "oceancolor search", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus("oceancolor search", resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, &domain.BackendError{Op: "oceancolor search", Err: err}
	}
	return parseSearch(string(body))
}

func parseSearch(body string) ([]string, error) {
	trimmed := strings.TrimSpace(body)
	// The marker only counts as the whole body; anywhere else it is malformed.
	if trimmed == noResults {
		return []string{}, nil
	}
	if strings.HasPrefix(trimmed, "<") {
		return nil, &domain.FormatError{Source: "oceancolor search", Detail: "html body"}
	}
	items := []string{}
	sc := bufio.NewScanner(strings.NewReader(trimmed))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !validItemName(line) {
			return nil, &domain.FormatError{Source: "oceancolor search", Detail: fmt.Sprintf("invalid item name %q", line)}
		}
		items = append(items, line)
	}
	if err := sc.Err(); err != nil {
		return nil, &domain.FormatError{Source: "oceancolor search", Detail: err.Error()}
	}
	return items, nil
}

func validItemName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\<>\"' \t")
}

// Download fetches item into a fresh temporary directory and returns the file
// path. The file is named after the last path segment of the final URL, so
// redirects to a storage host pick the served name. Remove with RemoveDownload.
func (c *Client) Download(ctx context.Context, item string) (string, error) {
	if !validItemName(item) {
		return "", &domain.FormatError{Source: "oceancolor getfile", Detail: fmt.Sprintf("invalid item name %q", item)}
	}
	resp, err := c.http.Get(ctx, c.baseURL+getfilePath+url.PathEscape(item))
	if err != nil {
		return "", &domain.BackendError{Op: "oceancolor getfile " + item, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus("oceancolor getfile "+item, resp); err != nil {
		return "", err
	}
	name, err := servedName(resp)
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp(c.tempDir, "oceancolor-*")
	if err != nil {
		return "", fmt.Errorf("oceancolor getfile %s: %w", item, err)
	}
	target := filepath.Join(dir, name)
	if err := writeFile(target, resp.Body); err != nil {
		_ = os.RemoveAll(dir)
		return "", &domain.BackendError{Op: "oceancolor getfile " + item, Err: err}
	}
	return target, nil
}

// RemoveDownload deletes a file returned by Download together with its
// temporary directory.
func RemoveDownload(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(filepath.Dir(path))
}

func servedName(resp *http.Response) (string, error) {
	final := resp.Request
	if final == nil || final.URL == nil {
		return "", &domain.FormatError{Source: "oceancolor getfile", Detail: "response without request url"}
	}
	name := path.Base(final.URL.Path)
	if name == "" || name == "." || name == "/" || !validItemName(name) {
		return "", &domain.FormatError{Source: "oceancolor getfile", Detail: fmt.Sprintf("no file name in %s", final.URL.Redacted())}
	}
	return name, nil
}

func writeFile(target string, r io.Reader) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // name validated.
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	return &domain.BackendError{Op: op, Err: fmt.Errorf("unexpected status %s", resp.Status)}
}

// ItemTime parses the acquisition time out of a product name such as
// "AQUA_MODIS.20240101T120000.L2.SST4.nc".
func ItemTime(name string) (time.Time, error) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return time.Time{}, &domain.FormatError{Source: "oceancolor item", Detail: fmt.Sprintf("no timestamp in %q", name)}
	}
	t, err := time.ParseInLocation(itemTimeLayout, parts[1], time.UTC)
	if err != nil {
		return time.Time{}, &domain.FormatError{Source: "oceancolor item", Detail: err.Error()}
	}
	return t, nil
}
