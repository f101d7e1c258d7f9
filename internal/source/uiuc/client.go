// Package uiuc reads airfoil coordinates from the UIUC airfoil coordinate
// database.
package uiuc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mohammed-shakir/airfoil-geometry/internal/cache/keys"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/httpclient"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source"
)

const (
	DefaultBaseURL = "https://m-selig.ae.illinois.edu/ads"

	indexPage = "coord_database.html"
	upstream  = "uiuc"

	// catalog files are a few kilobytes; anything larger is not a .dat
	maxDatBytes   = 4 << 20
	maxIndexBytes = 16 << 20
)

var coordHref = regexp.MustCompile(`coord/[a-zA-Z0-9_]*(\.dat)`)

// Index maps a bucket (lowercase first letter or "numeric") to codes.
type Index map[string][]string

// Buckets returns the non-empty buckets in order.
func (idx Index) Buckets() []string {
	out := make([]string, 0, len(idx))
	for b, codes := range idx {
		if len(codes) > 0 {
			out = append(out, b)
		}
	}
	slices.Sort(out)
	return out
}

// Len counts the codes over all buckets.
func (idx Index) Len() int {
	n := 0
	for _, codes := range idx {
		n += len(codes)
	}
	return n
}

// Client talks to the catalog over HTTP.
type Client struct {
	base *url.URL
	http *http.Client
}

var _ source.Source = (*Client)(nil)

// New returns a client rooted at baseURL. A nil hc uses the shared outbound
// client.
func New(baseURL string, hc *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("catalog url %q: unsupported scheme", baseURL)
	}
	if hc == nil {
		hc = httpclient.NewOutbound()
	}
	return &Client{base: u, http: hc}, nil
}

// Fetch downloads and parses coord/{code}.dat.
func (c *Client) Fetch(ctx context.Context, code string) (model.Document, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.ContainsAny(code, "/?#") {
		return model.Document{}, fmt.Errorf("%w: invalid code %q", model.ErrNotFound, code)
	}
	body, err := c.get(ctx, "coord/"+code+".dat", maxDatBytes)
	if err != nil {
		return model.Document{}, fmt.Errorf("airfoil %q: %w", code, err)
	}
	return ParseDat(code, body), nil
}

// Index scrapes the catalog index page.
func (c *Client) Index(ctx context.Context) (Index, error) {
	body, err := c.get(ctx, indexPage, maxIndexBytes)
	if err != nil {
		return nil, fmt.Errorf("catalog index: %w", err)
	}
	return ParseIndex(bytes.NewReader(body))
}

func (c *Client) get(ctx context.Context, rel string, limit int64) ([]byte, error) {
	u := c.base.ResolveReference(&url.URL{Path: rel})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveUpstreamLatency(upstream, err, time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %w", model.ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		observability.ObserveUpstreamLatency(upstream, nil, time.Since(start).Seconds())
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, model.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		err := fmt.Errorf("%w: %s returned %s", model.ErrSourceUnavailable, u.Redacted(), resp.Status)
		observability.ObserveUpstreamLatency(upstream, err, time.Since(start).Seconds())
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	observability.ObserveUpstreamLatency(upstream, err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", model.ErrSourceUnavailable, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s larger than %d bytes", model.ErrSourceUnavailable, u.Redacted(), limit)
	}
	return body, nil
}

// ParseIndex collects every anchor linking to coord/<code>.dat. The code is
// taken from the anchor text with spaces removed, or from the link when the
// text is not a file name.
func ParseIndex(r io.Reader) (Index, error) {
	out := Index{}
	seen := map[string]bool{}

	z := html.NewTokenizer(r)
	var href string
	var text strings.Builder
	inAnchor := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("parse index html: %w", err)
			}
			for _, codes := range out {
				slices.Sort(codes)
			}
			return out, nil
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			href, inAnchor = "", false
			for {
				k, v, more := z.TagAttr()
				if string(k) == "href" && coordHref.Match(v) {
					href, inAnchor = string(v), true
					text.Reset()
				}
				if !more {
					break
				}
			}
		case html.TextToken:
			if inAnchor {
				text.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "a" || !inAnchor {
				continue
			}
			inAnchor = false
			code := codeFrom(text.String(), href)
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			b := keys.Bucket(code)
			out[b] = append(out[b], code)
		}
	}
}

func codeFrom(text, href string) string {
	t := strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	if strings.HasSuffix(strings.ToLower(t), ".dat") && len(t) > 4 {
		return t[:len(t)-4]
	}
	m := coordHref.FindString(href)
	return strings.TrimSuffix(strings.TrimPrefix(m, "coord/"), ".dat")
}
