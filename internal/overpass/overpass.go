// Package overpass fetches OpenStreetMap data for a bounding box from an
// Overpass API endpoint and decodes it with osmio.
package overpass

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/woozymasta/geoxchange/internal/osmio"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// DefaultTimeout bounds one request, including the server side query.
const DefaultTimeout = 60 * time.Second

// ErrEmptyBound is returned for a bounding box without area.
var ErrEmptyBound = errors.New("empty bounding box")

// Client posts bounding box queries to an Overpass endpoint.
type Client struct {
	HTTP     *http.Client
	Endpoint string
	Timeout  time.Duration
}

// New returns a client for endpoint with the given timeout. Empty values
// fall back to the defaults.
func New(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		Endpoint: endpoint,
		Timeout:  timeout,
		HTTP: &http.Client{
			Transport: &http.Transport{
				TLSNextProto: make(map[string]func(string, *tls.Conn) http.RoundTripper),
				MaxIdleConns: 10,
			},
			Timeout: timeout,
		},
	}
}

// Query builds the Overpass QL request for every node, way and relation in
// b together with the nodes the ways reference.
func Query(b orb.Bound, timeout time.Duration) string {
	box := fmt.Sprintf("%s,%s,%s,%s",
		vector.FormatFloat(b.Min.Lat()), vector.FormatFloat(b.Min.Lon()),
		vector.FormatFloat(b.Max.Lat()), vector.FormatFloat(b.Max.Lon()))

	return fmt.Sprintf("[out:xml][timeout:%d];(node(%s);way(%s);relation(%s););(._;>;);out meta;",
		int(timeout.Seconds()), box, box, box)
}

// FetchBBox downloads the data inside b and decodes it into nodes. Decoding
// problems of single elements are collected in rep.
func (c *Client) FetchBBox(ctx context.Context, b orb.Bound, nodes *vector.NodeMap, rep *report.Report) (*vector.Layer, error) {
	if b.Min.Lon() >= b.Max.Lon() || b.Min.Lat() >= b.Max.Lat() {
		return nil, ErrEmptyBound
	}

	query := Query(b, c.Timeout)
	form := url.Values{"data": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Info().
		Str("endpoint", c.Endpoint).
		Str("bbox", fmt.Sprintf("%v", b)).
		Msg("Fetching OSM data from Overpass")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, report.IO("fetch", c.Endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// the body carries the server's error page
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, report.IO("fetch", c.Endpoint, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	l, err := osmio.Decode(resp.Body, nodes, rep)
	if err != nil {
		return l, fmt.Errorf("decode overpass response: %w", err)
	}
	l.Name = "Overpass"
	return l, nil
}
