package worldview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/luma-agent/luma/internal/telemetry"
)

const (
	// DefaultCatalogURL is the Worldview configuration document listing every layer.
	DefaultCatalogURL = "https://worldview.earthdata.nasa.gov/config/wv.json"

	// DefaultCatalogTimeout bounds a single catalog fetch.
	DefaultCatalogTimeout = 10 * time.Second

	userAgent = "Luma-Agent/1.0"

	// maxCatalogBytes caps the catalog body; the real document is a few MB.
	maxCatalogBytes = 64 << 20
)

// LayerMeta is the subset of a catalog entry used for matching. Raw keeps
// the full decoded entry.
type LayerMeta struct {
	Title string
	Raw   map[string]any
}

// UnmarshalJSON accepts any JSON object. A non-object entry is an error,
// which makes the whole catalog unusable.
func (m *LayerMeta) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("layer entry is null")
	}
	m.Raw = raw
	switch t := raw["title"].(type) {
	case nil:
		m.Title = ""
	case string:
		m.Title = t
	default:
		m.Title = fmt.Sprint(t)
	}
	return nil
}

// LayerCatalog maps layer ids to metadata in document order. Iteration
// order is load-bearing: scoring ties resolve to the earliest entry.
type LayerCatalog struct {
	layers *orderedmap.OrderedMap[string, LayerMeta]
}

// NewLayerCatalog returns an empty catalog.
func NewLayerCatalog() *LayerCatalog {
	return &LayerCatalog{layers: orderedmap.New[string, LayerMeta]()}
}

// Set adds or replaces a layer. New ids are appended at the end.
func (c *LayerCatalog) Set(id string, meta LayerMeta) {
	c.layers.Set(id, meta)
}

// Get returns the metadata for id.
func (c *LayerCatalog) Get(id string) (LayerMeta, bool) {
	return c.layers.Get(id)
}

// Has reports whether id is in the catalog.
func (c *LayerCatalog) Has(id string) bool {
	_, ok := c.layers.Get(id)
	return ok
}

// Len returns the number of layers.
func (c *LayerCatalog) Len() int {
	return c.layers.Len()
}

// All iterates layers in catalog order.
func (c *LayerCatalog) All() iter.Seq2[string, LayerMeta] {
	return func(yield func(string, LayerMeta) bool) {
		for pair := c.layers.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// ParseCatalog decodes a Worldview configuration document. The document
// must carry a "layers" object whose values are objects.
func ParseCatalog(data []byte) (*LayerCatalog, error) {
	var doc struct {
		Layers json.RawMessage `json:"layers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("worldview: decode catalog: %w", err)
	}
	if len(doc.Layers) == 0 || string(doc.Layers) == "null" {
		return nil, errors.New("worldview: catalog has no layers field")
	}
	layers := orderedmap.New[string, LayerMeta]()
	if err := json.Unmarshal(doc.Layers, layers); err != nil {
		return nil, fmt.Errorf("worldview: decode layers: %w", err)
	}
	return &LayerCatalog{layers: layers}, nil
}

// CatalogResult is the outcome of a catalog fetch. A nil Catalog means the
// catalog was unavailable and callers must fall back to offline heuristics.
type CatalogResult struct {
	Catalog *LayerCatalog
}

// Unavailable is the result of any failed fetch.
var Unavailable = CatalogResult{}

// Available reports whether the fetch produced a catalog.
func (r CatalogResult) Available() bool {
	return r.Catalog != nil
}

// CatalogSource yields a layer catalog. Implementations never fail; they
// return Unavailable instead.
type CatalogSource interface {
	Fetch(ctx context.Context) CatalogResult
}

// CatalogConfig configures a CatalogClient. Zero values select defaults.
type CatalogConfig struct {
	URL        string
	Timeout    time.Duration
	CacheTTL   time.Duration // 0 disables caching
	HTTPClient *http.Client
}

// CatalogClient fetches the remote layer catalog with one GET per call.
type CatalogClient struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	cache      *catalogCache
	group      singleflight.Group
	logger     *slog.Logger
	fetches    otelmetric.Int64Counter
}

// NewCatalogClient creates a catalog client.
func NewCatalogClient(cfg CatalogConfig, logger *slog.Logger) *CatalogClient {
	if cfg.URL == "" {
		cfg.URL = DefaultCatalogURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCatalogTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &CatalogClient{
		url:        cfg.URL,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		logger:     logger,
	}
	if cfg.CacheTTL > 0 {
		c.cache = newCatalogCache(cfg.CacheTTL)
	}
	// Best-effort: a nil counter only disables the metric.
	c.fetches, _ = telemetry.Meter("luma/worldview").Int64Counter("luma.catalog.fetch")
	return c
}

// Fetch returns the catalog or Unavailable. Concurrent callers share one
// in-flight request; the request is detached from ctx cancellation so one
// abandoned caller does not fail the others, and is bounded by the timeout.
func (c *CatalogClient) Fetch(ctx context.Context) CatalogResult {
	if c.cache != nil {
		if cat, ok := c.cache.Get(); ok {
			c.record(ctx, "cache_hit")
			return CatalogResult{Catalog: cat}
		}
	}

	v, _, _ := c.group.Do(c.url, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		cat, err := c.fetch(fetchCtx)
		if err != nil {
			c.logger.Warn("worldview: catalog unavailable", "url", c.url, "error", err)
			c.record(ctx, "unavailable")
			return (*LayerCatalog)(nil), nil
		}
		c.record(ctx, "ok")
		if c.cache != nil {
			c.cache.Set(cat)
		}
		return cat, nil
	})

	cat, _ := v.(*LayerCatalog)
	if cat == nil {
		return Unavailable
	}
	return CatalogResult{Catalog: cat}
}

func (c *CatalogClient) fetch(ctx context.Context) (*LayerCatalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("worldview: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worldview: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("worldview: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("worldview: read response: %w", err)
	}
	return ParseCatalog(body)
}

func (c *CatalogClient) record(ctx context.Context, outcome string) {
	if c.fetches == nil {
		return
	}
	c.fetches.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}
