package worldview

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/luma-agent/luma/internal/telemetry"
)

// Request is a natural-language imagery request. Date, BBox and Layers are
// optional; explicit Layers bypass catalog search entirely.
type Request struct {
	Query  string   `json:"query"`
	Date   string   `json:"date,omitempty"`
	BBox   string   `json:"bbox,omitempty"`
	Layers []string `json:"layers,omitempty"`
}

// Resolver turns imagery requests into Worldview links.
type Resolver struct {
	catalog   CatalogSource
	viewerURL string
	logger    *slog.Logger
	now       func() time.Time
	tracer    trace.Tracer
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithViewerURL overrides the Worldview root used in generated links.
func WithViewerURL(u string) ResolverOption {
	return func(r *Resolver) {
		if u != "" {
			r.viewerURL = u
		}
	}
}

// WithClock sets the time source used for the default date.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a Resolver backed by catalog.
func NewResolver(catalog CatalogSource, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		catalog:   catalog,
		viewerURL: DefaultViewerURL,
		logger:    logger,
		now:       time.Now,
		tracer:    telemetry.Tracer("luma/worldview"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ViewerURL returns the Worldview root used in generated links.
func (r *Resolver) ViewerURL() string {
	return r.viewerURL
}

// Resolve returns a Worldview URL for req. It never fails: catalog
// problems degrade to offline keyword matching.
func (r *Resolver) Resolve(ctx context.Context, req Request) string {
	return r.ResolveView(ctx, req).URL(r.viewerURL)
}

// ResolveView performs the resolution without rendering the URL.
func (r *Resolver) ResolveView(ctx context.Context, req Request) View {
	ctx, span := r.tracer.Start(ctx, "worldview.resolve")
	defer span.End()

	view := View{
		Date: NormalizeDate(req.Date, r.now()),
		BBox: ResolveBBox(req.Query, req.BBox),
	}

	sel := NewSelection(MaxLayers)
	source := "explicit"
	if len(req.Layers) > 0 {
		for _, id := range req.Layers {
			sel.Add(id)
		}
	} else {
		source = r.selectLayers(ctx, req.Query, sel)
	}
	sel.Truncate()
	view.Layers = sel.IDs()

	span.SetAttributes(
		attribute.String("worldview.source", source),
		attribute.StringSlice("worldview.layers", view.Layers),
	)
	r.logger.Info("worldview: resolved",
		"query", req.Query,
		"source", source,
		"layers", view.Layers,
		"date", view.Date,
		"bbox", view.BBox,
	)
	return view
}

// selectLayers fills sel from the catalog and the offline table and reports
// which source drove the selection.
func (r *Resolver) selectLayers(ctx context.Context, query string, sel *Selection) string {
	hint := HasTrueColorHint(query)
	catalog := Unavailable
	if r.catalog != nil {
		catalog = r.catalog.Fetch(ctx)
	}

	source := "offline"
	if catalog.Available() {
		source = "catalog"
		searchCatalog(catalog.Catalog, query, hint, sel)
	}
	if sel.Len() == 0 {
		sel.Add(DefaultTrueColorLayer)
	}

	for _, id := range MatchOffline(query) {
		if sel.Full() {
			break
		}
		sel.Add(id)
	}

	EnsureTrueColor(sel, catalog, hint)
	return source
}

// searchCatalog picks the best layer for each query phrase, then applies
// true-color enforcement against the catalog.
func searchCatalog(catalog *LayerCatalog, query string, hint bool, sel *Selection) {
	if catalog.Len() == 0 {
		return
	}
	for _, phrase := range Partition(query) {
		if id, ok := SelectBest(catalog, phrase, sel); ok {
			sel.Add(id)
		}
		if sel.Full() {
			break
		}
	}
	EnsureTrueColor(sel, CatalogResult{Catalog: catalog}, hint)
	sel.Truncate()
}
