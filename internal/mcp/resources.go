package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/luma-agent/luma/internal/worldview"
)

const (
	layersURI         = "luma://catalog/layers"
	layerURIPrefix    = "luma://catalog/layers/"
	layerTemplateURI  = layerURIPrefix + "{id}"
	resourceMIMEType  = "application/json"
	maxListedLayerLen = 5000
)

// layerSummary is one entry of the layer listing.
type layerSummary struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

func (s *Server) registerResources() {
	// luma://catalog/layers: ids and titles of every catalog layer.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			layersURI,
			"Worldview Layers",
			mcplib.WithResourceDescription("Layer ids and titles from the Worldview catalog, in catalog order"),
			mcplib.WithMIMEType(resourceMIMEType),
		),
		s.handleLayers,
	)

	// luma://catalog/layers/{id}: the full catalog entry for one layer.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			layerTemplateURI,
			"Worldview Layer",
			mcplib.WithTemplateDescription("Full Worldview catalog entry for one layer id"),
			mcplib.WithTemplateMIMEType(resourceMIMEType),
		),
		s.handleLayer,
	)
}

func (s *Server) fetchCatalog(ctx context.Context) (*worldview.LayerCatalog, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("mcp: layer catalog unavailable")
	}
	res := s.catalog.Fetch(ctx)
	if !res.Available() {
		return nil, fmt.Errorf("mcp: layer catalog unavailable")
	}
	return res.Catalog, nil
}

func (s *Server) handleLayers(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	catalog, err := s.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	layers := make([]layerSummary, 0, min(catalog.Len(), maxListedLayerLen))
	for id, meta := range catalog.All() {
		if len(layers) == maxListedLayerLen {
			break
		}
		layers = append(layers, layerSummary{ID: id, Title: meta.Title})
	}

	data, err := json.MarshalIndent(layers, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal layers: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      layersURI,
			MIMEType: resourceMIMEType,
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleLayer(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, layerURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("mcp: invalid layer uri %q", uri)
	}

	catalog, err := s.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	meta, ok := catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("mcp: layer %q not found", id)
	}

	data, err := json.MarshalIndent(meta.Raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal layer: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: resourceMIMEType,
			Text:     string(data),
		},
	}, nil
}
