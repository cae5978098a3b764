package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Registry is a fixed set of tools keyed by name. It is built once and
// read concurrently afterwards.
type Registry struct {
	tools map[string]tool.InvokableTool
	infos []*schema.ToolInfo
}

// NewRegistry collects tool descriptions and indexes tools by name.
// Duplicate or empty names are rejected.
func NewRegistry(ctx context.Context, tools ...tool.InvokableTool) (*Registry, error) {
	r := &Registry{tools: make(map[string]tool.InvokableTool, len(tools))}
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("agent: tool info: %w", err)
		}
		if info == nil || info.Name == "" {
			return nil, errors.New("agent: tool has no name")
		}
		if _, dup := r.tools[info.Name]; dup {
			return nil, fmt.Errorf("agent: duplicate tool %q", info.Name)
		}
		r.tools[info.Name] = t
		r.infos = append(r.infos, info)
	}
	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (tool.InvokableTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Infos returns tool descriptions in registration order, for binding to a
// chat model.
func (r *Registry) Infos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, len(r.infos))
	copy(out, r.infos)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }
