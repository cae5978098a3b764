package worldview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// ToolName is the name under which link resolution is offered to models.
const ToolName = "worldview_link"

// ToolDescription explains the tool to the model.
const ToolDescription = "Build a NASA Worldview URL for requested imagery. " +
	"Describe the desired phenomena in query (e.g. \"fires in California\"). " +
	"Returns a direct Worldview URL that opens the map with those layers, date and bounding box."

// Tool exposes a Resolver as a model-callable tool.
type Tool struct {
	resolver *Resolver
}

var _ tool.InvokableTool = (*Tool)(nil)

// NewTool wraps resolver.
func NewTool(resolver *Resolver) *Tool {
	return &Tool{resolver: resolver}
}

// Info describes the tool's arguments.
func (t *Tool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolName,
		Desc: ToolDescription,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Natural-language description of desired layers, e.g. \"smoke over Greece\".",
				Required: true,
			},
			"date": {
				Type: schema.String,
				Desc: "Optional ISO date (YYYY-MM-DD or full ISO). Defaults to today.",
			},
			"bbox": {
				Type: schema.String,
				Desc: "Optional bounding box \"lonW,latS,lonE,latN\". Defaults to a region named in the query or the world extent.",
			},
			"layers": {
				Type:     schema.Array,
				Desc:     "Optional explicit list of Worldview layer ids; overrides search.",
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
			},
		}),
	}, nil
}

// InvokableRun decodes the model's JSON arguments and returns the URL as
// plain text.
func (t *Tool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	req, err := DecodeRequest(argumentsInJSON)
	if err != nil {
		return "", err
	}
	return t.resolver.Resolve(ctx, req), nil
}

// DecodeRequest parses tool arguments. Blank input is an empty request.
func DecodeRequest(argumentsInJSON string) (Request, error) {
	var req Request
	if strings.TrimSpace(argumentsInJSON) == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &req); err != nil {
		return Request{}, fmt.Errorf("worldview: invalid arguments: %w", err)
	}
	return req, nil
}
