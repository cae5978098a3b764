package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/luma-agent/luma/internal/worldview"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool(worldview.ToolName,
			mcplib.WithDescription(worldview.ToolDescription+`

WHEN TO USE: Whenever a user asks to see satellite imagery, a phenomenon
(fires, smoke, dust, snow, floods, sea surface temperature) or a region on a
given date.

EXAMPLES:
- query="fires in California", date="2025-08-20"
- query="dust over the Sahara"
- layers=["VIIRS_SNPP_CorrectedReflectance_TrueColor"], bbox="87,20,93,27"`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description(`Natural-language description of the desired layers, e.g. "smoke over Greece"`),
			),
			mcplib.WithString("date",
				mcplib.Description("ISO date (YYYY-MM-DD or full ISO timestamp). Defaults to today."),
			),
			mcplib.WithString("bbox",
				mcplib.Description(`Bounding box "lonW,latS,lonE,latN". Defaults to a region named in the query or the whole world.`),
			),
			mcplib.WithArray("layers",
				mcplib.Description("Explicit Worldview layer ids; overrides catalog search. At most 4 are used."),
				mcplib.WithStringItems(),
			),
		),
		s.handleWorldviewLink,
	)
}

func (s *Server) handleWorldviewLink(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args, err := json.Marshal(request.GetArguments())
	if err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	req, err := worldview.DecodeRequest(string(args))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if req.Query == "" && len(req.Layers) == 0 {
		return errorResult("query or layers is required"), nil
	}

	url := s.resolver.Resolve(ctx, req)
	s.logger.Debug("mcp: worldview link", "url", url)
	return textResult(url), nil
}
