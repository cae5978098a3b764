package mcp

import (
	"context"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/luma-agent/luma/internal/worldview"
)

func (s *Server) registerPrompts() {
	// imagery-request: turns a plain request into a worldview_link call.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("imagery-request",
			mcplib.WithPromptDescription("Find NASA Worldview imagery for a described phenomenon, place and date"),
			mcplib.WithArgument("request",
				mcplib.ArgumentDescription(`What to look at, e.g. "wildfire smoke over Greece last August"`),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("date",
				mcplib.ArgumentDescription("Optional ISO date"),
			),
		),
		s.handleImageryRequestPrompt,
	)
}

func (s *Server) handleImageryRequestPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	req := strings.TrimSpace(request.Params.Arguments["request"])
	if req == "" {
		return nil, fmt.Errorf("request argument is required")
	}
	date := strings.TrimSpace(request.Params.Arguments["date"])

	var b strings.Builder
	fmt.Fprintf(&b, "The user wants to see this in NASA Worldview: %s\n\n", req)
	fmt.Fprintf(&b, "CALL %s with a short query naming the phenomenon and the place", worldview.ToolName)
	if date != "" {
		fmt.Fprintf(&b, ", and date=%q", date)
	}
	b.WriteString(`.

Then reply with the returned URL and one sentence describing which layers it shows.
If the request names no date, mention that the map opens on today's imagery.`)

	return &mcplib.GetPromptResult{
		Description: "Find Worldview imagery",
		Messages: []mcplib.PromptMessage{
			{
				Role:    mcplib.RoleUser,
				Content: mcplib.TextContent{Type: "text", Text: b.String()},
			},
		},
	}, nil
}
