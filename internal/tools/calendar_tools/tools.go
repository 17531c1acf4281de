package calendar_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Pillumz/caldav-mcp/internal/server"
	"github.com/Pillumz/caldav-mcp/internal/tools/common"
)

// calendarResult is the JSON shape returned by list_calendars.
type calendarResult struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// RegisterCalendarTools registers all CalDAV tools with the MCP server.
// When the server context is read-only, only the read tools are
// registered.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterListTools(s, sc); err != nil {
		return fmt.Errorf("failed to register list tools: %w", err)
	}

	if err := RegisterEventTools(s, sc, sc.ReadOnly()); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}

	return nil
}

// RegisterListTools registers the calendar discovery tool.
func RegisterListTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listCalendarsTool := mcp.NewTool("list_calendars",
		mcp.WithDescription("List all calendars from all configured accounts"),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandler("list_calendars", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, request, sc)
		}))

	return nil
}

func handleListCalendars(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	calendars := sc.Registry().Calendars()

	results := make([]calendarResult, 0, len(calendars))
	for _, cal := range calendars {
		results = append(results, calendarResult{
			Account: cal.Account,
			Name:    cal.Name,
			URL:     cal.URL,
		})
	}

	return toolResultJSON(results)
}

// toolResultJSON marshals a result into an indented JSON tool response.
func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
