package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Pillumz/caldav-mcp/internal/caldav"
	"github.com/Pillumz/caldav-mcp/internal/instrumentation"
	"github.com/Pillumz/caldav-mcp/internal/server"
	"github.com/Pillumz/caldav-mcp/internal/tools/common"
)

// eventResult is the JSON shape returned by list_events. Description
// and location are nullable to distinguish absent fields.
type eventResult struct {
	UID         string  `json:"uid"`
	Summary     string  `json:"summary"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

// RegisterEventTools registers event-related tools with the MCP server.
// The mutating tools (create_event, delete_event) are skipped in
// read-only mode.
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// List events tool (read-only, always available)
	listEventsTool := mcp.NewTool("list_events",
		mcp.WithDescription("List all events between start and end date in the calendar specified by its URL. "+
			"If end is not provided, defaults to 30 days after start."),
		mcp.WithString("calendar_url",
			mcp.Required(),
			mcp.Description("The calendar URL from list_calendars"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start date in ISO 8601 format (e.g., 2025-11-27 or 2025-11-27T00:00:00Z)"),
		),
		mcp.WithString("end",
			mcp.Description("End date in ISO 8601 format. If not provided, defaults to 30 days after start"),
		),
	)

	s.AddTool(listEventsTool, common.InstrumentedToolHandlerWithOperation("list_events", instrumentation.OperationQuery, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	// Create event tool
	createEventTool := mcp.NewTool("create_event",
		mcp.WithDescription("Create a new calendar event in the specified calendar"),
		mcp.WithString("calendar_url",
			mcp.Required(),
			mcp.Description("The calendar URL from list_calendars"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event summary/title"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start datetime in ISO 8601 format (e.g., 2025-11-27T10:00:00)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End datetime in ISO 8601 format (e.g., 2025-11-27T11:00:00)"),
		),
		mcp.WithString("description",
			mcp.Description("Optional event description"),
		),
		mcp.WithString("location",
			mcp.Description("Optional event location"),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandlerWithOperation("create_event", instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	// Delete event tool
	deleteEventTool := mcp.NewTool("delete_event",
		mcp.WithDescription("Delete an event by its UID from the specified calendar"),
		mcp.WithString("calendar_url",
			mcp.Required(),
			mcp.Description("The calendar URL from list_calendars"),
		),
		mcp.WithString("uid",
			mcp.Required(),
			mcp.Description("Event UID to delete"),
		),
	)

	s.AddTool(deleteEventTool, common.InstrumentedToolHandlerWithOperation("delete_event", instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteEvent(ctx, request, sc)
		}))

	return nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	calendarURL, ok := args["calendar_url"].(string)
	if !ok || calendarURL == "" {
		return mcp.NewToolResultError("calendar_url is required"), nil
	}

	startStr, ok := args["start"].(string)
	if !ok || startStr == "" {
		return mcp.NewToolResultError("start is required"), nil
	}
	start, err := parseISOTime(startStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid start date: %v", err)), nil
	}

	end := start.Add(defaultEventWindow)
	if endStr, ok := args["end"].(string); ok && endStr != "" {
		end, err = parseISOTime(endStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid end date: %v", err)), nil
		}
	}

	account, err := sc.Registry().Resolve(calendarURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	events, err := account.ListEvents(ctx, calendarURL, start, end)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}

	results := make([]eventResult, 0, len(events))
	for _, event := range events {
		results = append(results, eventResult{
			UID:         event.UID,
			Summary:     event.Summary,
			Start:       event.Start.Format(time.RFC3339),
			End:         event.End.Format(time.RFC3339),
			Description: optionalString(event.Description),
			Location:    optionalString(event.Location),
		})
	}

	return toolResultJSON(results)
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	calendarURL, ok := args["calendar_url"].(string)
	if !ok || calendarURL == "" {
		return mcp.NewToolResultError("calendar_url is required"), nil
	}

	summary, ok := args["summary"].(string)
	if !ok || summary == "" {
		return mcp.NewToolResultError("summary is required"), nil
	}

	startStr, ok := args["start"].(string)
	if !ok || startStr == "" {
		return mcp.NewToolResultError("start is required"), nil
	}
	start, err := parseISOTime(startStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid start datetime: %v", err)), nil
	}

	endStr, ok := args["end"].(string)
	if !ok || endStr == "" {
		return mcp.NewToolResultError("end is required"), nil
	}
	end, err := parseISOTime(endStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid end datetime: %v", err)), nil
	}

	input := caldav.EventInput{
		Summary: summary,
		Start:   start,
		End:     end,
	}
	if description, ok := args["description"].(string); ok {
		input.Description = description
	}
	if location, ok := args["location"].(string); ok {
		input.Location = location
	}

	account, err := sc.Registry().Resolve(calendarURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	uid, err := account.CreateEvent(ctx, calendarURL, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create event: %v", err)), nil
	}

	return mcp.NewToolResultText(uid), nil
}

func handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	calendarURL, ok := args["calendar_url"].(string)
	if !ok || calendarURL == "" {
		return mcp.NewToolResultError("calendar_url is required"), nil
	}

	uid, ok := args["uid"].(string)
	if !ok || uid == "" {
		return mcp.NewToolResultError("uid is required"), nil
	}

	account, err := sc.Registry().Resolve(calendarURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := account.DeleteEvent(ctx, calendarURL, uid); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete event: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Event %s deleted successfully", uid)), nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
