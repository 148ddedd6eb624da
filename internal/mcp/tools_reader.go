package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerReaderTools() {
	// ── list_reading_positions ─────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_reading_positions",
		mcp.WithDescription("List every saved reading position, most recently read first"),
	), s.handleListPositions)

	// ── get_reading_position ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_reading_position",
		mcp.WithDescription("Get the page a material was last read at (1 when never opened)"),
		mcp.WithString("materialId",
			mcp.Description("ID of the material"),
			mcp.Required(),
		),
	), s.handleGetPosition)

	// ── save_reading_position ──────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_reading_position",
		mcp.WithDescription("Bookmark a page of a material so the reader resumes there"),
		mcp.WithString("materialId",
			mcp.Description("ID of the material"),
			mcp.Required(),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number"),
			mcp.Required(),
		),
		mcp.WithString("title", mcp.Description("Material title shown in the library (optional)")),
		mcp.WithString("subjectId", mcp.Description("Subject the material belongs to (optional)")),
	), s.handleSavePosition)
}

func (s *Server) handleListPositions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	positions, err := s.reader.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return jsonResult(positions)
}

func (s *Server) handleGetPosition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	materialID := req.GetString("materialId", "")
	if materialID == "" {
		return nil, fmt.Errorf("materialId is required")
	}
	return jsonResult(map[string]any{
		"materialId": materialID,
		"page":       s.reader.Position(ctx, materialID),
	})
}

func (s *Server) handleSavePosition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	materialID := stringArg(args, "materialId")
	page, ok := intArg(args, "page")
	if materialID == "" || !ok {
		return nil, fmt.Errorf("materialId and page are required")
	}
	pos, err := s.reader.SavePosition(ctx, materialID, page, stringArg(args, "title"), stringArg(args, "subjectId"))
	if err != nil {
		return nil, fmt.Errorf("save position: %w", err)
	}
	return jsonResult(pos)
}
