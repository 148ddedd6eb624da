package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const positionsURI = "haqiba://positions"

func (s *Server) registerResources() {
	// ── haqiba://positions ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		positionsURI,
		"Continue Reading",
		mcp.WithMIMEType("application/json"),
	), s.handlePositionsResource)

	// ── haqiba://material/{materialId}/position ────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"haqiba://material/{materialId}/position",
			"Reading Position of a Material",
		),
		s.handleMaterialPositionResource,
	)
}

func (s *Server) handlePositionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	positions, err := s.reader.Positions(ctx)
	if err != nil {
		return nil, err
	}

	type positionSummary struct {
		MaterialID string `json:"materialId"`
		Title      string `json:"title,omitempty"`
		Page       int    `json:"page"`
	}

	summaries := make([]positionSummary, 0, len(positions))
	for _, p := range positions {
		summaries = append(summaries, positionSummary{MaterialID: p.MaterialID, Title: p.Title, Page: p.Page})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      positionsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleMaterialPositionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	materialID, err := materialIDFromURI(uri)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(map[string]any{
		"materialId": materialID,
		"page":       s.reader.Position(ctx, materialID),
	})
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// materialIDFromURI extracts the id from haqiba://material/{materialId}/position.
func materialIDFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "haqiba://material/")
	if !ok {
		return "", fmt.Errorf("invalid material URI: %s", uri)
	}
	id, ok := strings.CutSuffix(rest, "/position")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid material URI: %s", uri)
	}
	return id, nil
}
