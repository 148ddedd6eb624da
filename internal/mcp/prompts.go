package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("revision_session",
		mcp.WithPromptDescription("Guide a short revision session on a material the student is reading"),
		mcp.WithArgument("materialId",
			mcp.ArgumentDescription("ID of the material being revised"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("subject",
			mcp.ArgumentDescription("School subject of the material"),
			mcp.RequiredArgument(),
		),
	), s.handleRevisionPrompt)
}

func (s *Server) handleRevisionPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	materialID := req.Params.Arguments["materialId"]
	subject := req.Params.Arguments["subject"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Revise %s (%s)", materialID, subject),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Run a short %s revision session for material "%s". Follow these steps:

1. Use get_reading_position to find the page the student reached.
2. Use tutor_history to see what the student already asked about this material.
3. Use generate_quiz with subject "%s" and ask the questions one at a time.
4. After the quiz, use save_reading_position if the student wants to move on to a new page.

Keep explanations short and in the student's language.`, subject, materialID, subject),
				},
			},
		},
	}, nil
}
