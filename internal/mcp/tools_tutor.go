package mcpserver

import (
	"context"
	"fmt"

	"haqiba/internal/tutor"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTutorTools() {
	// ── ask_tutor ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("ask_tutor",
		mcp.WithDescription("Ask the study tutor a question. The exchange is filed under materialId when given."),
		mcp.WithString("question",
			mcp.Description("The student's question"),
			mcp.Required(),
		),
		mcp.WithString("subject", mcp.Description("School subject, e.g. Chemistry (optional)")),
		mcp.WithString("materialId", mcp.Description("Material the question is about (optional)")),
	), s.handleAskTutor)

	// ── generate_quiz ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("generate_quiz",
		mcp.WithDescription("Generate multiple-choice revision questions for a subject"),
		mcp.WithString("subject",
			mcp.Description("School subject"),
			mcp.Required(),
		),
		mcp.WithNumber("count", mcp.Description("Number of questions (default 5)")),
	), s.handleGenerateQuiz)

	// ── tutor_history ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("tutor_history",
		mcp.WithDescription("List recent tutor exchanges about a material, newest first"),
		mcp.WithString("materialId",
			mcp.Description("ID of the material"),
			mcp.Required(),
		),
	), s.handleTutorHistory)
}

func (s *Server) handleAskTutor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	question := stringArg(args, "question")
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	ex, err := s.tutor.Ask(ctx, stringArg(args, "materialId"), question, stringArg(args, "subject"))
	if err != nil {
		return nil, err
	}
	return textResult(ex.Reply), nil
}

func (s *Server) handleGenerateQuiz(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	subject := stringArg(args, "subject")
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	count, ok := intArg(args, "count")
	if !ok || count <= 0 {
		count = tutor.DefaultQuizSize
	}
	questions, err := s.tutor.Quiz(ctx, subject, count)
	if err != nil {
		return nil, err
	}
	return jsonResult(questions)
}

func (s *Server) handleTutorHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	materialID := req.GetString("materialId", "")
	if materialID == "" {
		return nil, fmt.Errorf("materialId is required")
	}
	history, err := s.tutor.History(materialID)
	if err != nil {
		return nil, fmt.Errorf("tutor history: %w", err)
	}
	return jsonResult(history)
}
