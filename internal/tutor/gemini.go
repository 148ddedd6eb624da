package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"haqiba/internal/domain"
)

const (
	DefaultModel       = "gemini-1.5-flash"
	DefaultTemperature = 0.4
	quizTemperature    = 0.2
)

type GeminiConfig struct {
	APIKey      string // falls back to GEMINI_API_KEY, then GOOGLE_API_KEY
	Model       string
	Temperature float32
}

// Gemini is a Tutor backed by the Google Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (g *Gemini) Name() string { return g.model }

func (g *Gemini) Ask(ctx context.Context, req Request) (Reply, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemInstruction(req.Subject))}}
	model.SetTemperature(g.temperature)

	prompt := strings.TrimSpace(req.Prompt)
	var parts []genai.Part
	if len(req.Image) > 0 {
		if prompt == "" {
			prompt = DefaultPagePrompt
		}
		parts = append(parts, genai.ImageData("jpeg", req.Image))
	}
	if prompt == "" {
		return Reply{}, fmt.Errorf("gemini generate: empty prompt")
	}
	parts = append(parts, genai.Text(prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini generate: %w", err)
	}
	text := CleanReply(responseText(resp))
	if text == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{Text: text, Model: g.model}, nil
}

func (g *Gemini) Quiz(ctx context.Context, subject string, count int) ([]domain.QuizQuestion, error) {
	if count <= 0 {
		count = DefaultQuizSize
	}
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(quizTemperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = quizSchema

	resp, err := model.GenerateContent(ctx, genai.Text(quizPrompt(subject, count)))
	if err != nil {
		return nil, fmt.Errorf("gemini quiz: %w", err)
	}
	return ParseQuiz(responseText(resp))
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

var quizSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":            {Type: genai.TypeInteger},
			"question":      {Type: genai.TypeString},
			"options":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"correctAnswer": {Type: genai.TypeInteger},
			"explanation":   {Type: genai.TypeString},
		},
		Required: []string{"id", "question", "options", "correctAnswer"},
	},
}

// ParseQuiz decodes a JSON array of questions and filters out bad ones.
func ParseQuiz(raw string) ([]domain.QuizQuestion, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyReply
	}
	var qs []domain.QuizQuestion
	if err := json.Unmarshal([]byte(raw), &qs); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	return FilterQuiz(qs), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
