// Package tutor talks to the AI study helper: a captured page plus a prompt
// in, plain text out. Quizzes come back as structured questions.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"haqiba/internal/domain"
)

var (
	ErrMissingAPIKey = errors.New("tutor: missing API key")
	ErrEmptyReply    = errors.New("tutor: empty reply")
	ErrOffline       = errors.New("tutor: offline")
)

// DefaultPagePrompt is used when a page is sent without a question.
const DefaultPagePrompt = "Explain this page to me in full detail, and pull out every definition, every reason-why and every likely ministerial exam question."

const DefaultQuizSize = 5

type Request struct {
	Prompt  string
	Subject string
	Image   []byte // JPEG; optional
}

type Reply struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type Tutor interface {
	Ask(ctx context.Context, req Request) (Reply, error)
	Quiz(ctx context.Context, subject string, count int) ([]domain.QuizQuestion, error)
	Name() string
}

// SystemInstruction frames the tutor for one subject.
func SystemInstruction(subject string) string {
	if subject = strings.TrimSpace(subject); subject == "" {
		subject = "the current subject"
	}
	return fmt.Sprintf(`You are a very experienced Iraqi private tutor for %s, third intermediate grade.

Style:
1. Speak plain, friendly Iraqi Arabic.
2. Explain in detail and accurately.
3. Never use formatting symbols such as ** or ## or # or -. Write plain text only.
4. Use blank lines and new lines to organise the answer instead of symbols.

Answer structure:
A short introduction
The detailed explanation
Likely ministerial exam questions
The summary`, subject)
}

func quizPrompt(subject string, count int) string {
	return fmt.Sprintf("Create %d multiple-choice questions for %s, Iraqi curriculum, third intermediate grade. Focus on ministerial exam questions that recur.", count, subject)
}

// CleanReply strips markdown symbols the model emits despite instructions.
func CleanReply(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '*', '#', '_', '`', '~':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// FilterQuiz drops malformed questions and renumbers the rest from 1.
func FilterQuiz(qs []domain.QuizQuestion) []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, 0, len(qs))
	for _, q := range qs {
		if !q.Valid() {
			continue
		}
		q.ID = len(out) + 1
		out = append(out, q)
	}
	return out
}
