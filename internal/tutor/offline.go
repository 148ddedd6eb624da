package tutor

import (
	"context"
	"fmt"

	"haqiba/internal/domain"
)

// Offline answers without a model. It keeps the reader usable when no API
// key is configured.
type Offline struct{}

func (Offline) Name() string { return "offline" }

func (Offline) Ask(_ context.Context, req Request) (Reply, error) {
	text := "The tutor is not connected right now. Add an API key in settings and try again."
	if len(req.Image) > 0 {
		text = fmt.Sprintf("Page received (%d KB). %s", (len(req.Image)+1023)/1024, text)
	}
	return Reply{Text: text, Model: "offline"}, nil
}

func (Offline) Quiz(context.Context, string, int) ([]domain.QuizQuestion, error) {
	return nil, ErrOffline
}
