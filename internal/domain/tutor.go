package domain

import "time"

// TutorExchange is one question put to the tutor about a page and its reply.
type TutorExchange struct {
	ID         string    `json:"id"`
	MaterialID string    `json:"materialId"`
	Page       int       `json:"page"`
	Prompt     string    `json:"prompt"`
	Reply      string    `json:"reply"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"createdAt"`
}

type TutorHistoryStore interface {
	AddExchange(e *TutorExchange) error
	ListExchanges(materialID string, limit int) ([]TutorExchange, error)
	DeleteExchanges(materialID string) error
}

// QuizQuestion is one multiple-choice question. CorrectAnswer indexes Options.
type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Valid reports whether the question can be shown as-is.
func (q QuizQuestion) Valid() bool {
	return q.Question != "" && len(q.Options) >= 2 && q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options)
}
