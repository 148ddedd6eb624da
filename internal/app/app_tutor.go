package app

import "haqiba/internal/domain"

// ============================================================
// Tutor
// ============================================================

// ExplainPage sends the page on screen to the tutor.
func (a *App) ExplainPage(prompt, subject string) (domain.TutorExchange, error) {
	return a.svc.tutor.ExplainPage(a.ctx, prompt, subject)
}

func (a *App) AskTutor(materialID, question, subject string) (domain.TutorExchange, error) {
	return a.svc.tutor.Ask(a.ctx, materialID, question, subject)
}

func (a *App) GenerateQuiz(subject string, count int) ([]domain.QuizQuestion, error) {
	return a.svc.tutor.Quiz(a.ctx, subject, count)
}

func (a *App) TutorHistory(materialID string) ([]domain.TutorExchange, error) {
	return a.svc.tutor.History(materialID)
}

func (a *App) ClearTutorHistory(materialID string) error {
	return a.svc.tutor.ClearHistory(materialID)
}

// TutorName is "offline" when no API key is configured.
func (a *App) TutorName() string {
	return a.svc.tutor.TutorName()
}
