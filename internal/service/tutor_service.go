package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/logger"

	"haqiba/internal/domain"
	"haqiba/internal/reader"
	"haqiba/internal/tutor"
)

// ErrScanInProgress is returned while a page of the same material is
// already with the tutor.
var ErrScanInProgress = errors.New("a page scan is already in progress")

const historyLimit = 50

// ScanEvent is emitted on EventTutorScanning around each page scan.
type ScanEvent struct {
	ScanID     string `json:"scanId"`
	MaterialID string `json:"materialId"`
	Page       int    `json:"page"`
	Scanning   bool   `json:"scanning"`
}

// ─────────────────────────────────────────────────────────────
// Tutor Service: page capture handed to the AI tutor
// ─────────────────────────────────────────────────────────────

type TutorService struct {
	tutor   tutor.Tutor
	reader  *ReaderService
	history domain.TutorHistoryStore
	emitter EventEmitter
	log     logger.Logger
	scans   runningGuard
}

func NewTutorService(t tutor.Tutor, rs *ReaderService, history domain.TutorHistoryStore, emitter EventEmitter, log logger.Logger) *TutorService {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &TutorService{tutor: t, reader: rs, history: history, emitter: emitter, log: log}
}

func (s *TutorService) TutorName() string { return s.tutor.Name() }

// ExplainPage captures the page on screen and asks the tutor about it.
// An empty prompt asks for a full explanation of the page.
func (s *TutorService) ExplainPage(ctx context.Context, prompt, subject string) (domain.TutorExchange, error) {
	st := s.reader.State()
	if st.Status != reader.StatusReady {
		return domain.TutorExchange{}, reader.ErrCaptureUnavailable
	}
	if !s.scans.TryLock(st.MaterialID) {
		return domain.TutorExchange{}, ErrScanInProgress
	}
	defer s.scans.Unlock(st.MaterialID)

	scan := ScanEvent{ScanID: uuid.New().String(), MaterialID: st.MaterialID, Page: st.Viewport.CurrentPage, Scanning: true}
	s.emitter.Emit(ctx, EventTutorScanning, scan)
	defer func() {
		scan.Scanning = false
		s.emitter.Emit(ctx, EventTutorScanning, scan)
	}()

	img, err := s.reader.Capture()
	if err != nil {
		return domain.TutorExchange{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = tutor.DefaultPagePrompt
	}

	reply, err := s.tutor.Ask(ctx, tutor.Request{Prompt: prompt, Subject: subject, Image: img})
	if err != nil {
		s.log.Error(fmt.Sprintf("[Tutor] explain %s p.%d: %v", scan.MaterialID, scan.Page, err))
		return domain.TutorExchange{}, fmt.Errorf("explain page: %w", err)
	}
	return s.record(ctx, scan.ScanID, scan.MaterialID, scan.Page, prompt, reply), nil
}

// Ask is a text-only question, filed under materialID when one is given.
func (s *TutorService) Ask(ctx context.Context, materialID, prompt, subject string) (domain.TutorExchange, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.TutorExchange{}, errors.New("ask: empty question")
	}
	reply, err := s.tutor.Ask(ctx, tutor.Request{Prompt: prompt, Subject: subject})
	if err != nil {
		s.log.Error(fmt.Sprintf("[Tutor] ask: %v", err))
		return domain.TutorExchange{}, fmt.Errorf("ask: %w", err)
	}
	return s.record(ctx, uuid.New().String(), materialID, 0, prompt, reply), nil
}

func (s *TutorService) Quiz(ctx context.Context, subject string, count int) ([]domain.QuizQuestion, error) {
	qs, err := s.tutor.Quiz(ctx, subject, count)
	if err != nil {
		return nil, fmt.Errorf("quiz %s: %w", subject, err)
	}
	return qs, nil
}

func (s *TutorService) History(materialID string) ([]domain.TutorExchange, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListExchanges(materialID, historyLimit)
}

func (s *TutorService) ClearHistory(materialID string) error {
	if s.history == nil {
		return nil
	}
	return s.history.DeleteExchanges(materialID)
}

// Wait blocks until in-flight scans finish or ctx is done.
func (s *TutorService) Wait(ctx context.Context) {
	s.scans.WaitAll(ctx)
}

func (s *TutorService) record(ctx context.Context, id, materialID string, page int, prompt string, reply tutor.Reply) domain.TutorExchange {
	e := domain.TutorExchange{
		ID:         id,
		MaterialID: materialID,
		Page:       page,
		Prompt:     prompt,
		Reply:      reply.Text,
		Model:      reply.Model,
	}
	if s.history != nil && materialID != "" {
		if err := s.history.AddExchange(&e); err != nil {
			s.log.Warning(fmt.Sprintf("[Tutor] save exchange %s: %v", id, err))
		}
	}
	s.emitter.Emit(ctx, EventTutorReply, e)
	return e
}
