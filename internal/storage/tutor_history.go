package storage

import (
	"fmt"
	"time"

	"haqiba/internal/domain"
)

// TutorHistoryStore implements domain.TutorHistoryStore using SQLite.
type TutorHistoryStore struct {
	db *DB
}

func NewTutorHistoryStore(db *DB) *TutorHistoryStore {
	return &TutorHistoryStore{db: db}
}

func (s *TutorHistoryStore) AddExchange(e *domain.TutorExchange) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO tutor_history (id, material_id, page, prompt, reply, model, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.MaterialID, e.Page, e.Prompt, e.Reply, e.Model, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add tutor exchange: %w", err)
	}
	return nil
}

// ListExchanges returns the newest exchanges for a material first.
// A limit <= 0 returns all of them.
func (s *TutorHistoryStore) ListExchanges(materialID string, limit int) ([]domain.TutorExchange, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.conn.Query(
		`SELECT id, material_id, page, prompt, reply, model, created_at FROM tutor_history
		 WHERE material_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		materialID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TutorExchange
	for rows.Next() {
		var e domain.TutorExchange
		if err := rows.Scan(&e.ID, &e.MaterialID, &e.Page, &e.Prompt, &e.Reply, &e.Model, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *TutorHistoryStore) DeleteExchanges(materialID string) error {
	_, err := s.db.conn.Exec(`DELETE FROM tutor_history WHERE material_id = ?`, materialID)
	return err
}
