// internal/database/session.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/classcast/lobbyd/internal/models"
)

// InsertSession writes a new session row.
func InsertSession(ctx context.Context, s *models.Session) error {
	q := `
	INSERT INTO sessions (id, lobby_id, session_number, status, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, s.ID, s.LobbyID, s.Number, s.Status, s.CreatedAt)
		return err
	})
}

// UpdateSessionStatus records an open/full/in_progress/finished change.
func UpdateSessionStatus(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus) error {
	q := `UPDATE sessions SET status = $2 WHERE id = $1`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, sessionID, status)
		return err
	})
}

// InsertParticipant writes a participant's membership in a session.
func InsertParticipant(ctx context.Context, sessionID uuid.UUID, p *models.Participant) error {
	q := `
	INSERT INTO session_participants (id, session_id, display_name, user_id, guest_token, joined_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, p.ID, sessionID, p.DisplayName, p.UserID, nullableString(p.GuestToken), p.JoinedAt)
		return err
	})
}

// DeleteParticipant removes a membership on leave.
func DeleteParticipant(ctx context.Context, sessionID, participantID uuid.UUID) error {
	q := `DELETE FROM session_participants WHERE session_id = $1 AND id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, sessionID, participantID)
		return err
	})
}

// nullableString maps "" to SQL NULL so the user/guest exclusivity check in
// the schema holds.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
