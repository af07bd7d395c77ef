// internal/database/lobby.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/classcast/lobbyd/internal/models"
)

// InsertLobby writes a freshly-created lobby row.
func InsertLobby(ctx context.Context, l *models.Lobby) error {
	q := `
	INSERT INTO lobbies (
		id, lobby_code, game_id, status,
		invitation_type, max_players, max_sessions,
		starts_at, ends_at, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			l.ID,
			l.Code,
			l.GameID,
			l.Status,
			l.Settings.InvitationType,
			l.Settings.MaxPlayers,
			l.Settings.MaxSessions,
			l.StartsAt,
			l.EndsAt,
			l.CreatedAt,
		)
		return err
	})
}

// UpdateLobbyStatus records a lifecycle transition. The in-memory engine has
// already validated monotonicity, so this is a plain write.
func UpdateLobbyStatus(ctx context.Context, lobbyID uuid.UUID, status models.LobbyStatus) error {
	q := `UPDATE lobbies SET status = $2 WHERE id = $1`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, lobbyID, status)
		return err
	})
}

