// internal/database/game.go
package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/classcast/lobbyd/internal/models"
)

// GetGame reads display metadata from the game registry. The engine never
// writes this table; it belongs to the authoring side of the product.
func GetGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	var g models.Game
	q := `SELECT id, title, game_type FROM games WHERE id = $1`
	if err := DB.QueryRow(ctx, q, gameID).Scan(&g.ID, &g.Title, &g.Type); err != nil {
		return nil, err
	}
	return &g, nil
}
