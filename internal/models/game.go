// internal/models/game.go
package models

import "github.com/google/uuid"

// Game is display metadata owned by the game registry, referenced but never
// mutated by the coordination engine.
type Game struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Type  string    `json:"type"`
}
