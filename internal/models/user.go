// internal/models/user.go
package models

import "github.com/google/uuid"

// User is a registered teacher or student account. Students without accounts
// join sessions as guests and never get a row here.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Name     string    `json:"name"`

	IsTeacher bool `json:"is_teacher"`
}
