package model

import "time"

// Category groups todos. The (UserID, Name) pair is unique.
type Category struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"-"          db:"user_id"`
	Name      string    `json:"name"       db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
