package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor identifies the user performing a mutation, for history attribution.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
