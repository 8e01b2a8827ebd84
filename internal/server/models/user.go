// Package models defines server-side records persisted in the database.
package models

import "time"

// User is an account. Email is stored lower-cased and is unique.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"hashed_password"`
	CreatedAt    time.Time `db:"created_at"`
}
