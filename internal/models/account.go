package models

import "time"

// Account is a user row in the users table, backing bearer-token
// authentication. Password hashing and account bootstrap sit outside the
// job queue core; the core only ever consults Account via the UserStore
// interface during token verification.
type Account struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Disabled       bool      `json:"disabled"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
