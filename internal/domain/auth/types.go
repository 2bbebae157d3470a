package auth

import "time"

// Config drives token inspection. With an empty Secret the signature is left
// to the upstream API and only the claims are read.
type Config struct {
	Secret string
	Leeway time.Duration
}

// Claims are extracted from the bearer token.
type Claims struct {
	Subject   string
	TokenType string
	ExpiresAt time.Time
}

// Scope is the key suffix that isolates one user's cached sessions.
func (c Claims) Scope() string {
	return c.Subject
}
