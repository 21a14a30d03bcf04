package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the stored session credential plus the cached user
// profile it belongs to.
type Credentials struct {
	Token    string
	UserID   int
	Username string
	Email    string
}

// SaveCredentials stores the credential, replacing any previous one.
func (db *DB) SaveCredentials(c *Credentials) error {
	_, err := db.Exec(`
		INSERT INTO credentials (id, token, user_id, username, email, saved_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			username = excluded.username,
			email = excluded.email,
			saved_at = excluded.saved_at`,
		c.Token, c.UserID, c.Username, c.Email, time.Now().UnixMilli())
	return err
}

// Credentials returns the stored credential, or nil when none exists.
func (db *DB) Credentials() (*Credentials, error) {
	var c Credentials
	err := db.QueryRow(`SELECT token, user_id, username, email FROM credentials WHERE id = 1`).
		Scan(&c.Token, &c.UserID, &c.Username, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClearCredentials removes the stored credential (logout).
func (db *DB) ClearCredentials() error {
	_, err := db.Exec(`DELETE FROM credentials WHERE id = 1`)
	return err
}

// Token implements the connection manager's TokenProvider. It returns
// the stored bearer token, or empty when none exists or the token has
// expired. An expired credential reads as absent, so the manager skips
// the connect instead of attempting a doomed handshake.
func (db *DB) Token() string {
	c, err := db.Credentials()
	if err != nil || c == nil {
		return ""
	}
	if tokenExpired(c.Token, time.Now()) {
		return ""
	}
	return c.Token
}

// tokenExpired inspects the JWT exp claim without verifying the
// signature; the server remains the authority, this only avoids
// obviously dead tokens. Opaque (non-JWT) tokens pass through.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
