package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/termchat/termchat/internal/wire"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCredentialsRoundtrip(t *testing.T) {
	db := testDB(t)

	if err := db.SaveCredentials(&Credentials{Token: "tok", UserID: 7, Username: "alice", Email: "a@example.com"}); err != nil {
		t.Fatal(err)
	}

	c, err := db.Credentials()
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Token != "tok" || c.UserID != 7 || c.Username != "alice" {
		t.Errorf("credentials = %+v", c)
	}

	// Saving again replaces, never accumulates.
	if err := db.SaveCredentials(&Credentials{Token: "tok2", UserID: 7, Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	c, _ = db.Credentials()
	if c.Token != "tok2" {
		t.Errorf("token = %q, want tok2", c.Token)
	}
}

func TestCredentialsMissing(t *testing.T) {
	db := testDB(t)

	c, err := db.Credentials()
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("credentials = %+v, want nil", c)
	}
	if tok := db.Token(); tok != "" {
		t.Errorf("Token() = %q, want empty", tok)
	}
}

func TestClearCredentials(t *testing.T) {
	db := testDB(t)

	if err := db.SaveCredentials(&Credentials{Token: "tok", UserID: 1, Username: "u"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearCredentials(); err != nil {
		t.Fatal(err)
	}
	c, err := db.Credentials()
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Error("credentials survived clear")
	}
}

func TestTokenExpiry(t *testing.T) {
	db := testDB(t)

	expired := signedToken(t, time.Now().Add(-time.Hour))
	if err := db.SaveCredentials(&Credentials{Token: expired, UserID: 1, Username: "u"}); err != nil {
		t.Fatal(err)
	}
	if tok := db.Token(); tok != "" {
		t.Errorf("expired token read as %q, want empty", tok)
	}

	valid := signedToken(t, time.Now().Add(time.Hour))
	if err := db.SaveCredentials(&Credentials{Token: valid, UserID: 1, Username: "u"}); err != nil {
		t.Fatal(err)
	}
	if tok := db.Token(); tok != valid {
		t.Errorf("valid token read as %q", tok)
	}
}

func TestTokenOpaquePassesThrough(t *testing.T) {
	db := testDB(t)

	// Not a JWT: no expiry to inspect, the server decides.
	if err := db.SaveCredentials(&Credentials{Token: "opaque-session-id", UserID: 1, Username: "u"}); err != nil {
		t.Fatal(err)
	}
	if tok := db.Token(); tok != "opaque-session-id" {
		t.Errorf("Token() = %q", tok)
	}
}

func TestRoomCache(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertRooms([]wire.Room{
		{ID: 2, Name: "general", Description: "the lobby"},
		{ID: 1, Name: "random"},
	}); err != nil {
		t.Fatal(err)
	}

	rooms, err := db.Rooms()
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 2 || rooms[0].Name != "general" || rooms[1].Name != "random" {
		t.Errorf("rooms = %v, want sorted by name", rooms)
	}

	// Upsert updates in place.
	if err := db.UpsertRooms([]wire.Room{{ID: 2, Name: "general", Description: "renamed"}}); err != nil {
		t.Fatal(err)
	}
	rooms, _ = db.Rooms()
	if len(rooms) != 2 || rooms[0].Description != "renamed" {
		t.Errorf("rooms after upsert = %v", rooms)
	}
}
