package models

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// Session identifies one dashboard browser. Only the hash of the token is
// ever written to the database, so a leaked row cannot be replayed as a
// cookie.
type Session struct {
	// Token is the raw cookie value.
	Token string
	// Key is the hashed token used as the storage key.
	Key string
}

// NewSession issues a fresh random session.
func NewSession() *Session {
	token := uuid.NewString()
	return &Session{Token: token, Key: SessionKey(token)}
}

// SessionFromToken rebuilds a session from a cookie value. It returns
// false when the token is not a well-formed uuid.
func SessionFromToken(token string) (*Session, bool) {
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		return nil, false
	}
	return &Session{Token: token, Key: SessionKey(token)}, true
}

// SessionKey hashes a session token into its storage key.
func SessionKey(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}
