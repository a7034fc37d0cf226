package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// collabTokenBytes is the entropy of a guest admission token. 256 bits keeps
// tokens non-enumerable even against offline guessing of the hash column.
const collabTokenBytes = 32

// NewCollabToken returns a fresh opaque guest token in URL-safe base64.
func NewCollabToken() (string, error) {
	buf := make([]byte, collabTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashCollabToken returns the hex digest stored in place of the cleartext
// token. With a pepper it is HMAC-SHA256; without one it falls back to plain
// SHA-256 for dev setups.
func HashCollabToken(token, pepper string) string {
	if pepper == "" {
		sum := sha256.Sum256([]byte(token))
		return hex.EncodeToString(sum[:])
	}
	m := hmac.New(sha256.New, []byte(pepper))
	_, _ = m.Write([]byte(token))
	return hex.EncodeToString(m.Sum(nil))
}
