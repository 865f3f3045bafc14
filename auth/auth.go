// Package auth classifies cache credentials into access levels.
//
// Three kinds of credentials are accepted: a static read-only secret, a
// static read-write secret, and signed tokens of the form
// <payload>.<signature> where payload is base64url-encoded JSON and
// signature is base64url(HMAC-SHA256(secret, payload)). Verification is a
// pure function with no I/O.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Level is the access granted by a credential.
type Level int

const (
	// LevelNone grants nothing; the credential was absent or invalid.
	LevelNone Level = iota

	// LevelRead grants read access.
	LevelRead

	// LevelReadWrite grants read and write access.
	LevelReadWrite
)

// CanRead reports whether the level permits cache reads.
func (l Level) CanRead() bool {
	return l == LevelRead || l == LevelReadWrite
}

// CanWrite reports whether the level permits cache writes.
func (l Level) CanWrite() bool {
	return l == LevelReadWrite
}

func (l Level) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelReadWrite:
		return "readwrite"
	default:
		return "none"
	}
}

// Permission values embedded in signed tokens.
const (
	PermissionReadOnly  = "readonly"
	PermissionReadWrite = "readwrite"
)

type claims struct {
	Permissions string `json:"permissions"`
	UserID      string `json:"userId,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// Verifier checks credentials against the configured secrets.
type Verifier struct {
	secretKey      []byte
	readOnlyToken  string
	readWriteToken string
}

// NewVerifier creates a Verifier. secretKey signs and verifies custom
// tokens; readOnlyToken and readWriteToken are the static secrets.
func NewVerifier(secretKey, readOnlyToken, readWriteToken string) *Verifier {
	return &Verifier{
		secretKey:      []byte(secretKey),
		readOnlyToken:  readOnlyToken,
		readWriteToken: readWriteToken,
	}
}

// Verify classifies a credential. An optional "Bearer" scheme prefix is
// stripped first. Any malformed or tampered token yields LevelNone.
func (v *Verifier) Verify(credential string) Level {
	token := stripBearer(credential)
	if token == "" {
		return LevelNone
	}

	if v.readOnlyToken != "" && hmac.Equal([]byte(token), []byte(v.readOnlyToken)) {
		return LevelRead
	}
	if v.readWriteToken != "" && hmac.Equal([]byte(token), []byte(v.readWriteToken)) {
		return LevelReadWrite
	}

	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return LevelNone
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return LevelNone
	}
	if !hmac.Equal(sigBytes, v.sign(payload)) {
		return LevelNone
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return LevelNone
	}
	var c claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return LevelNone
	}
	if c.Permissions == PermissionReadWrite {
		return LevelReadWrite
	}
	return LevelRead
}

// Generate mints a signed token embedding the given permission and an
// optional user id. Empty userID defaults to "anonymous".
func (v *Verifier) Generate(permission, userID string) (string, error) {
	if permission != PermissionReadOnly && permission != PermissionReadWrite {
		return "", &InvalidPermissionError{Permission: permission}
	}
	if userID == "" {
		userID = "anonymous"
	}
	raw, err := json.Marshal(claims{
		Permissions: permission,
		UserID:      userID,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	sig := base64.RawURLEncoding.EncodeToString(v.sign(payload))
	return payload + "." + sig, nil
}

// InvalidPermissionError reports an unknown permission passed to Generate.
type InvalidPermissionError struct {
	Permission string
}

func (e *InvalidPermissionError) Error() string {
	return fmt.Sprintf("auth: invalid permission %q", e.Permission)
}

func (v *Verifier) sign(payload string) []byte {
	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// stripBearer removes a leading "Bearer" scheme and surrounding
// whitespace from a credential.
func stripBearer(credential string) string {
	credential = strings.TrimSpace(credential)
	rest, ok := strings.CutPrefix(credential, "Bearer")
	if !ok {
		return credential
	}
	if rest == "" {
		return ""
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		// Not a scheme prefix, just a credential that starts
		// with "Bearer".
		return credential
	}
	return strings.TrimLeft(rest, " \t")
}
