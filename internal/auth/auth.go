// Package auth computes the expected credential digest for a request and
// compares it against the caller-supplied token.
package auth

import (
	"crypto/sha512"
	"encoding/hex"
	"time"
)

// Protocol defaults. Deployments override them through configuration.
const (
	DefaultSalt       = "Otus"
	DefaultAdminSalt  = "42"
	DefaultAdminLogin = "admin"
)

// Authenticator holds the secrets used for digest computation. Admin
// tokens bind to the current clock hour and the admin salt only; regular
// tokens bind to account+login+salt and never expire. The asymmetry is
// part of the protocol.
type Authenticator struct {
	salt       string
	adminSalt  string
	adminLogin string
	now        func() time.Time
}

// New returns an Authenticator for the given secrets. Empty arguments fall
// back to the protocol defaults.
func New(salt, adminSalt, adminLogin string) *Authenticator {
	if salt == "" {
		salt = DefaultSalt
	}
	if adminSalt == "" {
		adminSalt = DefaultAdminSalt
	}
	if adminLogin == "" {
		adminLogin = DefaultAdminLogin
	}
	return &Authenticator{salt: salt, adminSalt: adminSalt, adminLogin: adminLogin, now: time.Now}
}

// IsAdmin reports whether the login is the privileged one.
func (a *Authenticator) IsAdmin(login string) bool { return login == a.adminLogin }

// Check reports whether the supplied token matches the expected digest.
// The comparison is an exact string match.
func (a *Authenticator) Check(account, login, token string) bool {
	var expected string
	if a.IsAdmin(login) {
		expected = digest(a.now().Format("2006010215") + a.adminSalt)
	} else {
		expected = digest(account + login + a.salt)
	}
	return expected == token
}

// AdminToken returns the token valid for the current clock hour. Used by
// tooling and tests; the hour window has no skew tolerance.
func (a *Authenticator) AdminToken() string {
	return digest(a.now().Format("2006010215") + a.adminSalt)
}

// UserToken returns the token valid for an account/login pair.
func (a *Authenticator) UserToken(account, login string) string {
	return digest(account + login + a.salt)
}

func digest(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}
