// Package link signs and verifies invitation link tokens. An emailed
// invitation carries a URL whose token embeds the code, school, and
// recipient, so the landing page can validate the link offline before
// the accept call hits the store.
package link

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"homeroom/internal/invitation/models"
	dErrors "homeroom/pkg/domain-errors"
)

// Claims is the token payload. The registered expiry mirrors the
// invitation row's ExpiresAt; the store stays authoritative either way.
type Claims struct {
	Code     string `json:"code"`
	SchoolID string `json:"school_id"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and parses HS256 link tokens.
type Signer struct {
	key     []byte
	baseURL string
}

// NewSigner creates a Signer. baseURL is the acceptance page the mailed
// link points at.
func NewSigner(key []byte, baseURL string) *Signer {
	return &Signer{key: key, baseURL: baseURL}
}

// Sign produces a token for an invitation.
func (s *Signer) Sign(inv *models.InvitationCode) (string, error) {
	claims := Claims{
		Code:     inv.Code,
		SchoolID: inv.SchoolID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(inv.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(inv.ExpiresAt),
		},
	}
	if inv.Email != nil {
		claims.Email = *inv.Email
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign invitation link")
	}
	return token, nil
}

// BuildURL wraps a signed token into the full acceptance link.
func (s *Signer) BuildURL(token string) string {
	return fmt.Sprintf("%s?token=%s", s.baseURL, url.QueryEscape(token))
}

// Parse validates a link token and returns the invitation code inside
// it. A token that fails signature or expiry checks yields
// invalid_or_expired_code; the caller never learns which.
func (s *Signer) Parse(token string, now time.Time) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidOrExpiredCode, "invitation link is invalid or expired")
	}
	if claims.Code == "" {
		return "", dErrors.New(dErrors.CodeInvalidOrExpiredCode, "invitation link is invalid or expired")
	}
	return claims.Code, nil
}
