package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")

	// ErrWeakSecret is returned when the shared secret is too short to sign with.
	ErrWeakSecret = errors.New("jwtx: signing secret must be at least 32 bytes")
)

// Signer is anything that can sign access-token claims.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a JWT and gives you back the claims if it's legit.
//
// Verify checks the signature before trusting any claim, then issuer and
// expiry. It fails with ErrInvalidSig, ErrIssuer, ErrExpired, ErrNotYetValid
// or ErrMalformed; a nil error means the claims are usable as-is.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies tokens with a shared secret. It is pure and
// stateless: verification never consults the grant stores.
type HS256 struct {
	secret []byte
	issuer string
}

// NewHS256 builds the shared-secret signer/verifier pair. The secret is
// injected from the environment; short secrets are rejected outright rather
// than silently weakening every token in the system.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	return &HS256{secret: secret, issuer: issuer}, nil
}

// Sign produces a compact HS256 JWT from the given claims.
func (h *HS256) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

// Verify parses the token, enforcing the HS256 algorithm and signature, and
// returns the canonicalized claims after issuer and expiry checks. Signature
// validity is established before any claim is inspected.
func (h *HS256) Verify(raw string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// Claims are validated below, after Canonicalize has folded the
		// legacy spellings into the standard fields.
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	claims.Canonicalize()

	if err := claims.ValidateIssuer(h.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
