package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

// SessionClaims are the registered + custom claims extracted from a user
// session JWT. Subject is the user UUID; JTI is exposed so callers can
// implement session revocation if they choose to.
type SessionClaims struct {
	Subject string
	JTI     string
}

// SessionValidator validates a signed user-session JWT and extracts its
// claims. Two implementations are provided: one that verifies against a
// single pre-loaded public key, and one that verifies against a JWKS fetched
// from an external identity provider (Apple/Google-style). Both share one
// user-visible failure mode: validation errors never distinguish expired
// from malformed from wrong-key, to avoid leaking signal to an attacker.
type SessionValidator interface {
	Validate(ctx context.Context, rawToken string) (*SessionClaims, error)
}

// StaticKeyValidator verifies session JWTs against one pre-loaded public key,
// the common case when sessions are issued by this service's own signer.
type StaticKeyValidator struct {
	PublicKey   any // *rsa.PublicKey, *ecdsa.PublicKey, or ed25519.PublicKey
	ClockLeeway time.Duration
}

// Validate implements SessionValidator.
func (v *StaticKeyValidator) Validate(_ context.Context, rawToken string) (*SessionClaims, error) {
	tok, err := josejwt.ParseSigned(rawToken, []josejwt.SignatureAlgorithm{"RS256", "ES256", "EdDSA"})
	if err != nil {
		return nil, fmt.Errorf("auth: parsing session token: %w", err)
	}

	var claims josejwt.Claims
	if err := tok.Claims(v.PublicKey, &claims); err != nil {
		return nil, fmt.Errorf("auth: verifying session token: %w", err)
	}

	leeway := v.ClockLeeway
	if leeway <= 0 {
		leeway = 30 * time.Second
	}
	if err := claims.ValidateWithLeeway(josejwt.Expected{Time: time.Now()}, leeway); err != nil {
		return nil, fmt.Errorf("auth: session token claims invalid: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("auth: session token missing subject")
	}

	return &SessionClaims{Subject: claims.Subject, JTI: claims.ID}, nil
}

// JWKSValidator verifies session JWTs against a key set fetched (and
// periodically refreshed) from an external issuer, for identity tokens minted
// by a third-party provider rather than this service. Discovery of the
// provider's signing keys is the only thing it does — claim semantics
// (subject, jti) are identical to StaticKeyValidator.
type JWKSValidator struct {
	verifier    *oidc.IDTokenVerifier
	clockLeeway time.Duration
}

// NewJWKSValidator performs OIDC discovery against issuerURL and returns a
// validator backed by the provider's published key set.
func NewJWKSValidator(ctx context.Context, issuerURL, audience string, clockLeeway time.Duration) (*JWKSValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("auth: discovering identity provider %s: %w", issuerURL, err)
	}
	return &JWKSValidator{
		verifier:    provider.Verifier(&oidc.Config{ClientID: audience}),
		clockLeeway: clockLeeway,
	}, nil
}

// Validate implements SessionValidator.
func (v *JWKSValidator) Validate(ctx context.Context, rawToken string) (*SessionClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("auth: verifying identity token: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		JTI     string `json:"jti"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("auth: extracting identity token claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("auth: identity token missing subject")
	}

	return &SessionClaims{Subject: claims.Subject, JTI: claims.JTI}, nil
}

// SessionResolver turns a validated SessionClaims into a Principal.
type SessionResolver struct {
	Validator SessionValidator
}

// Resolve validates rawToken and maps it to a Principal. Every failure path
// — expired, malformed, wrong key, non-UUID subject — collapses to the same
// Unauthorized message so callers cannot distinguish why a token failed.
func (s *SessionResolver) Resolve(ctx context.Context, rawToken string) *Principal {
	claims, err := s.Validator.Validate(ctx, rawToken)
	if err != nil {
		return nil
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil
	}

	return &Principal{
		Kind:   KindUserSession,
		UserID: userID,
		JTI:    claims.JTI,
	}
}
