package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eventmaster/backend/internal/apperr"
)

// ExternalClaims are the verified claims extracted from an externally issued
// token. Groups is nil when the token carries no group-membership claim.
type ExternalClaims struct {
	Subject string
	Email   string
	Groups  []string
}

// ExternalVerifier validates RS256 tokens from the configured identity
// provider against the cached key set.
type ExternalVerifier struct {
	keys        *KeySetCache
	issuer      string
	groupsClaim string
}

// NewExternalVerifier creates a verifier for tokens issued by issuer, with
// group memberships read from the named claim.
func NewExternalVerifier(keys *KeySetCache, issuer, groupsClaim string) *ExternalVerifier {
	return &ExternalVerifier{keys: keys, issuer: issuer, groupsClaim: groupsClaim}
}

// Verify checks signature, issuer, and expiry and returns the claims.
// All failures are InvalidCredential.
func (v *ExternalVerifier) Verify(ctx context.Context, tokenString string) (*ExternalClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, apperr.InvalidCredential("token has no key identifier")
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, apperr.InvalidCredential("invalid external token")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, apperr.InvalidCredential("token has no subject")
	}

	out := &ExternalClaims{Subject: sub}
	out.Email, _ = claims["email"].(string)
	if raw, ok := claims[v.groupsClaim].([]interface{}); ok {
		out.Groups = make([]string, 0, len(raw))
		for _, g := range raw {
			if s, ok := g.(string); ok {
				out.Groups = append(out.Groups, s)
			}
		}
	}
	return out, nil
}
