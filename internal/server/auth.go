package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Meghavibansod/HealthLedger/pkg/config"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

type contextKey string

const callerContextKey contextKey = "caller"

// TokenValidator resolves an authenticated caller identity from a bearer
// token. The ledger core never sees credentials; it receives only the
// identity resolved here.
type TokenValidator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(cfg *config.JWTConfig) *TokenValidator {
	return &TokenValidator{
		secret:   []byte(cfg.SecretKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// CallerClaims are the JWT claims carried by ledger callers. The subject
// claim holds the caller's address.
type CallerClaims struct {
	jwt.RegisteredClaims
}

// ResolveCaller validates the token and returns the caller identity from
// its subject claim.
func (tv *TokenValidator) ResolveCaller(tokenString string) (types.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if tv.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tv.issuer))
	}
	if tv.audience != "" {
		opts = append(opts, jwt.WithAudience(tv.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tv.secret, nil
	}, opts...)
	if err != nil {
		return types.ZeroIdentity, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return types.ZeroIdentity, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*CallerClaims)
	if !ok || claims.Subject == "" {
		return types.ZeroIdentity, fmt.Errorf("token is missing the caller subject")
	}

	caller, err := types.ParseIdentity(claims.Subject)
	if err != nil {
		return types.ZeroIdentity, fmt.Errorf("token subject is not a caller address: %w", err)
	}
	return caller, nil
}

// authMiddleware rejects requests without a valid bearer token and stores
// the resolved caller identity in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.writeErrorResponse(w, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}

		caller, err := s.validator.ResolveCaller(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.logger.Security("token_rejected", "", map[string]interface{}{
				"error": err.Error(),
			})
			s.writeErrorResponse(w, http.StatusUnauthorized, "invalid bearer token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), callerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerFromRequest returns the identity the auth middleware resolved.
func callerFromRequest(r *http.Request) (types.Identity, bool) {
	caller, ok := r.Context().Value(callerContextKey).(types.Identity)
	return caller, ok
}
