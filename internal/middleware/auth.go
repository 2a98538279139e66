package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "telemetry-be/pkg/errors"
	"telemetry-be/pkg/logger"
)

// TokenVerifier checks a bearer token presented on the export endpoint.
// The static shared-token verifier is the default; a JWT verifier can be
// swapped in through configuration.
type TokenVerifier interface {
	Verify(token string) error
}

// StaticTokenVerifier compares against one fixed shared secret. This is a
// placeholder gate, not a real security boundary.
type StaticTokenVerifier struct {
	token string
}

// NewStaticTokenVerifier creates a verifier for a fixed shared token
func NewStaticTokenVerifier(token string) *StaticTokenVerifier {
	return &StaticTokenVerifier{token: token}
}

// Verify compares the presented token against the shared secret
func (v *StaticTokenVerifier) Verify(token string) error {
	if v.token == "" {
		return fmt.Errorf("no export token configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return fmt.Errorf("token mismatch")
	}
	return nil
}

// JWTVerifier accepts HS256 tokens signed with a shared secret
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for HS256 JWTs
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the JWT signature and expiry
func (v *JWTVerifier) Verify(token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// ExportAuth gates a route behind a bearer token. Failures answer 403 with
// the standard error envelope.
func ExportAuth(verifier TokenVerifier, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.WithField("path", r.URL.Path).Warn("Export request without bearer token")
				apperrors.WriteResponse(w, apperrors.NewAuthorizationError("Missing or malformed Authorization header"))
				return
			}

			if err := verifier.Verify(token); err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Warn("Export token rejected")
				apperrors.WriteResponse(w, apperrors.NewAuthorizationError("Invalid export token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer x" header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
