package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
	"github.com/golang-jwt/jwt/v5"
)

type actorKey struct{}

// Claims is the bearer token payload. The subject is the actor id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// BearerAuth verifies an HS256 token issued by issuer and stores the actor it
// names on the request context.
func BearerAuth(signingKey []byte, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(signingKey) == 0 {
				logger.Error("auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "server auth configuration is missing", http.StatusInternalServerError)
				return
			}

			actor, err := ParseActor(r.Header.Get("Authorization"), signingKey, issuer)
			if err != nil {
				logger.Info("auth middleware unauthorized request", logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"reason": err.Error(),
				})
				w.Header().Set("WWW-Authenticate", `Bearer realm="core-banking"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			logger.Info("auth middleware authorized request", logger.Fields{
				"method":    r.Method,
				"path":      r.URL.Path,
				"actorId":   actor.ID,
				"actorRole": string(actor.Role),
			})
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// ParseActor validates an Authorization header value and returns its actor.
func ParseActor(header string, signingKey []byte, issuer string) (domain.Actor, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.Actor{}, errors.New("bearer token is required")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Actor{}, mapJWTError(err)
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Actor{}, err
	}
	actor := domain.Actor{ID: claims.Subject, Role: role}
	if err := actor.Validate(); err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}

// IssueToken signs a token for actor valid for ttl from now.
func IssueToken(signingKey []byte, issuer string, actor domain.Actor, ttl time.Duration, now time.Time) (string, error) {
	if err := actor.Validate(); err != nil {
		return "", err
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(actor.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.New("token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.New("token signature is invalid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return errors.New("token issuer mismatch")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.New("token alg is invalid")
	default:
		return errors.New("token is malformed")
	}
}
