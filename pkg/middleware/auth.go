package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/finance/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey ContextKey = "user_id"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims issued by the auth service
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens
type Authenticator struct {
	secretKey []byte
}

// NewAuthenticator creates an authenticator for tokens signed with secretKey
func NewAuthenticator(secretKey string) *Authenticator {
	return &Authenticator{secretKey: []byte(secretKey)}
}

// Validate parses a token and returns the user it was issued for
func (a *Authenticator) Validate(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secretKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad user id", ErrInvalidToken)
	}
	return userID, nil
}

// Middleware rejects requests without a valid bearer token
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		userID, err := a.Validate(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// DevUserMiddleware takes the user ID from the X-Test-User-ID header and
// falls back to defaultUser. Development only.
func DevUserMiddleware(defaultUser uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := defaultUser
			if header := r.Header.Get("X-Test-User-ID"); header != "" {
				parsed, err := uuid.Parse(header)
				if err != nil {
					response.BadRequest(w, "Invalid X-Test-User-ID header")
					return
				}
				userID = parsed
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID stores the authenticated user ID in ctx
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
