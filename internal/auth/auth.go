// Package auth verifies bearer tokens and attaches the caller's identity
// to the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Verifier checks a bearer token and returns the user id it was issued to.
type Verifier interface {
	Verify(token string) (string, error)
}

// HSVerifier validates HS256-signed JWTs against a shared secret.
type HSVerifier struct {
	secret []byte
}

// NewHSVerifier returns a Verifier for HS256 tokens signed with secret.
func NewHSVerifier(secret string) (*HSVerifier, error) {
	if secret == "" {
		return nil, eris.New("auth: signing secret is empty")
	}
	return &HSVerifier{secret: []byte(secret)}, nil
}

// Verify parses and validates token, returning the subject claim.
func (v *HSVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.Errorf("auth: unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", eris.Wrap(err, "auth: parse token")
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", eris.New("auth: token has no subject")
	}
	return sub, nil
}

type contextKey struct{}

// UserID returns the authenticated user id stored in ctx, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok
}

// WithUserID returns a context carrying id. Exposed for handler tests.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware rejects requests without a valid bearer token. Failures are
// answered with 401 and a JSON body matching the rest of the API surface.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			userID, err := v.Verify(token)
			if err != nil {
				zap.L().Debug("rejected token", zap.Error(err))
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"` + msg + `"}`))
}
