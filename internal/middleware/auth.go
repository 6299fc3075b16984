package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"peerprep/interview/internal/utils"
)

const candidateKey contextKey = "candidate_id"

const maxCandidateIDLength = 128

// CandidateClaims are the token claims that identify a candidate.
type CandidateClaims struct {
	jwt.RegisteredClaims
}

// Authenticate resolves the candidate id for every request. With a secret the
// id is the subject of an HMAC-signed bearer token, read from the
// Authorization header or the token query parameter for websocket clients.
// Without a secret the X-Candidate-ID header or candidate_id query is trusted.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var candidateID string
			var err error
			if secret == "" {
				candidateID, err = headerIdentity(r)
			} else {
				candidateID, err = tokenIdentity(r, []byte(secret))
			}
			if err != nil {
				utils.Error(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), candidateKey, candidateID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CandidateID returns the id stored by Authenticate.
func CandidateID(ctx context.Context) string {
	id, _ := ctx.Value(candidateKey).(string)
	return id
}

// WithCandidateID is used by tests and internal callers that bypass Authenticate.
func WithCandidateID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, candidateKey, id)
}

func headerIdentity(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get("X-Candidate-ID"))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("candidate_id"))
	}
	if id == "" {
		return "", errors.New("candidate id missing")
	}
	if len(id) > maxCandidateIDLength {
		return "", errors.New("candidate id too long")
	}
	return id, nil
}

func tokenIdentity(r *http.Request, secret []byte) (string, error) {
	tokenString, err := extractToken(r)
	if err != nil {
		return "", err
	}

	claims := &CandidateClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return "", errors.New("invalid authorization header format")
		}
		return authHeader[7:], nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errors.New("authorization header missing")
}
