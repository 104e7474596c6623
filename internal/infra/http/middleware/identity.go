package middleware

import (
	"context"
	"net/http"
)

// Identity headers are injected by the platform's API gateway, which has
// already authenticated the caller. This service trusts them as-is.
const (
	HeaderStudentID    = "X-Student-Id"
	HeaderStudentEmail = "X-Student-Email"
	HeaderRole         = "X-Role"
)

type contextKey string

const identityKey contextKey = "identity"

type Identity struct {
	StudentID string
	Email     string
	Role      string
}

func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// Identity extracts the caller's identity headers into the request context.
func IdentityExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			StudentID: r.Header.Get(HeaderStudentID),
			Email:     r.Header.Get(HeaderStudentEmail),
			Role:      r.Header.Get(HeaderRole),
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// RequireStudent rejects requests without a student identity.
func RequireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()).StudentID == "" {
			http.Error(w, `{"error":"UNAUTHENTICATED"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose role is not admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFrom(r.Context()).IsAdmin() {
			http.Error(w, `{"error":"FORBIDDEN"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
