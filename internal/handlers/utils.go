package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reelhub/apiserver/internal/token"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

var errNoIdentity = errors.New("missing identity")

// withIdentity returns a context carrying the verified request identity.
func withIdentity(ctx context.Context, identity token.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

// identityFromContext extracts the identity attached by RequireAuth.
func identityFromContext(ctx context.Context) (token.Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(token.Identity)
	if !ok || identity.UserID < 1 {
		return token.Identity{}, errNoIdentity
	}
	return identity, nil
}

// ErrorResponse is the failure payload: a human-readable message, plus
// the raw error detail on unexpected store failures.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeStoreError reports an opaque persistence failure. Store errors are
// never retried; they surface unchanged at the boundary.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: message, Error: err.Error()})
}

// Healthz is a liveness endpoint.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
