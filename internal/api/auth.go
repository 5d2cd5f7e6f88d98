package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/coldreach/dripengine/internal/config"
	"github.com/coldreach/dripengine/internal/pkg/httputil"
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

// Authenticator resolves bearer API keys to owner identities.
type Authenticator struct {
	owners map[string]string // key -> owner id
}

func NewAuthenticator(keys []config.APIKey) *Authenticator {
	owners := make(map[string]string, len(keys))
	for _, k := range keys {
		if k.Key != "" {
			owners[k.Key] = k.OwnerID
		}
	}
	return &Authenticator{owners: owners}
}

// Middleware rejects requests without a valid key before any handler runs.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := bearerToken(r)
		if key == "" {
			key = r.Header.Get("X-API-Key")
		}
		owner, ok := a.owners[key]
		if key == "" || !ok {
			httputil.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), ownerIDKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// OwnerID returns the authenticated owner for the request, or "".
func OwnerID(ctx context.Context) string {
	owner, _ := ctx.Value(ownerIDKey).(string)
	return owner
}
