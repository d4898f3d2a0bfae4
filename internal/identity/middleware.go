package identity

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/skundu/blood-market/internal/domain"
	"github.com/skundu/blood-market/internal/httpx"
)

// ActorHandler is a handler that receives the resolved request identity
// explicitly instead of reading it from ambient state.
type ActorHandler func(w http.ResponseWriter, r *http.Request, actor domain.Actor)

type Auth struct {
	sessions *SessionStore
	logger   *slog.Logger
}

func NewAuth(sessions *SessionStore, logger *slog.Logger) *Auth {
	return &Auth{sessions: sessions, logger: logger}
}

// Require resolves the bearer token and enforces the role. Admins pass every
// role check, mirroring the portals' admin access.
func (a *Auth) Require(role domain.Role, next ActorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.WriteError(w, a.logger, http.StatusUnauthorized, "missing bearer token")
			return
		}

		actor, ok, err := a.sessions.Get(r.Context(), token)
		if err != nil {
			a.logger.Error("session lookup failed", "error", err)
			httpx.WriteError(w, a.logger, http.StatusInternalServerError, "internal server error")
			return
		}
		if !ok {
			httpx.WriteError(w, a.logger, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		if !actor.Is(role) {
			httpx.WriteError(w, a.logger, http.StatusForbidden, "insufficient role")
			return
		}

		next(w, r, actor)
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
