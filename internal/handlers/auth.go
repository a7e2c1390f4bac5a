package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tko-aly/usersvc/internal/auth"
	"github.com/tko-aly/usersvc/internal/services"
	"github.com/tko-aly/usersvc/types"
)

// AuthHandler provides token and disclosure endpoints.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, userService *services.UserService, codec *auth.TokenCodec) {
	handler := NewAuthHandler(authService, userService)

	r.Post("/login", handler.Login)
	r.Post("/disclosure", handler.RequestDisclosure)
	r.With(RequireToken(codec), RequireIdentity).Post("/authenticate", handler.AuthenticateService)
}

// RequireToken decodes the request token and stores it in the context.
func RequireToken(codec *auth.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := extractToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			token, err := codec.DecodeToken(raw)
			if err != nil {
				writeAuthError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withToken(r.Context(), token)))
		})
	}
}

// RequireIdentity rejects service tokens.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := tokenFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if token.Kind != auth.TokenKindIdentity {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login verifies credentials and returns an identity token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// RequestDisclosure checks the user's credentials against a service and
// returns the data the service will receive.
func (h *AuthHandler) RequestDisclosure(w http.ResponseWriter, r *http.Request) {
	var req DisclosureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.ServiceName) == "" {
		writeError(w, http.StatusBadRequest, "missing service name")
		return
	}

	result, err := h.authService.RequestDisclosure(r.Context(), req.ServiceName, req.Username, req.Password, req.RedirectTo)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AuthenticateService mints a service token. Users may only mint for
// themselves unless they are administrators. Credential bits are cleared
// from the requested mask.
func (h *AuthHandler) AuthenticateService(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if req.UserID != actor.ID && actor.Role != types.RoleYllapitaja {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	token, err := h.authService.AuthenticateService(req.UserID, req.PermissionLevel&^auth.CredentialMask)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func (h *AuthHandler) actor(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	return loadActor(w, r, h.userService)
}

// loadActor resolves the identity token's subject to its current account so
// that role changes and deletions take effect before the token expires.
func loadActor(w http.ResponseWriter, r *http.Request, users *services.UserService) (types.User, bool) {
	token, ok := tokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.User{}, false
	}
	user, err := users.GetByID(r.Context(), token.SubjectID)
	if err != nil {
		if auth.KindOf(err) == auth.KindNotFound {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return types.User{}, false
		}
		writeAuthError(w, r, err)
		return types.User{}, false
	}
	if user.Deleted {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.User{}, false
	}
	return user, true
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type DisclosureRequest struct {
	ServiceName string `json:"serviceName"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	RedirectTo  string `json:"redirectTo"`
}

type AuthenticateRequest struct {
	UserID          int   `json:"userId"`
	PermissionLevel int64 `json:"permissionLevel"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
