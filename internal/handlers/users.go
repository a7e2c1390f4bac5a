package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tko-aly/usersvc/internal/auth"
	"github.com/tko-aly/usersvc/internal/services"
	"github.com/tko-aly/usersvc/types"
)

// UserHandler provides HTTP handlers for user accounts.
type UserHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

func NewUserHandler(authService *services.AuthService, userService *services.UserService) *UserHandler {
	return &UserHandler{authService: authService, userService: userService}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, authService *services.AuthService, userService *services.UserService, codec *auth.TokenCodec) {
	handler := NewUserHandler(authService, userService)
	requireToken := RequireToken(codec)

	r.Post("/", handler.Register)
	r.Get("/availability", handler.Availability)
	r.With(requireToken).Get("/me", handler.Me)

	r.Group(func(r chi.Router) {
		r.Use(requireToken, RequireIdentity)
		r.Get("/", handler.ListUsers)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", handler.GetUser)
			r.Patch("/", handler.UpdateUser)
			r.Delete("/", handler.DeleteUser)
		})
	})
}

func isElevated(role types.Role) bool {
	return role == types.RoleJasenvirkailija || role == types.RoleYllapitaja
}

// Register creates a plain member account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Create(r.Context(), req)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	h.authService.UserCreated(r.Context(), user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Availability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		available bool
		err       error
	)
	switch {
	case strings.TrimSpace(query.Get("username")) != "":
		available, err = h.userService.UsernameAvailable(r.Context(), query.Get("username"))
	case strings.TrimSpace(query.Get("email")) != "":
		available, err = h.userService.EmailAvailable(r.Context(), query.Get("email"))
	default:
		writeError(w, http.StatusBadRequest, "username or email is required")
		return
	}
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Available: available})
}

// Me returns the masked fields for a service token, or the caller's own
// profile for an identity token.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if token.Kind == auth.TokenKindService {
		fields, err := h.authService.DiscloseSubject(r.Context(), token)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, fields)
		return
	}

	user, ok := loadActor(w, r, h.userService)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := loadActor(w, r, h.userService)
	if !ok {
		return
	}
	if !isElevated(actor.Role) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, total, err := h.userService.List(r.Context(), offset, limit)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{
		Items: users,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, ok := loadActor(w, r, h.userService)
	if !ok {
		return
	}
	if actor.ID != id && !isElevated(actor.Role) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser applies a partial update. The body is a JSON object keyed by
// field name; unchanged values are ignored.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, ok := loadActor(w, r, h.userService)
	if !ok {
		return
	}

	var proposed map[string]any
	if err := decodeJSON(w, r, &proposed); err != nil || proposed == nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.authService.RequestUpdate(r.Context(), id, proposed, actor.ID, actor.Role); err != nil {
		writeAuthError(w, r, err)
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser marks an account deleted. Administrators only.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, ok := loadActor(w, r, h.userService)
	if !ok {
		return
	}
	if actor.Role != types.RoleYllapitaja {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeAuthError(w, r, err)
		return
	}
	h.authService.UserDeleted(r.Context(), id, actor.ID)
	w.WriteHeader(http.StatusNoContent)
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

type UserListResponse struct {
	Items []types.User `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
}
