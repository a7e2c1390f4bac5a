package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tko-aly/usersvc/internal/auth"
	"github.com/tko-aly/usersvc/internal/services"
	"github.com/tko-aly/usersvc/types"
)

// ServiceHandler manages the registered client services.
type ServiceHandler struct {
	registry    *services.ServiceRegistry
	userService *services.UserService
}

func NewServiceHandler(registry *services.ServiceRegistry, userService *services.UserService) *ServiceHandler {
	return &ServiceHandler{registry: registry, userService: userService}
}

// ServiceRouter registers service routes on the given router.
func ServiceRouter(r chi.Router, registry *services.ServiceRegistry, userService *services.UserService, codec *auth.TokenCodec) {
	handler := NewServiceHandler(registry, userService)

	r.Use(RequireToken(codec), RequireIdentity)
	r.Get("/", handler.ListServices)
	r.With(handler.requireAdmin).Post("/", handler.CreateService)
	r.With(handler.requireAdmin).Delete("/{serviceName}", handler.DeleteService)
}

func (h *ServiceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	items, err := h.registry.List(r.Context())
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ServiceListResponse{Items: items})
}

func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req services.ServiceInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	service, err := h.registry.Create(r.Context(), req)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ServiceResponse{
		Service: service,
		Fields:  auth.FieldNames(service.DataPermissions),
	})
}

func (h *ServiceHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "serviceName"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid service name")
		return
	}
	if err := h.registry.Delete(r.Context(), name); err != nil {
		writeAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ServiceHandler) requireAdmin(next http.Handler) http.Handler {
	return requireAdmin(h.userService)(next)
}

// requireAdmin loads the caller and admits administrators only.
func requireAdmin(users *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := loadActor(w, r, users)
			if !ok {
				return
			}
			if actor.Role != types.RoleYllapitaja {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ServiceResponse struct {
	types.Service
	Fields []string `json:"fields"`
}

type ServiceListResponse struct {
	Items []types.Service `json:"items"`
}
