package services

import (
	"context"
	"strings"

	"github.com/tko-aly/usersvc/internal/auth"
	"github.com/tko-aly/usersvc/types"
)

// ServiceRepository defines persistence operations for client services.
type ServiceRepository interface {
	GetByName(ctx context.Context, name string) (types.Service, error)
	List(ctx context.Context) ([]types.Service, error)
	Create(ctx context.Context, service types.Service) (types.Service, error)
	Delete(ctx context.Context, name string) error
}

// ServiceRegistry manages the services allowed to request user data.
type ServiceRegistry struct {
	repo ServiceRepository
}

func NewServiceRegistry(repo ServiceRepository) *ServiceRegistry {
	return &ServiceRegistry{repo: repo}
}

// ServiceInput is a registration request. Permissions may be given as a
// numeric mask, as field names, or both; the result is their union.
type ServiceInput struct {
	ServiceName     string   `json:"serviceName"`
	DisplayName     string   `json:"displayName"`
	RedirectURL     string   `json:"redirectUrl"`
	DataPermissions int64    `json:"dataPermissions"`
	Fields          []string `json:"fields,omitempty"`
}

func (r *ServiceRegistry) GetByName(ctx context.Context, name string) (types.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Service{}, auth.E(auth.KindInvalidRequest, "missing service name", nil)
	}
	service, err := r.repo.GetByName(ctx, name)
	if err != nil {
		return types.Service{}, translateStoreError(err, "service")
	}
	return service, nil
}

func (r *ServiceRegistry) List(ctx context.Context) ([]types.Service, error) {
	services, err := r.repo.List(ctx)
	if err != nil {
		return nil, auth.E(auth.KindPersistence, "failed to list services", err)
	}
	if services == nil {
		services = []types.Service{}
	}
	return services, nil
}

func (r *ServiceRegistry) Create(ctx context.Context, in ServiceInput) (types.Service, error) {
	in.ServiceName = strings.TrimSpace(in.ServiceName)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.ServiceName == "" || in.DisplayName == "" {
		return types.Service{}, auth.E(auth.KindInvalidRequest, "missing required fields", nil)
	}
	if in.DataPermissions < 0 {
		return types.Service{}, auth.E(auth.KindInvalidRequest, "invalid permission mask", nil)
	}

	mask := in.DataPermissions
	if len(in.Fields) > 0 {
		named, err := auth.MaskOf(in.Fields...)
		if err != nil {
			return types.Service{}, err
		}
		mask |= named
	}

	created, err := r.repo.Create(ctx, types.Service{
		ServiceName:     in.ServiceName,
		DisplayName:     in.DisplayName,
		RedirectURL:     strings.TrimSpace(in.RedirectURL),
		DataPermissions: mask,
	})
	if err != nil {
		return types.Service{}, translateStoreError(err, "service")
	}
	return created, nil
}

func (r *ServiceRegistry) Delete(ctx context.Context, name string) error {
	if err := r.repo.Delete(ctx, strings.TrimSpace(name)); err != nil {
		return translateStoreError(err, "service")
	}
	return nil
}
