package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tko-aly/usersvc/types"
)

// ServiceRepository handles persistence for registered client services.
type ServiceRepository struct {
	db *sql.DB
}

func NewServiceRepository(db *sql.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) GetByName(ctx context.Context, name string) (types.Service, error) {
	const query = `
		SELECT id, service_name, display_name, redirect_url, data_permissions, created_at, updated_at
		FROM services
		WHERE service_name = $1`
	var service types.Service
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&service.ID,
		&service.ServiceName,
		&service.DisplayName,
		&service.RedirectURL,
		&service.DataPermissions,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Service{}, ErrNotFound
		}
		return types.Service{}, err
	}
	return service, nil
}

func (r *ServiceRepository) List(ctx context.Context) ([]types.Service, error) {
	const query = `
		SELECT id, service_name, display_name, redirect_url, data_permissions, created_at, updated_at
		FROM services
		ORDER BY service_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []types.Service
	for rows.Next() {
		var service types.Service
		if err := rows.Scan(
			&service.ID,
			&service.ServiceName,
			&service.DisplayName,
			&service.RedirectURL,
			&service.DataPermissions,
			&service.CreatedAt,
			&service.UpdatedAt,
		); err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (r *ServiceRepository) Create(ctx context.Context, service types.Service) (types.Service, error) {
	now := time.Now()
	service.CreatedAt = now
	service.UpdatedAt = now

	const query = `
		INSERT INTO services (service_name, display_name, redirect_url, data_permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		service.ServiceName,
		service.DisplayName,
		service.RedirectURL,
		service.DataPermissions,
		service.CreatedAt,
		service.UpdatedAt,
	).Scan(&service.ID); err != nil {
		return types.Service{}, translateWriteError(err)
	}
	return service, nil
}

func (r *ServiceRepository) Delete(ctx context.Context, name string) error {
	const query = `DELETE FROM services WHERE service_name = $1`
	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
