package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/tko-aly/usersvc/types"
)

const userColumns = `id, username, name, screen_name, email, residence, phone,
	hyy_member, tktl, membership, role, created_at, deleted, hashed_password, salt`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Name,
		&user.ScreenName,
		&user.Email,
		&user.Residence,
		&user.Phone,
		&user.IsHYYMember,
		&user.IsTKTL,
		&user.Membership,
		&user.Role,
		&user.CreatedAt,
		&user.Deleted,
		&user.HashedPassword,
		&user.Salt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// List returns non-deleted users ordered by id along with their total count.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM users WHERE NOT deleted`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + userColumns + ` FROM users WHERE NOT deleted ORDER BY id OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	const query = `
		INSERT INTO users (
			username, name, screen_name, email, residence, phone,
			hyy_member, tktl, membership, role, created_at, updated_at,
			hashed_password, salt
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Name,
		user.ScreenName,
		user.Email,
		user.Residence,
		user.Phone,
		user.IsHYYMember,
		user.IsTKTL,
		user.Membership,
		user.Role,
		user.CreatedAt,
		now,
		user.HashedPassword,
		user.Salt,
	).Scan(&user.ID)
	if err != nil {
		return types.User{}, translateWriteError(err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		UPDATE users
		SET username = $1,
			name = $2,
			screen_name = $3,
			email = $4,
			residence = $5,
			phone = $6,
			hyy_member = $7,
			tktl = $8,
			membership = $9,
			role = $10,
			created_at = $11,
			hashed_password = $12,
			salt = $13,
			updated_at = $14
		WHERE id = $15 AND NOT deleted`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Name,
		user.ScreenName,
		user.Email,
		user.Residence,
		user.Phone,
		user.IsHYYMember,
		user.IsTKTL,
		user.Membership,
		user.Role,
		user.CreatedAt,
		user.HashedPassword,
		user.Salt,
		time.Now(),
		user.ID,
	)
	if err != nil {
		return types.User{}, translateWriteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// MarkDeleted flags the user as deleted. Rows are never removed.
func (r *UserRepository) MarkDeleted(ctx context.Context, id int) error {
	const query = `UPDATE users SET deleted = TRUE, updated_at = $1 WHERE id = $2 AND NOT deleted`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
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

func translateWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
