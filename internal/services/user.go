package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tko-aly/usersvc/internal/auth"
	"github.com/tko-aly/usersvc/internal/store"
	"github.com/tko-aly/usersvc/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	MarkDeleted(ctx context.Context, id int) error
}

// UserService encapsulates user use-cases and credential handling.
type UserService struct {
	repo       UserRepository
	bcryptCost int
}

// UserOption customizes a UserService.
type UserOption func(*UserService)

// WithBcryptCost overrides the bcrypt work factor used for new hashes.
func WithBcryptCost(cost int) UserOption {
	return func(s *UserService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func NewUserService(repo UserRepository, opts ...UserOption) *UserService {
	s := &UserService{repo: repo, bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, translateStoreError(err, "user")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	users, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, auth.E(auth.KindPersistence, "failed to list users", err)
	}
	return users, total, nil
}

// LookupByCredentials resolves a username and password to a live account.
// Every mismatch is reported as the same Unauthorized error.
func (s *UserService) LookupByCredentials(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, auth.E(auth.KindUnauthorized, "invalid credentials", nil)
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, auth.E(auth.KindUnauthorized, "invalid credentials", nil)
		}
		return types.User{}, auth.E(auth.KindPersistence, "failed to authenticate", err)
	}
	if user.Deleted {
		return types.User{}, auth.E(auth.KindUnauthorized, "invalid credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), saltedDigest(user.Salt, password)); err != nil {
		return types.User{}, auth.E(auth.KindUnauthorized, "invalid credentials", nil)
	}
	return user, nil
}

func (s *UserService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	return s.available(ctx, strings.TrimSpace(username), s.repo.GetByUsername)
}

func (s *UserService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	return s.available(ctx, strings.TrimSpace(email), s.repo.GetByEmail)
}

func (s *UserService) available(ctx context.Context, value string, lookup func(context.Context, string) (types.User, error)) (bool, error) {
	if value == "" {
		return false, auth.E(auth.KindInvalidRequest, "missing value", nil)
	}
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, store.ErrNotFound):
		return true, nil
	default:
		return false, auth.E(auth.KindPersistence, "failed to check availability", err)
	}
}

// Create registers a new plain member account.
func (s *UserService) Create(ctx context.Context, reg types.Registration) (types.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.Username == "" || reg.Email == "" || reg.Name == "" || reg.Password1 == "" {
		return types.User{}, auth.E(auth.KindInvalidRequest, "missing required fields", nil)
	}
	if reg.Password1 != reg.Password2 {
		return types.User{}, auth.E(auth.KindInvalidRequest, "passwords do not match", nil)
	}

	for _, check := range []struct {
		value string
		fn    func(context.Context, string) (bool, error)
		msg   string
	}{
		{reg.Username, s.UsernameAvailable, "username already taken"},
		{reg.Email, s.EmailAvailable, "email already taken"},
	} {
		ok, err := check.fn(ctx, check.value)
		if err != nil {
			return types.User{}, err
		}
		if !ok {
			return types.User{}, auth.E(auth.KindConflict, check.msg, nil)
		}
	}

	salt, hashed, err := s.hashPassword(reg.Password1)
	if err != nil {
		return types.User{}, err
	}

	created, err := s.repo.Create(ctx, types.User{
		Username:       reg.Username,
		Name:           reg.Name,
		ScreenName:     strings.TrimSpace(reg.ScreenName),
		Email:          reg.Email,
		Residence:      strings.TrimSpace(reg.Residence),
		Phone:          strings.TrimSpace(reg.Phone),
		IsHYYMember:    reg.IsHYYMember,
		IsTKTL:         reg.IsTKTL,
		Membership:     types.MembershipNone,
		Role:           types.RoleKayttaja,
		HashedPassword: hashed,
		Salt:           salt,
	})
	if err != nil {
		return types.User{}, translateStoreError(err, "user")
	}
	return created, nil
}

// PersistFields writes the named fields of values to the user with the given
// id. A password change requires password1 and password2 to match.
func (s *UserService) PersistFields(ctx context.Context, id int, values map[string]any, fields []string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, translateStoreError(err, "user")
	}

	if err := auth.ApplyFields(&user, values, fields); err != nil {
		return types.User{}, err
	}

	if containsAny(fields, auth.FieldPassword1, auth.FieldPassword2) {
		p1, _ := values[auth.FieldPassword1].(string)
		p2, _ := values[auth.FieldPassword2].(string)
		if p1 == "" || p1 != p2 {
			return types.User{}, auth.E(auth.KindInvalidRequest, "passwords do not match", nil)
		}
		salt, hashed, err := s.hashPassword(p1)
		if err != nil {
			return types.User{}, err
		}
		user.Salt = salt
		user.HashedPassword = hashed
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, translateStoreError(err, "user")
	}
	return updated, nil
}

// Delete marks the user as deleted.
func (s *UserService) Delete(ctx context.Context, id int) error {
	if err := s.repo.MarkDeleted(ctx, id); err != nil {
		return translateStoreError(err, "user")
	}
	return nil
}

func (s *UserService) hashPassword(password string) (salt, hashed string, err error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	salt = hex.EncodeToString(buf[:])

	out, err := bcrypt.GenerateFromPassword(saltedDigest(salt, password), s.bcryptCost)
	if err != nil {
		return "", "", fmt.Errorf("hash password: %w", err)
	}
	return salt, string(out), nil
}

// saltedDigest keeps bcrypt input under its 72 byte limit for any password
// length.
func saltedDigest(salt, password string) []byte {
	sum := sha256.Sum256([]byte(salt + password))
	return []byte(hex.EncodeToString(sum[:]))
}

func translateStoreError(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return auth.E(auth.KindNotFound, what+" not found", err)
	case errors.Is(err, store.ErrConflict):
		return auth.E(auth.KindConflict, what+" already exists", err)
	case auth.KindOf(err) != auth.KindUnknown:
		return err
	default:
		return auth.E(auth.KindPersistence, "failed to persist "+what, err)
	}
}

func containsAny(list []string, names ...string) bool {
	for _, item := range list {
		for _, name := range names {
			if item == name {
				return true
			}
		}
	}
	return false
}
