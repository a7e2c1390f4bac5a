package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tko-aly/usersvc/internal/auth"
	"github.com/tko-aly/usersvc/types"
)

// CredentialLookup resolves a username and password to a live user.
type CredentialLookup interface {
	LookupByCredentials(ctx context.Context, username, password string) (types.User, error)
}

// UserLookup loads a user by id.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// FieldPersister writes the named fields of values to a user.
type FieldPersister interface {
	PersistFields(ctx context.Context, id int, values map[string]any, fields []string) (types.User, error)
}

// ServiceLookup loads a registered service by name.
type ServiceLookup interface {
	GetByName(ctx context.Context, name string) (types.Service, error)
}

// EventPublisher announces persisted user changes.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, event types.UserEvent) error
}

// ReceiptWriter stores disclosure receipts.
type ReceiptWriter interface {
	SaveReceipt(ctx context.Context, receipt types.DisclosureReceipt) error
}

// AuthDeps groups the collaborators of AuthService. Events and Receipts may
// be nil.
type AuthDeps struct {
	Credentials CredentialLookup
	Users       UserLookup
	Persister   FieldPersister
	Services    ServiceLookup
	Events      EventPublisher
	Receipts    ReceiptWriter
}

// AuthService ties the token codec, the mask evaluator and the edit
// authorizer to the user and service collaborators. It keeps no per-call
// state.
type AuthService struct {
	codec *auth.TokenCodec
	deps  AuthDeps
	now   func() time.Time
}

func NewAuthService(codec *auth.TokenCodec, deps AuthDeps) *AuthService {
	return &AuthService{codec: codec, deps: deps, now: time.Now}
}

// DisclosureResult is what a user sees before being sent back to a service.
type DisclosureResult struct {
	DisplayName string          `json:"displayName"`
	RedirectTo  string          `json:"redirectTo"`
	Fields      auth.Disclosure `json:"fields"`
	Token       string          `json:"token"`
	ReceiptID   string          `json:"receiptId,omitempty"`
}

// AuthenticateService mints a service token. Both arguments are required.
func (s *AuthService) AuthenticateService(userID int, permissionLevel int64) (string, error) {
	if userID == 0 || permissionLevel == 0 {
		return "", auth.E(auth.KindInvalidRequest, "missing user id or permission level", nil)
	}
	return s.codec.CreateToken(userID, permissionLevel)
}

// Login checks credentials and returns an identity token for the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, types.User, error) {
	user, err := s.deps.Credentials.LookupByCredentials(ctx, username, password)
	if err != nil {
		return "", types.User{}, err
	}
	token, err := s.codec.CreateIdentityToken(user.ID, user.Role)
	if err != nil {
		return "", types.User{}, err
	}
	return token, user, nil
}

// RequestDisclosure authenticates the user, resolves the service and returns
// the fields the service is allowed to see.
func (s *AuthService) RequestDisclosure(ctx context.Context, serviceName, username, password, redirectTarget string) (DisclosureResult, error) {
	user, err := s.deps.Credentials.LookupByCredentials(ctx, username, password)
	if err != nil {
		return DisclosureResult{}, err
	}

	service, err := s.deps.Services.GetByName(ctx, serviceName)
	if err != nil {
		return DisclosureResult{}, err
	}

	fields := auth.SelectVisibleFields(user, service.DataPermissions)

	redirect := strings.TrimSpace(redirectTarget)
	if redirect == "" {
		redirect = service.RedirectURL
	}

	result := DisclosureResult{
		DisplayName: service.DisplayName,
		RedirectTo:  redirect,
		Fields:      fields,
	}

	if service.DataPermissions != 0 {
		token, err := s.codec.CreateToken(user.ID, service.DataPermissions)
		if err != nil {
			return DisclosureResult{}, err
		}
		result.Token = token
	}

	if s.deps.Receipts != nil {
		receipt := types.DisclosureReceipt{
			ID:              uuid.NewString(),
			ServiceName:     service.ServiceName,
			UserID:          user.ID,
			Fields:          fields.Names(),
			PermissionLevel: service.DataPermissions,
			RedirectTarget:  redirect,
			IssuedAt:        s.now().UTC(),
		}
		if err := s.deps.Receipts.SaveReceipt(ctx, receipt); err != nil {
			log.Printf("save disclosure receipt %s for user %d: %v", receipt.ID, user.ID, err)
		} else {
			result.ReceiptID = receipt.ID
		}
	}

	return result, nil
}

// RequestUpdate authorizes and applies a change to the target user. Fields
// whose proposed value equals the stored one are not considered. Rejection
// covers the whole update.
func (s *AuthService) RequestUpdate(ctx context.Context, targetID int, proposed map[string]any, modifierID int, modifierRole types.Role) error {
	current, err := s.deps.Users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if current.Deleted {
		return auth.E(auth.KindNotFound, "user not found", nil)
	}

	changed := auth.ChangedFields(current, proposed)
	if err := auth.AuthorizeUpdate(targetID, changed, modifierID, modifierRole); err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	if _, err := s.deps.Persister.PersistFields(ctx, targetID, proposed, changed); err != nil {
		if auth.KindOf(err) == auth.KindUnknown {
			return auth.E(auth.KindPersistence, "failed to persist user", err)
		}
		return err
	}

	s.publish(ctx, types.UserEvent{
		Type:       types.UserEventUpdated,
		UserID:     targetID,
		Fields:     changed,
		ModifierID: modifierID,
	})
	return nil
}

// Disclose returns the fields of user visible under a service token.
func (s *AuthService) Disclose(token auth.ServiceToken, user types.User) (auth.Disclosure, error) {
	if token.Kind != auth.TokenKindService {
		return nil, auth.E(auth.KindForbidden, "forbidden", nil)
	}
	return auth.SelectVisibleFields(user, token.PermissionLevel), nil
}

// DiscloseSubject loads the token's subject and applies Disclose.
func (s *AuthService) DiscloseSubject(ctx context.Context, token auth.ServiceToken) (auth.Disclosure, error) {
	user, err := s.deps.Users.GetByID(ctx, token.SubjectID)
	if err != nil {
		return nil, err
	}
	if user.Deleted {
		return nil, auth.E(auth.KindNotFound, "user not found", nil)
	}
	return s.Disclose(token, user)
}

// UserCreated and UserDeleted announce lifecycle changes made outside
// RequestUpdate.
func (s *AuthService) UserCreated(ctx context.Context, userID int) {
	s.publish(ctx, types.UserEvent{Type: types.UserEventCreated, UserID: userID})
}

func (s *AuthService) UserDeleted(ctx context.Context, userID, modifierID int) {
	s.publish(ctx, types.UserEvent{Type: types.UserEventDeleted, UserID: userID, ModifierID: modifierID})
}

func (s *AuthService) publish(ctx context.Context, event types.UserEvent) {
	if s.deps.Events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.deps.Events.PublishUserEvent(ctx, event); err != nil {
		log.Printf("publish %s for user %d: %v", event.Type, event.UserID, err)
	}
}
