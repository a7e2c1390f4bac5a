package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tko-aly/usersvc/types"
)

const defaultTokenTTL = 24 * time.Hour

// TokenKind tells what a token grants.
type TokenKind string

const (
	// TokenKindService is a capability grant carrying a permission level.
	TokenKindService TokenKind = "service"
	// TokenKindIdentity is a user identity grant carrying a role.
	TokenKindIdentity TokenKind = "identity"
)

// ServiceToken is the decoded, verified content of a token.
type ServiceToken struct {
	SubjectID       int
	PermissionLevel int64
	Kind            TokenKind
	Role            types.Role
	IssuedAt        time.Time
	ExpiresAt       time.Time
}

type tokenClaims struct {
	Kind            TokenKind `json:"kind"`
	PermissionLevel int64     `json:"perm,omitempty"`
	Role            string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec creates and verifies HS256 tokens with a process-wide secret.
// It holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec constructs a codec. A non-positive ttl falls back to 24h.
func NewTokenCodec(secret, issuer string, ttl time.Duration, opts ...CodecOption) *TokenCodec {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	c := &TokenCodec{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the lifetime given to issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// CreateToken issues a service capability token binding subjectID and
// permissionLevel.
func (c *TokenCodec) CreateToken(subjectID int, permissionLevel int64) (string, error) {
	return c.sign(subjectID, tokenClaims{
		Kind:            TokenKindService,
		PermissionLevel: permissionLevel,
	})
}

// CreateIdentityToken issues a token proving the holder is subjectID acting
// with role.
func (c *TokenCodec) CreateIdentityToken(subjectID int, role types.Role) (string, error) {
	if _, ok := types.ParseRole(string(role)); !ok {
		return "", E(KindInvalidRequest, "invalid role", nil)
	}
	return c.sign(subjectID, tokenClaims{
		Kind: TokenKindIdentity,
		Role: string(role),
	})
}

func (c *TokenCodec) sign(subjectID int, claims tokenClaims) (string, error) {
	if len(c.secret) == 0 {
		return "", E(KindSigning, "signing key unavailable", nil)
	}
	if subjectID < 1 {
		return "", E(KindInvalidRequest, "invalid subject", nil)
	}

	now := c.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   strconv.Itoa(subjectID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", E(KindSigning, "failed to sign token", err)
	}
	return signed, nil
}

// DecodeToken verifies signature, issuer and expiry and returns the token's
// content. Every failure is reported as ErrInvalidToken.
func (c *TokenCodec) DecodeToken(tokenString string) (ServiceToken, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ServiceToken{}, E(KindInvalidToken, "invalid token", errors.New("empty token"))
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	claims := tokenClaims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		if len(c.secret) == 0 {
			return nil, errors.New("signing key unavailable")
		}
		return c.secret, nil
	})
	if err != nil {
		return ServiceToken{}, E(KindInvalidToken, "invalid token", err)
	}
	if !token.Valid {
		return ServiceToken{}, E(KindInvalidToken, "invalid token", nil)
	}

	subjectID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || subjectID < 1 {
		return ServiceToken{}, E(KindInvalidToken, "invalid token", fmt.Errorf("invalid subject %q", claims.Subject))
	}

	decoded := ServiceToken{
		SubjectID: subjectID,
		Kind:      claims.Kind,
	}
	switch claims.Kind {
	case TokenKindService:
		decoded.PermissionLevel = claims.PermissionLevel
	case TokenKindIdentity:
		role, ok := types.ParseRole(claims.Role)
		if !ok {
			return ServiceToken{}, E(KindInvalidToken, "invalid token", fmt.Errorf("invalid role %q", claims.Role))
		}
		decoded.Role = role
	default:
		return ServiceToken{}, E(KindInvalidToken, "invalid token", fmt.Errorf("unknown token kind %q", claims.Kind))
	}
	if claims.IssuedAt != nil {
		decoded.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time
	}
	return decoded, nil
}
