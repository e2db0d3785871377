// Package identities handles user registration and sign-in. Credential
// verification is delegated to an Authenticator so the backing identity
// provider can be swapped without touching the service.
package identities

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finguard/finguard/common/errors"
	"github.com/finguard/finguard/pkg/models"
)

// tokenTTL is the lifetime of issued session tokens.
const tokenTTL = 24 * time.Hour

// ErrInvalidCredentials is returned by Authenticator implementations when the
// username/password pair does not verify.
var ErrInvalidCredentials = stderrors.New("invalid credentials")

// Authenticator verifies a credential pair and returns the stable subject
// identifier for the user.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (sub string, err error)
}

// RegisterRequest is the registration payload. Home coordinates anchor the
// distance-from-home fraud feature. They bind through pointers so a
// coordinate of 0 (equator, prime meridian) is distinguishable from an
// absent field.
type RegisterRequest struct {
	UserSub       string   `json:"userSub" binding:"required"`
	HomeLatitude  *float64 `json:"home_latitude" binding:"required,min=-90,max=90"`
	HomeLongitude *float64 `json:"home_longitude" binding:"required,min=-180,max=180"`
}

// SignInRequest is the sign-in payload.
type SignInRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is an issued session token and its subject.
type Session struct {
	UserSub     string    `json:"userSub"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service implements registration and sign-in.
type Service struct {
	logger        *zap.Logger
	db            *gorm.DB
	authenticator Authenticator
	jwtSecret     []byte
}

// NewService creates the identity service. authenticator may be nil when
// sign-in is handled entirely upstream.
func NewService(logger *zap.Logger, db *gorm.DB, authenticator Authenticator, jwtSecret string) *Service {
	return &Service{
		logger:        logger,
		db:            db,
		authenticator: authenticator,
		jwtSecret:     []byte(jwtSecret),
	}
}

// Register stores a user profile. Registering an existing sub updates the
// home coordinates rather than failing, matching upstream identity providers
// that call the hook on every confirmation.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	user := &models.User{
		Sub:           req.UserSub,
		HomeLatitude:  *req.HomeLatitude,
		HomeLongitude: *req.HomeLongitude,
		CreatedAt:     time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Save(user).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to store user profile", err)
	}

	s.logger.Info("User registered", zap.String("user_sub", user.Sub))
	return user, nil
}

// SignIn verifies credentials through the authenticator and issues a signed
// session token for the resolved subject.
func (s *Service) SignIn(ctx context.Context, req *SignInRequest) (*Session, error) {
	if s.authenticator == nil {
		return nil, errors.New(errors.KindInternal, "sign-in is not configured")
	}

	sub, err := s.authenticator.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if stderrors.Is(err, ErrInvalidCredentials) {
			return nil, errors.New(errors.KindUnauthorized, "invalid username or password")
		}
		return nil, errors.Wrap(errors.KindInternal, "authentication failed", err)
	}

	expiresAt := time.Now().Add(tokenTTL)
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to sign session token", err)
	}

	return &Session{UserSub: sub, AccessToken: token, ExpiresAt: expiresAt}, nil
}

// VerifyToken parses and validates a session token, returning its subject.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, stderrors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New(errors.KindUnauthorized, "invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New(errors.KindUnauthorized, "invalid session token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New(errors.KindUnauthorized, "invalid session token")
	}
	return sub, nil
}
