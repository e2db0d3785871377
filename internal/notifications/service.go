// Package notifications keeps the per-user push token registry in Redis.
// Tokens are fanned out on fraud alerts.
package notifications

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/finguard/finguard/common/errors"
)

// tokenKey namespaces the per-user token set.
func tokenKey(userSub string) string {
	return fmt.Sprintf("fcm:%s", userSub)
}

// RegisterRequest binds a device push token to a user.
type RegisterRequest struct {
	UserSub string `json:"userSub" binding:"required"`
	Token   string `json:"token" binding:"required"`
}

// Service stores and retrieves device push tokens.
type Service struct {
	logger *zap.Logger
	redis  *redis.Client
}

// NewService creates the notification token service.
func NewService(logger *zap.Logger, client *redis.Client) *Service {
	return &Service{logger: logger, redis: client}
}

// Register adds a push token to the user's set. Re-registering the same token
// is a no-op.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) error {
	if err := s.redis.SAdd(ctx, tokenKey(req.UserSub), req.Token).Err(); err != nil {
		return errors.Wrap(errors.KindInternal, "failed to store push token", err)
	}
	s.logger.Debug("Push token registered", zap.String("user_sub", req.UserSub))
	return nil
}

// Tokens returns all push tokens registered for the user. A user with no
// tokens yields an empty slice, not an error.
func (s *Service) Tokens(ctx context.Context, userSub string) ([]string, error) {
	tokens, err := s.redis.SMembers(ctx, tokenKey(userSub)).Result()
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to load push tokens", err)
	}
	return tokens, nil
}

// Remove drops a single token, used when a push provider reports the token as
// no longer valid.
func (s *Service) Remove(ctx context.Context, userSub, token string) error {
	if err := s.redis.SRem(ctx, tokenKey(userSub), token).Err(); err != nil {
		return errors.Wrap(errors.KindInternal, "failed to remove push token", err)
	}
	return nil
}
