/*
 *    Copyright 2025 sbistransin
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sbistransin/strava-discord-bot/internal/config"
	"github.com/sbistransin/strava-discord-bot/internal/models"
	"github.com/sbistransin/strava-discord-bot/internal/store"
	"go.uber.org/zap"
)

const (
	refreshLockPrefix = "refresh:"
	refreshLockTTL    = 30 * time.Second
	refreshWait       = 5 * time.Second
	refreshPoll       = 200 * time.Millisecond
)

// TokenService guarantees a valid Strava access token for a user, refreshing
// near-expiry tokens through the token endpoint. Refreshes for the same user
// are serialized with a per-user lock: Strava rotates refresh tokens, so two
// concurrent refreshes would spend the same refresh token twice.
type TokenService struct {
	creds  *store.CredentialRepository
	strava *StravaService
	locks  store.Locker
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(creds *store.CredentialRepository, stravaService *StravaService, locks store.Locker, logger *zap.Logger) *TokenService {
	return &TokenService{
		creds:  creds,
		strava: stravaService,
		locks:  locks,
		logger: logger.Named("token_service"),
		now:    time.Now,
	}
}

// EnsureValidToken returns an access token guaranteed to outlive the expiry
// margin. The caller passes the credential it already loaded; when the token
// is near expiry it is refreshed and the rotated pair persisted before the
// new token is returned. A refresh failure is surfaced, never papered over
// with the stale token.
func (s *TokenService) EnsureValidToken(ctx context.Context, discordUserID string, cred models.UserCredential) (string, error) {
	if !cred.ExpiresWithin(s.now(), config.TokenExpiryMargin) {
		return cred.AccessToken, nil
	}

	lockName := refreshLockPrefix + discordUserID
	acquired, err := s.locks.Acquire(ctx, lockName, refreshLockTTL)
	if err != nil {
		return "", fmt.Errorf("failed to acquire refresh lock for user %s: %w", discordUserID, err)
	}
	if !acquired {
		// Another request is already refreshing this user's token; wait for
		// the persisted result instead of spending the refresh token twice.
		return s.awaitRefresh(ctx, discordUserID)
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), lockName); err != nil {
			s.logger.Warn("Failed to release refresh lock", zap.String("discordUserID", discordUserID), zap.Error(err))
		}
	}()

	// Re-read under the lock: a refresh that finished while we were
	// acquiring may already have rotated the tokens.
	if latest, found, err := s.creds.GetCredential(ctx, discordUserID); err == nil && found {
		cred = latest
		if !cred.ExpiresWithin(s.now(), config.TokenExpiryMargin) {
			return cred.AccessToken, nil
		}
	}

	s.logger.Info("Refreshing token for user", zap.String("discordUserID", discordUserID))
	tokens, err := s.strava.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token for user %s: %w", discordUserID, err)
	}

	cred.AccessToken = tokens.AccessToken
	cred.RefreshToken = tokens.RefreshToken
	cred.ExpiresAt = tokens.ExpiresAt
	if err := s.creds.SaveCredential(ctx, discordUserID, cred); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credential for user %s: %w", discordUserID, err)
	}
	return cred.AccessToken, nil
}

// awaitRefresh polls for the credential persisted by a concurrent refresh.
func (s *TokenService) awaitRefresh(ctx context.Context, discordUserID string) (string, error) {
	deadline := s.now().Add(refreshWait)
	for s.now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(refreshPoll):
		}
		cred, found, err := s.creds.GetCredential(ctx, discordUserID)
		if err != nil {
			return "", err
		}
		if found && !cred.ExpiresWithin(s.now(), config.TokenExpiryMargin) {
			return cred.AccessToken, nil
		}
	}
	return "", fmt.Errorf("concurrent token refresh for user %s did not complete", discordUserID)
}
