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

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sbistransin/strava-discord-bot/internal/models"
	"go.uber.org/zap"
)

// Key namespaces in the underlying Store.
const (
	statePrefix   = "state:"
	userPrefix    = "user:"
	athletePrefix = "athlete:"
)

// CredentialRepository types the raw Store into the three records the bot
// keeps: pending OAuth states, per-user Strava credentials, and the athlete
// index that maps Strava athlete ids back to Discord users.
type CredentialRepository struct {
	store  Store
	logger *zap.Logger
}

// NewCredentialRepository creates a CredentialRepository over the given Store.
func NewCredentialRepository(store Store, logger *zap.Logger) *CredentialRepository {
	return &CredentialRepository{
		store:  store,
		logger: logger.Named("credential_repo"),
	}
}

// SavePendingAuth records a state token for a user starting the connect
// flow. The entry expires on its own if the callback never arrives.
func (r *CredentialRepository) SavePendingAuth(ctx context.Context, state, discordUserID string, ttl time.Duration) error {
	return r.store.Set(ctx, statePrefix+state, discordUserID, ttl)
}

// GetPendingAuth resolves a state token to the Discord user who initiated
// the flow. A consumed or expired state reads as absent.
func (r *CredentialRepository) GetPendingAuth(ctx context.Context, state string) (string, bool, error) {
	return r.store.Get(ctx, statePrefix+state)
}

// DeletePendingAuth consumes a state token so it can never resolve again.
func (r *CredentialRepository) DeletePendingAuth(ctx context.Context, state string) error {
	return r.store.Delete(ctx, statePrefix+state)
}

// SaveCredential writes or overwrites the credential record for a user.
func (r *CredentialRepository) SaveCredential(ctx context.Context, discordUserID string, cred models.UserCredential) error {
	cred.LastUpdated = time.Now()
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := r.store.Set(ctx, userPrefix+discordUserID, string(data), 0); err != nil {
		return err
	}
	r.logger.Info("Stored credential", zap.String("discordUserID", discordUserID), zap.Int64("athleteID", cred.AthleteID))
	return nil
}

// GetCredential loads the credential record for a user.
func (r *CredentialRepository) GetCredential(ctx context.Context, discordUserID string) (models.UserCredential, bool, error) {
	var cred models.UserCredential
	data, found, err := r.store.Get(ctx, userPrefix+discordUserID)
	if err != nil || !found {
		return cred, false, err
	}
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return cred, false, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return cred, true, nil
}

// SaveAthleteIndex maps a Strava athlete id to a Discord user id so webhook
// events can be resolved.
func (r *CredentialRepository) SaveAthleteIndex(ctx context.Context, athleteID int64, discordUserID string) error {
	return r.store.Set(ctx, athleteKey(athleteID), discordUserID, 0)
}

// GetUserIDByAthlete resolves a Strava athlete id to a Discord user id.
func (r *CredentialRepository) GetUserIDByAthlete(ctx context.Context, athleteID int64) (string, bool, error) {
	return r.store.Get(ctx, athleteKey(athleteID))
}

// DeleteCredential removes both the athlete index entry and the credential
// record for a user. Both deletes run even if the first fails.
func (r *CredentialRepository) DeleteCredential(ctx context.Context, discordUserID string, athleteID int64) error {
	indexErr := r.store.Delete(ctx, athleteKey(athleteID))
	credErr := r.store.Delete(ctx, userPrefix+discordUserID)
	if indexErr != nil {
		return indexErr
	}
	if credErr != nil {
		return credErr
	}
	r.logger.Info("Deleted credential", zap.String("discordUserID", discordUserID), zap.Int64("athleteID", athleteID))
	return nil
}

func athleteKey(athleteID int64) string {
	return athletePrefix + strconv.FormatInt(athleteID, 10)
}
