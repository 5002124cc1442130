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

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sbistransin/strava-discord-bot/internal/config"
	"github.com/sbistransin/strava-discord-bot/internal/models"
	"github.com/sbistransin/strava-discord-bot/internal/utils"
	"github.com/sbistransin/strava-discord-bot/internal/view"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// HandleAuthStart initiates the OAuth2 flow with Strava for a Discord user.
func (h *HttpHandlers) HandleAuthStart(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleAuthStart")
	defer span.End()

	discordUserID := c.Param("discordUserId")
	if discordUserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing Discord user id"})
		return
	}

	state, err := utils.GenerateStateToken()
	if err != nil {
		h.logger.Error("Failed to generate OAuth state", zap.Error(err))
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate OAuth state"})
		return
	}

	if err := h.creds.SavePendingAuth(ctx, state, discordUserID, config.StateTTL); err != nil {
		h.logger.Error("Failed to store pending authorization", zap.Error(err))
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to start authorization"})
		return
	}

	span.SetAttributes(attribute.String("discord.user_id", discordUserID))
	c.Redirect(http.StatusTemporaryRedirect, h.oauth2Config.AuthCodeURL(state))
}

// HandleAuthCallback handles the OAuth2 callback from Strava: it validates
// the state, exchanges the code, and binds the athlete to the Discord user.
func (h *HttpHandlers) HandleAuthCallback(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleAuthCallback")
	defer span.End()

	if errMsg := c.Query("error"); errMsg != "" {
		h.logger.Warn("Strava OAuth callback returned an error", zap.String("error", errMsg))
		h.renderResult(c, view.FailedPage("Authorization failed: "+errMsg))
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		h.renderResult(c, view.FailedPage("Missing authorization code or state."))
		return
	}

	discordUserID, found, err := h.creds.GetPendingAuth(ctx, state)
	if err != nil {
		h.logger.Error("Failed to look up pending authorization", zap.Error(err))
		span.RecordError(err)
		h.renderResult(c, view.FailedPage("An error occurred during authorization. Please try again."))
		return
	}
	if !found {
		h.logger.Warn("Unknown or expired OAuth state", zap.String("state", state))
		h.renderResult(c, view.FailedPage("Authorization expired or invalid. Please try again from Discord."))
		return
	}

	tokens, err := h.stravaService.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("Failed to exchange Strava token", zap.Error(err))
		span.RecordError(err)
		h.renderResult(c, view.FailedPage("Failed to connect to Strava. Please try again."))
		return
	}

	cred := models.UserCredential{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		AthleteID:    tokens.Athlete.ID,
		AthleteName:  tokens.Athlete.Firstname + " " + tokens.Athlete.Lastname,
	}

	if err := h.creds.SaveCredential(ctx, discordUserID, cred); err != nil {
		h.logger.Error("Failed to store credential", zap.Error(err))
		span.RecordError(err)
		h.renderResult(c, view.FailedPage("An error occurred during authorization. Please try again."))
		return
	}
	if err := h.creds.SaveAthleteIndex(ctx, cred.AthleteID, discordUserID); err != nil {
		h.logger.Error("Failed to store athlete index", zap.Error(err))
		span.RecordError(err)
		h.renderResult(c, view.FailedPage("An error occurred during authorization. Please try again."))
		return
	}
	// Consume the state last so a partial failure above leaves it to expire
	// naturally instead of dangling half-linked.
	if err := h.creds.DeletePendingAuth(ctx, state); err != nil {
		h.logger.Warn("Failed to delete consumed state", zap.String("state", state), zap.Error(err))
	}

	h.logger.Info("User connected Strava athlete",
		zap.String("discordUserID", discordUserID),
		zap.Int64("athleteID", cred.AthleteID),
	)
	span.SetAttributes(
		attribute.String("discord.user_id", discordUserID),
		attribute.Int64("strava.athlete_id", cred.AthleteID),
	)

	h.renderResult(c, view.ConnectedPage())
}

func (h *HttpHandlers) renderResult(c *gin.Context, page view.ResultPage) {
	if err := h.views.RenderResult(c.Writer, page); err != nil {
		c.String(http.StatusInternalServerError, "Failed to render page")
	}
}
