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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sbistransin/strava-discord-bot/internal/types/discord"
	"github.com/sbistransin/strava-discord-bot/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// HandleInteractions processes Discord slash commands. Discord signs every
// interaction request; an invalid signature must be rejected with 401 or
// Discord deactivates the endpoint.
func (h *HttpHandlers) HandleInteractions(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleInteractions")
	defer span.End()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to read request body"})
		return
	}
	defer c.Request.Body.Close()

	signature := c.GetHeader("X-Signature-Ed25519")
	timestamp := c.GetHeader("X-Signature-Timestamp")
	if !utils.VerifyInteractionSignature(h.config.DiscordPublicKey, signature, timestamp, body) {
		h.logger.Warn("Invalid interaction signature")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid request signature"})
		return
	}

	var interaction discord.Interaction
	if err := json.Unmarshal(body, &interaction); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to unmarshal interaction"})
		return
	}

	if interaction.Type == discord.InteractionTypePing {
		c.JSON(http.StatusOK, discord.InteractionResponse{Type: discord.ResponseTypePong})
		return
	}

	if interaction.Type != discord.InteractionTypeApplicationCommand || interaction.Data == nil {
		c.String(http.StatusBadRequest, "Unknown interaction type")
		return
	}

	user := interaction.InvokingUser()
	if user == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Interaction has no invoking user"})
		return
	}

	span.SetAttributes(
		attribute.String("discord.command", interaction.Data.Name),
		attribute.String("discord.user_id", user.ID),
	)

	switch interaction.Data.Name {
	case "connect-strava":
		authURL := fmt.Sprintf("%s/auth/start/%s", h.config.AppBaseURL, user.ID)
		ephemeral(c, fmt.Sprintf("🔗 Click here to connect your Strava account:\n%s\n\nThis link expires in 15 minutes.", authURL))
	case "disconnect-strava":
		ephemeral(c, h.disconnectUser(ctx, user.ID))
	case "strava-status":
		ephemeral(c, h.connectionStatus(ctx, user.ID))
	default:
		h.logger.Warn("Unknown command", zap.String("command", interaction.Data.Name))
		c.String(http.StatusBadRequest, "Unknown command")
	}
}

// disconnectUser removes a user's Strava link. The remote deauthorize call
// is best-effort: the user asked to disconnect, so local cleanup proceeds
// even when Strava cannot be reached.
func (h *HttpHandlers) disconnectUser(ctx context.Context, discordUserID string) string {
	cred, found, err := h.creds.GetCredential(ctx, discordUserID)
	if err != nil {
		h.logger.Error("Failed to load credential for disconnect", zap.String("discordUserID", discordUserID), zap.Error(err))
		return "An error occurred while disconnecting. Please try again."
	}
	if !found {
		return "❌ You don't have a Strava account connected."
	}

	if err := h.stravaService.Deauthorize(ctx, cred.AccessToken); err != nil {
		h.logger.Error("Failed to deauthorize from Strava, cleaning up anyway",
			zap.String("discordUserID", discordUserID),
			zap.Error(err),
		)
	}

	if err := h.creds.DeleteCredential(ctx, discordUserID, cred.AthleteID); err != nil {
		h.logger.Error("Failed to delete credential", zap.String("discordUserID", discordUserID), zap.Error(err))
		return "An error occurred while disconnecting. Please try again."
	}

	h.logger.Info("User disconnected Strava",
		zap.String("discordUserID", discordUserID),
		zap.Int64("athleteID", cred.AthleteID),
	)
	return "✅ Your Strava account has been disconnected."
}

func (h *HttpHandlers) connectionStatus(ctx context.Context, discordUserID string) string {
	cred, found, err := h.creds.GetCredential(ctx, discordUserID)
	if err != nil {
		h.logger.Error("Failed to load credential for status", zap.String("discordUserID", discordUserID), zap.Error(err))
		return "An error occurred while checking your connection. Please try again."
	}
	if !found {
		return "❌ No Strava account connected. Use `/connect-strava` to link your account."
	}
	return fmt.Sprintf("✅ Connected as: **%s**", cred.AthleteName)
}

// ephemeral replies with a message only the invoking user can see.
func ephemeral(c *gin.Context, content string) {
	c.JSON(http.StatusOK, discord.InteractionResponse{
		Type: discord.ResponseTypeChannelMessageWithSource,
		Data: &discord.ResponseData{
			Content: content,
			Flags:   discord.FlagEphemeral,
		},
	})
}
