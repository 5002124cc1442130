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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sbistransin/strava-discord-bot/internal/types/strava"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// processTimeout bounds the background work kicked off by a webhook event.
const processTimeout = 30 * time.Second

// HandleWebhookVerify answers the subscription handshake Strava performs
// when a webhook is registered: echo the challenge if the verify token
// matches, 403 otherwise.
func (h *HttpHandlers) HandleWebhookVerify(c *gin.Context) {
	_, span := h.Tracer.Start(c.Request.Context(), "HandleWebhookVerify")
	defer span.End()

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.config.StravaVerifyToken {
		h.logger.Info("Webhook subscription verified")
		c.JSON(http.StatusOK, gin.H{"hub.challenge": challenge})
		return
	}

	h.logger.Warn("Webhook verification failed", zap.String("mode", mode))
	span.SetStatus(codes.Error, "Verify token mismatch")
	c.Status(http.StatusForbidden)
}

// HandleWebhookEvent acknowledges a Strava push event immediately and hands
// the actual work to a detached background task. Strava requires a 200
// within two seconds and retries failed deliveries, so downstream errors
// must never surface here.
func (h *HttpHandlers) HandleWebhookEvent(c *gin.Context) {
	_, span := h.Tracer.Start(c.Request.Context(), "HandleWebhookEvent")
	defer span.End()

	var event strava.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("Failed to unmarshal webhook payload", zap.Error(err))
		span.RecordError(err)
		c.String(http.StatusOK, "EVENT_RECEIVED")
		return
	}

	span.SetAttributes(
		attribute.String("strava.object_type", event.ObjectType),
		attribute.String("strava.aspect_type", event.AspectType),
		attribute.Int64("strava.owner_id", event.OwnerID),
	)
	h.logger.Info("Received webhook event",
		zap.String("objectType", event.ObjectType),
		zap.String("aspectType", event.AspectType),
		zap.Int64("objectID", event.ObjectID),
		zap.Int64("ownerID", event.OwnerID),
	)

	c.String(http.StatusOK, "EVENT_RECEIVED")

	// The request context dies with the response; the background task gets
	// its own bounded context and owns its own error handling.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		h.processWebhookEvent(ctx, event)
	}()
}

// processWebhookEvent resolves an event to a connected Discord user and
// relays the activity as a channel notification. Every failure is logged
// and the event dropped; the ack already went out and Strava must not
// retry application-level errors.
func (h *HttpHandlers) processWebhookEvent(ctx context.Context, event strava.WebhookEvent) {
	ctx, span := h.Tracer.Start(ctx, "processWebhookEvent")
	defer span.End()

	if event.ObjectType != "activity" || (event.AspectType != "create" && event.AspectType != "update") {
		h.logger.Info("Ignoring webhook event",
			zap.String("objectType", event.ObjectType),
			zap.String("aspectType", event.AspectType),
		)
		return
	}

	discordUserID, found, err := h.creds.GetUserIDByAthlete(ctx, event.OwnerID)
	if err != nil {
		h.logger.Error("Failed to resolve athlete", zap.Int64("ownerID", event.OwnerID), zap.Error(err))
		span.RecordError(err)
		return
	}
	if !found {
		// Athlete not connected, or already disconnected. Not an error.
		h.logger.Info("No Discord user for athlete", zap.Int64("ownerID", event.OwnerID))
		return
	}

	cred, found, err := h.creds.GetCredential(ctx, discordUserID)
	if err != nil {
		h.logger.Error("Failed to load credential", zap.String("discordUserID", discordUserID), zap.Error(err))
		span.RecordError(err)
		return
	}
	if !found {
		h.logger.Warn("Athlete index points to a user with no credential",
			zap.String("discordUserID", discordUserID),
			zap.Int64("ownerID", event.OwnerID),
		)
		return
	}

	accessToken, err := h.tokenService.EnsureValidToken(ctx, discordUserID, cred)
	if err != nil {
		h.logger.Error("Failed to ensure valid token, dropping event",
			zap.String("discordUserID", discordUserID),
			zap.Error(err),
		)
		span.RecordError(err)
		return
	}

	activity, err := h.stravaService.GetActivity(ctx, event.ObjectID, accessToken)
	if err != nil {
		h.logger.Error("Failed to fetch activity, dropping event",
			zap.Int64("activityID", event.ObjectID),
			zap.Error(err),
		)
		span.RecordError(err)
		return
	}

	if err := h.discordService.SendActivityNotification(ctx, h.config.DiscordFitnessChannelID, discordUserID, activity); err != nil {
		h.logger.Error("Failed to send activity notification",
			zap.String("activityName", activity.Name),
			zap.Error(err),
		)
		span.RecordError(err)
		return
	}

	h.logger.Info("Sent activity notification",
		zap.String("discordUserID", discordUserID),
		zap.String("activityName", activity.Name),
	)
	span.SetAttributes(attribute.String("app.activity_name", activity.Name))
}
