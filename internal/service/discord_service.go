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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sbistransin/strava-discord-bot/internal/types/discord"
	"github.com/sbistransin/strava-discord-bot/internal/types/strava"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const discordUserAgent = "DiscordBot (https://github.com/sbistransin/strava-discord-bot, 1.0.0)"

// Meters-to-miles conversion factor used in notifications.
const milesPerMeter = 0.00062137

// DiscordService handles interactions with the Discord REST API.
type DiscordService struct {
	apiURL     string
	botToken   string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewDiscordService creates a new DiscordService.
func NewDiscordService(apiURL, botToken string, tracer trace.Tracer, logger *zap.Logger) *DiscordService {
	return &DiscordService{
		apiURL:   apiURL,
		botToken: botToken,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			),
			Timeout: 10 * time.Second,
		},
		tracer: tracer,
		logger: logger.Named("discord_service"),
	}
}

// SendMessage posts a message to a Discord channel.
func (s *DiscordService) SendMessage(ctx context.Context, channelID, content string) error {
	ctx, span := s.tracer.Start(ctx, "DiscordService.SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("discord.channel_id", channelID))

	payload, err := json.Marshal(discord.Message{Content: content})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", s.apiURL, channelID)
	if err := s.call(ctx, span, http.MethodPost, endpoint, payload); err != nil {
		return err
	}

	s.logger.Info("Sent message to Discord channel", zap.String("channelID", channelID))
	return nil
}

// InstallGlobalCommands bulk-overwrites the application's global slash
// commands.
func (s *DiscordService) InstallGlobalCommands(ctx context.Context, applicationID string, commands []discord.Command) error {
	ctx, span := s.tracer.Start(ctx, "DiscordService.InstallGlobalCommands")
	defer span.End()

	payload, err := json.Marshal(commands)
	if err != nil {
		return fmt.Errorf("failed to marshal commands: %w", err)
	}

	endpoint := fmt.Sprintf("%s/applications/%s/commands", s.apiURL, applicationID)
	if err := s.call(ctx, span, http.MethodPut, endpoint, payload); err != nil {
		return err
	}

	s.logger.Info("Successfully registered commands", zap.Int("count", len(commands)))
	return nil
}

// SendActivityNotification formats an activity and posts it to the given
// channel.
func (s *DiscordService) SendActivityNotification(ctx context.Context, channelID, discordUserID string, activity *strava.Activity) error {
	return s.SendMessage(ctx, channelID, FormatActivityMessage(discordUserID, activity))
}

// FormatActivityMessage renders the notification for an activity: distance
// in miles (two decimals), duration in whole minutes, pace in min/km for
// runs, and elevation gain when present.
func FormatActivityMessage(discordUserID string, activity *strava.Activity) string {
	distanceMiles := activity.Distance * milesPerMeter
	durationMin := activity.MovingTime / 60

	var b strings.Builder
	fmt.Fprintf(&b, "🏃 **New %s from <@%s>!**\n\n", activity.Type, discordUserID)
	fmt.Fprintf(&b, "**%s**\n", activity.Name)
	fmt.Fprintf(&b, "📏 Distance: %.2f miles\n", distanceMiles)
	fmt.Fprintf(&b, "⏱️ Time: %d min\n", durationMin)
	if activity.Type == "Run" && activity.Distance > 0 {
		paceMinPerKm := float64(activity.MovingTime) / 60 / (activity.Distance / 1000)
		fmt.Fprintf(&b, "⚡ Pace: %.2f min/km\n", paceMinPerKm)
	}
	if activity.TotalElevationGain != 0 {
		fmt.Fprintf(&b, "⛰️ Elevation: %d m\n", int64(math.Round(activity.TotalElevationGain)))
	}
	return b.String()
}

func (s *DiscordService) call(ctx context.Context, span trace.Span, method, endpoint string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", discordUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Request to Discord API failed", zap.String("url", endpoint), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "HTTP request failed")
		return fmt.Errorf("request to Discord API failed: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("discord API returned status %d: %s", resp.StatusCode, string(body))
		s.logger.Error("Discord API error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("url", endpoint),
			zap.ByteString("responseBody", body),
		)
		span.SetStatus(codes.Error, "API returned non-success")
		return err
	}
	return nil
}
