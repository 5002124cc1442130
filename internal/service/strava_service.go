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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sbistransin/strava-discord-bot/internal/config"
	"github.com/sbistransin/strava-discord-bot/internal/types/strava"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StravaService is responsible for interacting with the Strava API: token
// exchange, refresh, deauthorization, and activity lookups.
type StravaService struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	tracer       trace.Tracer
	logger       *zap.Logger
	apiTimeout   time.Duration
}

// NewStravaService creates a new StravaService.
func NewStravaService(cfg *config.Config, tracer trace.Tracer, logger *zap.Logger) *StravaService {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		),
		Timeout: 15 * time.Second,
	}
	return &StravaService{
		baseURL:      cfg.StravaBaseURL,
		clientID:     cfg.StravaClientID,
		clientSecret: cfg.StravaClientSecret,
		client:       client,
		tracer:       tracer,
		logger:       logger.Named("strava_service"),
		apiTimeout:   15 * time.Second,
	}
}

// Exchange trades an authorization code for tokens. The response includes
// the athlete the code was issued for.
func (s *StravaService) Exchange(ctx context.Context, code string) (*strava.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	return s.tokenCall(ctx, "StravaService.Exchange", form)
}

// Refresh trades a refresh token for a fresh token pair. Strava rotates
// refresh tokens, so the returned refresh token replaces the one sent.
func (s *StravaService) Refresh(ctx context.Context, refreshToken string) (*strava.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return s.tokenCall(ctx, "StravaService.Refresh", form)
}

func (s *StravaService) tokenCall(ctx context.Context, spanName string, form url.Values) (*strava.TokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	reqCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := s.do(req, span)
	if err != nil {
		return nil, err
	}

	var tokens strava.TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		s.logger.Error("Failed to unmarshal token response", zap.Error(err), zap.ByteString("responseBody", body))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tokens.AccessToken == "" {
		err := fmt.Errorf("token response contained no access token")
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("strava.token_expires_at", tokens.ExpiresAt))
	return &tokens, nil
}

// Deauthorize revokes the given access token with Strava.
func (s *StravaService) Deauthorize(ctx context.Context, accessToken string) error {
	ctx, span := s.tracer.Start(ctx, "StravaService.Deauthorize")
	defer span.End()

	reqCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()

	endpoint := s.baseURL + "/oauth/deauthorize?" + url.Values{"access_token": {accessToken}}.Encode()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create deauthorize request: %w", err)
	}

	if _, err := s.do(req, span); err != nil {
		return err
	}
	s.logger.Info("Successfully deauthorized from Strava")
	return nil
}

// GetActivity fetches a single activity by id using the given access token.
func (s *StravaService) GetActivity(ctx context.Context, activityID int64, accessToken string) (*strava.Activity, error) {
	ctx, span := s.tracer.Start(ctx, "StravaService.GetActivity")
	defer span.End()
	span.SetAttributes(attribute.Int64("strava.activity_id", activityID))

	reqCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()

	endpoint := s.baseURL + "/api/v3/activities/" + strconv.FormatInt(activityID, 10)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := s.do(req, span)
	if err != nil {
		return nil, err
	}

	var activity strava.Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		s.logger.Error("Failed to unmarshal activity", zap.Error(err), zap.ByteString("responseBody", body))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal activity: %w", err)
	}
	return &activity, nil
}

// do executes a request and returns the response body, converting non-2xx
// responses into errors carrying the Strava fault message.
func (s *StravaService) do(req *http.Request, span trace.Span) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Request to Strava API failed", zap.String("url", req.URL.Path), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "HTTP request failed")
		return nil, fmt.Errorf("request to Strava API failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var fault strava.Fault
		if err := json.Unmarshal(body, &fault); err == nil {
			if faultErr := fault.Err(resp.StatusCode); faultErr != nil {
				s.logger.Error("Strava API returned an error",
					zap.Int("statusCode", resp.StatusCode),
					zap.String("url", req.URL.Path),
					zap.Error(faultErr),
				)
				span.SetStatus(codes.Error, "API returned non-success")
				return nil, faultErr
			}
		}
		err := fmt.Errorf("strava API returned status %d: %s", resp.StatusCode, string(body))
		s.logger.Error("Strava API returned non-OK status",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("url", req.URL.Path),
			zap.ByteString("responseBody", body),
		)
		span.SetStatus(codes.Error, "API returned non-success")
		return nil, err
	}
	return body, nil
}
