/*
 * Copyright 2025 sbistransin
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package handler

import (
	"github.com/sbistransin/strava-discord-bot/internal/config"
	"github.com/sbistransin/strava-discord-bot/internal/service"
	"github.com/sbistransin/strava-discord-bot/internal/store"
	"github.com/sbistransin/strava-discord-bot/internal/view"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// HttpHandlers holds application-wide state and dependencies.
type HttpHandlers struct {
	logger         *zap.Logger
	creds          *store.CredentialRepository
	oauth2Config   *oauth2.Config
	config         *config.Config
	stravaService  *service.StravaService
	discordService *service.DiscordService
	tokenService   *service.TokenService
	views          *view.HTMLTemplateManager
	Tracer         trace.Tracer
}

// NewHttpHandlers creates a new HttpHandlers instance.
func NewHttpHandlers(
	logger *zap.Logger,
	creds *store.CredentialRepository,
	cfg *config.Config,
	stravaService *service.StravaService,
	discordService *service.DiscordService,
	tokenService *service.TokenService,
	views *view.HTMLTemplateManager,
	tracer trace.Tracer,
) *HttpHandlers {
	return &HttpHandlers{
		logger:         logger.Named("http_handler"),
		creds:          creds,
		oauth2Config:   cfg.StravaOAuthConfig,
		config:         cfg,
		stravaService:  stravaService,
		discordService: discordService,
		tokenService:   tokenService,
		views:          views,
		Tracer:         tracer,
	}
}
