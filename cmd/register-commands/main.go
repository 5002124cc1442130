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

// Command register-commands bulk-overwrites the bot's global slash commands
// with Discord. Run it once after deploying or whenever the command set
// changes.
package main

import (
	"context"
	"log"
	"time"

	"github.com/sbistransin/strava-discord-bot/internal/config"
	"github.com/sbistransin/strava-discord-bot/internal/service"
	"github.com/sbistransin/strava-discord-bot/internal/types/discord"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var commands = []discord.Command{
	{
		Name:        "connect-strava",
		Description: "Connect your Strava account to receive activity updates",
	},
	{
		Name:        "disconnect-strava",
		Description: "Disconnect your Strava account",
	},
	{
		Name:        "strava-status",
		Description: "Check if your Strava account is connected",
	},
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.DiscordApplicationID == "" {
		logger.Fatal("DISCORD_APPLICATION_ID is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	discordService := service.NewDiscordService(cfg.DiscordAPIBaseURL, cfg.DiscordBotToken, otel.Tracer("register-commands"), logger)
	if err := discordService.InstallGlobalCommands(ctx, cfg.DiscordApplicationID, commands); err != nil {
		logger.Fatal("Failed to register commands", zap.Error(err))
	}

	for _, cmd := range commands {
		logger.Info("Registered command", zap.String("name", cmd.Name))
	}
}
