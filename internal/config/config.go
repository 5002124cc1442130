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

package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
)

const (
	// StateTTL is how long an OAuth state token stays consumable.
	StateTTL = 15 * time.Minute
	// TokenExpiryMargin is the safety window before access-token expiry
	// after which a refresh is forced.
	TokenExpiryMargin = 5 * time.Minute
)

// Config holds the application configuration values.
type Config struct {
	Port                    string
	StravaClientID          string
	StravaClientSecret      string
	StravaRedirectURI       string
	StravaVerifyToken       string
	StravaBaseURL           string
	DiscordBotToken         string
	DiscordPublicKey        ed25519.PublicKey
	DiscordApplicationID    string
	DiscordFitnessChannelID string
	DiscordAPIBaseURL       string
	AppBaseURL              string
	StorageType             string
	GCPProjectID            string
	RedisAddr               string
	RedisPassword           string
	OtelExporterEndpoint    string
	StravaOAuthConfig       *oauth2.Config
	Version                 string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		StravaClientID:          getEnv("STRAVA_CLIENT_ID", ""),
		StravaClientSecret:      getEnv("STRAVA_CLIENT_SECRET", ""),
		StravaRedirectURI:       getEnv("STRAVA_REDIRECT_URI", ""),
		StravaVerifyToken:       getEnv("STRAVA_VERIFY_TOKEN", "STRAVA"),
		StravaBaseURL:           getEnv("STRAVA_BASE_URL", "https://www.strava.com"),
		DiscordBotToken:         getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordApplicationID:    getEnv("DISCORD_APPLICATION_ID", ""),
		DiscordFitnessChannelID: getEnv("DISCORD_FITNESS_CHANNEL_ID", ""),
		DiscordAPIBaseURL:       getEnv("DISCORD_API_BASE_URL", "https://discord.com/api/v10"),
		AppBaseURL:              getEnv("WEB_APP_URL", "http://localhost:8080"),
		StorageType:             getEnv("STORAGE_TYPE", "inmemory"),
		GCPProjectID:            getEnv("GCP_PROJECT_ID", ""),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		OtelExporterEndpoint:    getEnv("OTEL_EXPORTER_ENDPOINT", ""),
		Version:                 getEnv("VERSION", "dev"),
	}

	if cfg.StravaClientID == "" || cfg.StravaClientSecret == "" || cfg.StravaRedirectURI == "" {
		return nil, fmt.Errorf("STRAVA_CLIENT_ID, STRAVA_CLIENT_SECRET, or STRAVA_REDIRECT_URI is not set")
	}

	if cfg.DiscordBotToken == "" || cfg.DiscordFitnessChannelID == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN or DISCORD_FITNESS_CHANNEL_ID is not set")
	}

	publicKeyHex := getEnv("DISCORD_PUBLIC_KEY", "")
	if publicKeyHex == "" {
		return nil, fmt.Errorf("DISCORD_PUBLIC_KEY is not set")
	}
	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("DISCORD_PUBLIC_KEY is not a valid hex-encoded Ed25519 public key")
	}
	cfg.DiscordPublicKey = ed25519.PublicKey(publicKey)

	if cfg.StorageType == "firestore" && cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("STORAGE_TYPE is 'firestore' but GCP_PROJECT_ID is not set")
	}

	cfg.StravaOAuthConfig = &oauth2.Config{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		RedirectURL:  cfg.StravaRedirectURI,
		// Strava expects a single comma-separated scope value.
		Scopes: []string{"activity:read_all,read"},

		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.StravaBaseURL + "/oauth/authorize",
			TokenURL: cfg.StravaBaseURL + "/oauth/token",
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
