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
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sbistransin/strava-discord-bot/internal/config"
	"github.com/sbistransin/strava-discord-bot/internal/service"
	"github.com/sbistransin/strava-discord-bot/internal/store"
	"github.com/sbistransin/strava-discord-bot/internal/view"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// fakeAPI is a swappable httptest handler that records the requests it saw
// and signals each one on a channel, so tests can synchronize with the
// webhook handler's background processing.
type fakeAPI struct {
	mu       sync.Mutex
	handler  http.HandlerFunc
	requests []*recordedRequest
	Received chan *recordedRequest
	server   *httptest.Server
}

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   []byte
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{Received: make(chan *recordedRequest, 16)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		query := make(map[string]string)
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				query[k] = v[0]
			}
		}
		rec := &recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  query,
			Header: r.Header.Clone(),
			Body:   body,
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		handler := f.handler
		f.mu.Unlock()
		f.Received <- rec
		if handler != nil {
			handler(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) respond(handler http.HandlerFunc) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type testApp struct {
	router  *gin.Engine
	repo    *store.CredentialRepository
	cfg     *config.Config
	strava  *fakeAPI
	discord *fakeAPI
	signKey ed25519.PrivateKey
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	stravaAPI := newFakeAPI(t)
	discordAPI := newFakeAPI(t)

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cfg := &config.Config{
		StravaClientID:          "client-id",
		StravaClientSecret:      "client-secret",
		StravaRedirectURI:       "http://localhost:8080/auth/callback",
		StravaVerifyToken:       "STRAVA",
		StravaBaseURL:           stravaAPI.server.URL,
		DiscordBotToken:         "bot-token",
		DiscordPublicKey:        publicKey,
		DiscordFitnessChannelID: "C1",
		AppBaseURL:              "http://localhost:8080",
		StravaOAuthConfig: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8080/auth/callback",
			Scopes:       []string{"activity:read_all,read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  stravaAPI.server.URL + "/oauth/authorize",
				TokenURL: stravaAPI.server.URL + "/oauth/token",
			},
		},
	}

	repo := store.NewCredentialRepository(store.NewMemoryStore(logger), logger)
	tracer := otel.Tracer("test")
	stravaService := service.NewStravaService(cfg, tracer, logger)
	discordService := service.NewDiscordService(discordAPI.server.URL, cfg.DiscordBotToken, tracer, logger)
	tokenService := service.NewTokenService(repo, stravaService, store.NewMemoryLocker(), logger)

	views, err := view.NewHTMLTemplateManager(logger)
	require.NoError(t, err)

	handlers := NewHttpHandlers(logger, repo, cfg, stravaService, discordService, tokenService, views, tracer)
	router := gin.New()
	handlers.RegisterRoutes(router)

	return &testApp{
		router:  router,
		repo:    repo,
		cfg:     cfg,
		strava:  stravaAPI,
		discord: discordAPI,
		signKey: privateKey,
	}
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signInteraction produces the headers Discord attaches to an interaction
// request, signed with the test keypair.
func (a *testApp) signInteraction(timestamp string, body []byte) string {
	msg := append([]byte(timestamp), body...)
	return hex.EncodeToString(ed25519.Sign(a.signKey, msg))
}
