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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sbistransin/strava-discord-bot/internal/types/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postInteraction(t *testing.T, app *testApp, body string) *httptest.ResponseRecorder {
	t.Helper()
	const timestamp = "1750000000"
	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature-Timestamp", timestamp)
	req.Header.Set("X-Signature-Ed25519", app.signInteraction(timestamp, []byte(body)))
	return app.do(t, req)
}

func commandBody(name, userID string) string {
	return fmt.Sprintf(`{"type":2,"data":{"name":%q},"member":{"user":{"id":%q,"username":"jo"}}}`, name, userID)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) discord.InteractionResponse {
	t.Helper()
	var resp discord.InteractionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestInteractions_RejectsBadSignature(t *testing.T) {
	app := setupTestApp(t)

	body := `{"type":1}`
	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(body))
	req.Header.Set("X-Signature-Timestamp", "1750000000")
	// Signed over a different timestamp, so verification must fail.
	req.Header.Set("X-Signature-Ed25519", app.signInteraction("1750000001", []byte(body)))

	w := app.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInteractions_RejectsMissingSignature(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(`{"type":1}`))
	w := app.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInteractions_Ping(t *testing.T) {
	app := setupTestApp(t)

	w := postInteraction(t, app, `{"type":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, discord.ResponseTypePong, resp.Type)
	assert.Nil(t, resp.Data)
}

func TestInteractions_ConnectStrava(t *testing.T) {
	app := setupTestApp(t)

	w := postInteraction(t, app, commandBody("connect-strava", "U1"))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, discord.ResponseTypeChannelMessageWithSource, resp.Type)
	require.NotNil(t, resp.Data)
	assert.Equal(t, discord.FlagEphemeral, resp.Data.Flags)
	assert.Contains(t, resp.Data.Content, app.cfg.AppBaseURL+"/auth/start/U1")
	assert.Contains(t, resp.Data.Content, "expires in 15 minutes")
}

func TestInteractions_StatusConnected(t *testing.T) {
	app := setupTestApp(t)
	connectUser(t, app, "U1", 77)

	w := postInteraction(t, app, commandBody("strava-status", "U1"))
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "✅ Connected as: **Jo Doe**", resp.Data.Content)
	assert.Equal(t, discord.FlagEphemeral, resp.Data.Flags)
}

func TestInteractions_StatusNotConnected(t *testing.T) {
	app := setupTestApp(t)

	w := postInteraction(t, app, commandBody("strava-status", "U1"))
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Data)
	assert.Contains(t, resp.Data.Content, "No Strava account connected")
}

func TestInteractions_DisconnectNotConnected(t *testing.T) {
	app := setupTestApp(t)

	w := postInteraction(t, app, commandBody("disconnect-strava", "U1"))
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "❌ You don't have a Strava account connected.", resp.Data.Content)
}

func TestInteractions_DisconnectRemovesCredentials(t *testing.T) {
	app := setupTestApp(t)
	connectUser(t, app, "U1", 77)
	app.strava.respond(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	w := postInteraction(t, app, commandBody("disconnect-strava", "U1"))
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "✅ Your Strava account has been disconnected.", resp.Data.Content)

	// The deauthorize call carried the stored access token.
	deauth := <-app.strava.Received
	assert.Equal(t, "/oauth/deauthorize", deauth.Path)
	assert.Equal(t, "A1", deauth.Query["access_token"])

	ctx := context.Background()
	_, found, err := app.repo.GetCredential(ctx, "U1")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = app.repo.GetUserIDByAthlete(ctx, 77)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInteractions_DisconnectCleansUpWhenDeauthorizeFails(t *testing.T) {
	app := setupTestApp(t)
	connectUser(t, app, "U1", 77)
	app.strava.respond(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := postInteraction(t, app, commandBody("disconnect-strava", "U1"))
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "✅ Your Strava account has been disconnected.", resp.Data.Content)

	ctx := context.Background()
	_, found, err := app.repo.GetCredential(ctx, "U1")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = app.repo.GetUserIDByAthlete(ctx, 77)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInteractions_UnknownCommand(t *testing.T) {
	app := setupTestApp(t)

	w := postInteraction(t, app, commandBody("frobnicate", "U1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
