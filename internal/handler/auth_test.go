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
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startAuth(t *testing.T, app *testApp, discordUserID string) (state string) {
	t.Helper()
	w := app.do(t, httptest.NewRequest(http.MethodGet, "/auth/start/"+discordUserID, nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize", location.Path)
	assert.Equal(t, "client-id", location.Query().Get("client_id"))
	assert.Equal(t, "activity:read_all,read", location.Query().Get("scope"))

	state = location.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func stubTokenExchange(app *testApp) {
	app.strava.respond(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token":"A1","refresh_token":"R1","expires_at":1900000000,
			"athlete":{"id":77,"firstname":"Jo","lastname":"Doe"}
		}`))
	})
}

func TestAuthFlow_ConnectsUser(t *testing.T) {
	app := setupTestApp(t)
	state := startAuth(t, app, "U1")
	stubTokenExchange(app)

	w := app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state="+state, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your Strava account has been linked")

	// The exchange carried our code and credentials.
	exchange := <-app.strava.Received
	assert.Equal(t, "/oauth/token", exchange.Path)
	form, err := url.ParseQuery(string(exchange.Body))
	require.NoError(t, err)
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "the-code", form.Get("code"))

	// Credential and athlete index are both persisted.
	ctx := context.Background()
	cred, found, err := app.repo.GetCredential(ctx, "U1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "A1", cred.AccessToken)
	assert.Equal(t, "R1", cred.RefreshToken)
	assert.Equal(t, int64(77), cred.AthleteID)
	assert.Equal(t, "Jo Doe", cred.AthleteName)

	userID, found, err := app.repo.GetUserIDByAthlete(ctx, 77)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "U1", userID)
}

func TestAuthFlow_StateIsSingleUse(t *testing.T) {
	app := setupTestApp(t)
	state := startAuth(t, app, "U1")
	stubTokenExchange(app)

	w := app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state="+state, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Your Strava account has been linked")
	<-app.strava.Received

	// Replaying the same state must fail without another exchange.
	w = app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state="+state, nil))
	assert.Contains(t, w.Body.String(), "Authorization expired or invalid")
	assert.Equal(t, 1, app.strava.requestCount())
}

func TestAuthCallback_UnknownState(t *testing.T) {
	app := setupTestApp(t)

	w := app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state=never-issued", nil))

	assert.Contains(t, w.Body.String(), "Authorization expired or invalid")
	assert.Zero(t, app.strava.requestCount(), "unknown state must not reach the token endpoint")
}

func TestAuthCallback_ProviderError(t *testing.T) {
	app := setupTestApp(t)

	w := app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied", nil))

	assert.Contains(t, w.Body.String(), "Authorization failed: access_denied")
	assert.Zero(t, app.strava.requestCount())
}

func TestAuthCallback_MissingParams(t *testing.T) {
	app := setupTestApp(t)

	w := app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=only-code", nil))
	assert.Contains(t, w.Body.String(), "Missing authorization code or state")

	w = app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?state=only-state", nil))
	assert.Contains(t, w.Body.String(), "Missing authorization code or state")
}

func TestAuthCallback_ExchangeFailureKeepsStateConsumable(t *testing.T) {
	app := setupTestApp(t)
	state := startAuth(t, app, "U1")
	app.strava.respond(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Bad Request","errors":[{"resource":"AuthorizationCode","field":"code","code":"invalid"}]}`))
	})

	w := app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=bad-code&state="+state, nil))
	require.Contains(t, w.Body.String(), "Failed to connect to Strava")
	<-app.strava.Received

	// The state was not consumed, so the user can retry the same link.
	stubTokenExchange(app)
	w = app.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=good-code&state="+state, nil))
	assert.Contains(t, w.Body.String(), "Your Strava account has been linked")
}

func TestAuthStart_MissingUserID(t *testing.T) {
	app := setupTestApp(t)

	w := app.do(t, httptest.NewRequest(http.MethodGet, "/auth/start/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
