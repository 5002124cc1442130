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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange(t *testing.T) {
	var gotForm map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type":    r.FormValue("grant_type"),
			"code":          r.FormValue("code"),
			"client_id":     r.FormValue("client_id"),
			"client_secret": r.FormValue("client_secret"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token":"A1","refresh_token":"R1","expires_at":1900000000,
			"athlete":{"id":77,"firstname":"Jo","lastname":"Doe"}
		}`))
	})
	svc := newTestStravaService(t, handler)

	tokens, err := svc.Exchange(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm["grant_type"])
	assert.Equal(t, "the-code", gotForm["code"])
	assert.Equal(t, "client-id", gotForm["client_id"])
	assert.Equal(t, "client-secret", gotForm["client_secret"])

	assert.Equal(t, "A1", tokens.AccessToken)
	assert.Equal(t, "R1", tokens.RefreshToken)
	assert.Equal(t, int64(1900000000), tokens.ExpiresAt)
	assert.Equal(t, int64(77), tokens.Athlete.ID)
	assert.Equal(t, "Jo", tokens.Athlete.Firstname)
	assert.Equal(t, "Doe", tokens.Athlete.Lastname)
}

func TestExchange_FaultMapped(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Bad Request","errors":[{"resource":"AuthorizationCode","field":"code","code":"invalid"}]}`))
	})
	svc := newTestStravaService(t, handler)

	_, err := svc.Exchange(context.Background(), "bad-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad Request")
}

func TestExchange_MissingAccessTokenRejected(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	svc := newTestStravaService(t, handler)

	_, err := svc.Exchange(context.Background(), "the-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access token")
}

func TestGetActivity(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/activities/123", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":123,"name":"Morning Run","type":"Run",
			"distance":5000,"moving_time":1500,"total_elevation_gain":30,
			"athlete":{"id":77}
		}`))
	})
	svc := newTestStravaService(t, handler)

	activity, err := svc.GetActivity(context.Background(), 123, "token-abc")
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, int64(123), activity.ID)
	assert.Equal(t, "Morning Run", activity.Name)
	assert.Equal(t, "Run", activity.Type)
	assert.Equal(t, float64(5000), activity.Distance)
	assert.Equal(t, int64(1500), activity.MovingTime)
}

func TestDeauthorize(t *testing.T) {
	var gotToken string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/deauthorize", r.URL.Path)
		gotToken = r.URL.Query().Get("access_token")
		w.Write([]byte(`{"access_token":"A1"}`))
	})
	svc := newTestStravaService(t, handler)

	require.NoError(t, svc.Deauthorize(context.Background(), "A1"))
	assert.Equal(t, "A1", gotToken)
}
