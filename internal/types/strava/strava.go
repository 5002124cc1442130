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

package strava

import "fmt"

// Athlete is the athlete summary embedded in token responses.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// TokenResponse is the body returned by the Strava token endpoint for both
// authorization_code and refresh_token grants. The athlete object is only
// present on the initial authorization_code exchange.
type TokenResponse struct {
	TokenType    string  `json:"token_type"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    int64   `json:"expires_at"`
	ExpiresIn    int64   `json:"expires_in"`
	Athlete      Athlete `json:"athlete"`
}

// Activity is the subset of a Strava activity used for notifications.
type Activity struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Distance           float64 `json:"distance"`
	MovingTime         int64   `json:"moving_time"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
	Type               string  `json:"type"`
}

// WebhookEvent is the push payload Strava POSTs to the webhook endpoint.
type WebhookEvent struct {
	ObjectType     string `json:"object_type"`
	ObjectID       int64  `json:"object_id"`
	AspectType     string `json:"aspect_type"`
	OwnerID        int64  `json:"owner_id"`
	SubscriptionID int64  `json:"subscription_id"`
	EventTime      int64  `json:"event_time"`
}

// FieldError is a single entry in a Strava API fault response.
type FieldError struct {
	Code     string `json:"code"`
	Field    string `json:"field"`
	Resource string `json:"resource"`
}

// Fault is the error envelope returned by the Strava API on non-2xx
// responses and on failed token exchanges.
type Fault struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// Err converts a fault into an error, or nil when the fault is empty.
func (f *Fault) Err(statusCode int) error {
	if f.Message == "" && len(f.Errors) == 0 {
		return nil
	}
	if len(f.Errors) > 0 {
		return fmt.Errorf("strava API status %d: %s (%s %s: %s)", statusCode, f.Message,
			f.Errors[0].Resource, f.Errors[0].Field, f.Errors[0].Code)
	}
	return fmt.Errorf("strava API status %d: %s", statusCode, f.Message)
}
