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

package models

import "time"

// UserCredential is the durable Strava credential record for one Discord
// user. There is at most one record per Discord user id; it is overwritten
// on every successful OAuth callback and token refresh.
type UserCredential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    int64     `json:"expires_at"`
	AthleteID    int64     `json:"athlete_id"`
	AthleteName  string    `json:"athlete_name"`
	LastUpdated  time.Time `json:"last_updated,omitempty"`
}

// ExpiresWithin reports whether the access token expires before now+margin.
func (c UserCredential) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return c.ExpiresAt < now.Add(margin).Unix()
}
