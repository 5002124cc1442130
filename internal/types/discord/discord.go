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

package discord

// Interaction types, per the Discord interactions documentation.
const (
	InteractionTypePing               = 1
	InteractionTypeApplicationCommand = 2
)

// Interaction response types.
const (
	ResponseTypePong                     = 1
	ResponseTypeChannelMessageWithSource = 4
)

// FlagEphemeral marks a response message as visible only to the invoking user.
const FlagEphemeral = 1 << 6

// User is a Discord user object.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Member is a guild member; interactions invoked in a guild carry the user
// here instead of at the top level.
type Member struct {
	User *User `json:"user"`
}

// CommandData is the application-command payload of an interaction.
type CommandData struct {
	Name string `json:"name"`
}

// Interaction is the body Discord POSTs to the interactions endpoint.
type Interaction struct {
	Type   int          `json:"type"`
	Data   *CommandData `json:"data"`
	Member *Member      `json:"member"`
	User   *User        `json:"user"`
}

// InvokingUser returns the user who triggered the interaction, from either
// the guild member or the top-level user object.
func (i *Interaction) InvokingUser() *User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// ResponseData is the message payload of an interaction response.
type ResponseData struct {
	Content string `json:"content"`
	Flags   int    `json:"flags,omitempty"`
}

// InteractionResponse is the body returned to Discord from the interactions
// endpoint.
type InteractionResponse struct {
	Type int           `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

// Command describes a global application command for registration.
type Command struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Message is the payload for posting a channel message.
type Message struct {
	Content string `json:"content"`
}
