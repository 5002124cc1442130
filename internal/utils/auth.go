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

package utils

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateStateToken creates a random hex string for OAuth state
// correlation. 16 bytes of entropy, hex encoded.
func GenerateStateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes for state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// VerifyInteractionSignature checks the Ed25519 signature Discord attaches
// to interaction requests. The signed payload is the timestamp header
// concatenated with the raw request body.
func VerifyInteractionSignature(publicKey ed25519.PublicKey, signatureHex, timestamp string, body []byte) bool {
	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}
	payload := make([]byte, 0, len(timestamp)+len(body))
	payload = append(payload, timestamp...)
	payload = append(payload, body...)
	return ed25519.Verify(publicKey, payload, signature)
}
