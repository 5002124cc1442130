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

package store

import (
	"context"
	"time"
)

// Store is a key/value capability with optional per-key expiry. A missing or
// expired key is reported through the bool return; it is never an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes a value. A ttl of zero means the key never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Locker provides named mutual exclusion. Acquire returns false when the
// lock is already held; a held lock expires on its own after the ttl so a
// crashed holder cannot wedge the name forever.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}
