// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"strings"
	"sync"
)

// CredentialPool rotates round-robin across multiple secrets for one
// vendor, spreading rate-limit usage. Draw is the only mutator and is
// safe for concurrent callers.
type CredentialPool struct {
	provider string
	mu       sync.Mutex
	secrets  []string
	cursor   int
}

// NewCredentialPool creates a pool for the named provider.
// Blank secrets are dropped; a pool may legitimately end up empty, in
// which case Draw returns ErrNoCredentials rather than panicking.
func NewCredentialPool(provider string, secrets []string) *CredentialPool {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if s != "" {
			kept = append(kept, s)
		}
	}
	return &CredentialPool{
		provider: provider,
		secrets:  kept,
	}
}

// ParseKeyList splits a comma-separated credential list as found in
// environment configuration ("key1,key2,key3").
func ParseKeyList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Provider returns the vendor this pool belongs to.
func (p *CredentialPool) Provider() string {
	return p.provider
}

// Size returns the number of secrets in the pool.
func (p *CredentialPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.secrets)
}

// Draw returns the secret at the cursor and advances the cursor modulo
// the pool size. The cursor advances regardless of whether the caller's
// subsequent attempt succeeds.
func (p *CredentialPool) Draw() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.secrets) == 0 {
		return "", ErrNoCredentials
	}

	secret := p.secrets[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.secrets)
	return secret, nil
}
