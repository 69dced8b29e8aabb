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


package mock

import (
	"context"

	"github.com/poiesic/planforge/ai"
)

// Adapter is a test double for ai.Adapter.
// It allows custom behavior injection via function fields and records
// every payload it receives for test assertions.
type Adapter struct {
	// AdapterName is returned by Name. Default: "mock".
	AdapterName string

	// Capabilities restricts what the adapter claims to support.
	// Empty means everything.
	Capabilities []ai.Capability

	// CredentialPool, when set, makes the adapter pooled.
	CredentialPool *ai.CredentialPool

	// InvokeFunc is called by Invoke if set.
	// If nil, Invoke echoes the prompt (chat) or returns zero vectors
	// of dimension 4 (embedding).
	InvokeFunc func(ctx context.Context, payload *ai.TaskPayload) (*ai.NormalizedResult, error)

	// Payloads records every payload passed to Invoke.
	Payloads []*ai.TaskPayload
}

var _ ai.Adapter = (*Adapter)(nil)

// NewAdapter creates a mock adapter with default behavior.
func NewAdapter(name string) *Adapter {
	return &Adapter{AdapterName: name}
}

// Name returns the configured adapter name.
func (m *Adapter) Name() string {
	if m.AdapterName == "" {
		return "mock"
	}
	return m.AdapterName
}

// Can reports capability support per the Capabilities field.
func (m *Adapter) Can(c ai.Capability) bool {
	if len(m.Capabilities) == 0 {
		return true
	}
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Pool returns the configured credential pool, or an empty unnamed pool.
func (m *Adapter) Pool() *ai.CredentialPool {
	if m.CredentialPool == nil {
		m.CredentialPool = ai.NewCredentialPool(m.Name(), []string{"mock-key"})
	}
	return m.CredentialPool
}

// Invoke records the payload and runs InvokeFunc or the default behavior.
func (m *Adapter) Invoke(ctx context.Context, payload *ai.TaskPayload) (*ai.NormalizedResult, error) {
	m.Payloads = append(m.Payloads, payload)

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, payload)
	}

	if len(payload.Texts) > 0 {
		vectors := make([][]float32, len(payload.Texts))
		for i := range vectors {
			vectors[i] = make([]float32, 4)
		}
		return &ai.NormalizedResult{Provider: m.Name(), Vectors: vectors}, nil
	}

	return &ai.NormalizedResult{Provider: m.Name(), Text: payload.Prompt}, nil
}

// CallCount returns the number of Invoke calls.
func (m *Adapter) CallCount() int {
	return len(m.Payloads)
}
