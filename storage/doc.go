// Package storage defines the knowledge-store contract and shared
// serialization. Backends live in subpackages; see storage/badger.
package storage
