// Package search retrieves knowledge entries relevant to a query.
//
// Retrieval is a soft dependency for callers: when the query cannot be
// embedded or the store cannot be searched, the retriever returns an
// empty result set and logs a warning instead of failing the caller's
// operation.
package search
