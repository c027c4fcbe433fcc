// Package vector provides interfaces and implementations for note embedding
// storage and similarity search.
package vector

import "context"

// Document is a stored note embedding.
type Document struct {
	// ID is the note id the embedding belongs to.
	ID string

	// HouseholdID scopes the document; queries only see their own household.
	HouseholdID string

	// Embedding is the vector representation of the note content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents of a household to the
	// given embedding, most similar first.
	Query(ctx context.Context, householdID string, embedding []float32, topK int) ([]QueryResult, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
