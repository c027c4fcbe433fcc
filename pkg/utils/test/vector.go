package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/hearth/pkg/vector"
)

// MockVectorDriver is an in-memory vector.Driver. Without scripted Results,
// Query returns the household's documents in insertion order.
type MockVectorDriver struct {
	mu sync.Mutex

	documents []vector.Document

	// Results, when set, is returned by Query for every household.
	Results []vector.QueryResult

	// QueryErr, when set, is returned by Query.
	QueryErr error

	// AddErr, when set, is returned by Add.
	AddErr error
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AddErr != nil {
		return m.AddErr
	}

	for _, doc := range docs {
		replaced := false
		for i := range m.documents {
			if m.documents[i].ID == doc.ID {
				m.documents[i] = doc
				replaced = true
			}
		}
		if !replaced {
			m.documents = append(m.documents, doc)
		}
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, householdID string, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	results := m.Results
	if results == nil {
		for _, doc := range m.documents {
			if doc.HouseholdID == householdID {
				results = append(results, vector.QueryResult{Document: doc, Score: 1})
			}
		}
	}

	if topK > 0 && len(results) > topK {
		return results[:topK], nil
	}
	return results, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.documents[:0]
	for _, doc := range m.documents {
		drop := false
		for _, id := range ids {
			if doc.ID == id {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, doc)
		}
	}
	m.documents = kept
	return nil
}

// Documents returns a copy of every stored document.
func (m *MockVectorDriver) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]vector.Document(nil), m.documents...)
}

func (m *MockVectorDriver) Close() error {
	return nil
}
