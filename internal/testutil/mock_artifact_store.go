package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/s3"
)

// MockArtifactStore implements s3.Service over an in-memory map so artifact
// flows can be tested without a bucket. Presigned URLs are deterministic
// fakes derived from the object key.
type MockArtifactStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMockArtifactStore creates a new mock artifact store
func NewMockArtifactStore() *MockArtifactStore {
	return &MockArtifactStore{objects: make(map[string][]byte)}
}

func (m *MockArtifactStore) ObjectKey(customerID, documentNumber string) string {
	return fmt.Sprintf("%s/%s.pdf", customerID, documentNumber)
}

func (m *MockArtifactStore) UploadArtifact(_ context.Context, artifact *s3.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[m.ObjectKey(artifact.CustomerID, artifact.DocumentNumber)] = append([]byte(nil), artifact.Data...)
	return nil
}

func (m *MockArtifactStore) GetPresignedUrl(_ context.Context, customerID, documentNumber string) (string, error) {
	return "https://artifacts.test/" + m.ObjectKey(customerID, documentNumber), nil
}

func (m *MockArtifactStore) GetArtifact(_ context.Context, customerID, documentNumber string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[m.ObjectKey(customerID, documentNumber)]
	if !ok {
		return nil, ierr.NewError("artifact not found").
			WithHintf("No artifact stored for document %s", documentNumber).
			Mark(ierr.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MockArtifactStore) Exists(_ context.Context, customerID, documentNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[m.ObjectKey(customerID, documentNumber)]
	return ok, nil
}
