package registry

import (
	"context"

	"github.com/ruteri/diplomachain/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the interfaces.RegistryReader interface
type MockRegistry struct {
	mock.Mock
}

// QueryIssuerAuthorization mocks the QueryIssuerAuthorization method
func (m *MockRegistry) QueryIssuerAuthorization(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// QueryRecord mocks the QueryRecord method
func (m *MockRegistry) QueryRecord(ctx context.Context, fp interfaces.Fingerprint, issuerName string) (interfaces.CredentialRecordView, error) {
	args := m.Called(ctx, fp, issuerName)
	return args.Get(0).(interfaces.CredentialRecordView), args.Error(1)
}

// QueryRole mocks the QueryRole method
func (m *MockRegistry) QueryRole(ctx context.Context, role interfaces.Role, identity interfaces.Identity) (bool, error) {
	args := m.Called(ctx, role, identity)
	return args.Bool(0), args.Error(1)
}
