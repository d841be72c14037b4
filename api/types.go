package api

import (
	"context"
	"fmt"

	"github.com/ruteri/diplomachain/interfaces"
)

// Routes served by the verifier API.
const (
	VerifyDocumentPath    = "/api/public/verify/{issuer}"
	VerifyFingerprintPath = "/api/public/verify/{issuer}/{fingerprint}"
	IssuerStatusPath      = "/api/public/issuers/{issuer}"
	DocumentPath          = "/api/public/documents/{fingerprint}"
	NetworkPath           = "/api/public/network"
)

// IssuerStatusResponse reports whether an issuer name is currently authorized.
type IssuerStatusResponse struct {
	Name       string `json:"name"`
	Authorized bool   `json:"authorized"`
}

// NetworkResponse describes the deployment a verifier serves.
type NetworkResponse struct {
	interfaces.NetworkDeployment
}

// VerifierProvider is the verifier API as seen by a client.
type VerifierProvider interface {
	// VerifyDocument uploads document and checks it against issuerName.
	VerifyDocument(ctx context.Context, issuerName string, document []byte) (*interfaces.Verdict, error)

	// VerifyFingerprint checks an already computed fingerprint.
	VerifyFingerprint(ctx context.Context, issuerName string, fp interfaces.Fingerprint) (*interfaces.Verdict, error)

	IssuerStatus(ctx context.Context, issuerName string) (*IssuerStatusResponse, error)

	// Document downloads an archived document.
	Document(ctx context.Context, fp interfaces.Fingerprint) ([]byte, error)

	Network(ctx context.Context) (*NetworkResponse, error)
}

// StatusError is a non-2xx answer from the verifier API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("verifier returned %d: %s", e.StatusCode, e.Message)
}
