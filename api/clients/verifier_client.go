package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ruteri/diplomachain/api"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/stretchr/testify/mock"
)

// VerifierClient implements api.VerifierProvider over HTTP.
type VerifierClient struct {
	// ServerAddr is the base URL of the verifier server
	ServerAddr string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

func (c *VerifierClient) VerifyDocument(ctx context.Context, issuerName string, document []byte) (*interfaces.Verdict, error) {
	var verdict interfaces.Verdict
	path := route(api.VerifyDocumentPath, "issuer", issuerName)
	if err := c.do(ctx, http.MethodPost, path, document, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (c *VerifierClient) VerifyFingerprint(ctx context.Context, issuerName string, fp interfaces.Fingerprint) (*interfaces.Verdict, error) {
	var verdict interfaces.Verdict
	path := route(route(api.VerifyFingerprintPath, "issuer", issuerName), "fingerprint", fp.String())
	if err := c.do(ctx, http.MethodGet, path, nil, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (c *VerifierClient) IssuerStatus(ctx context.Context, issuerName string) (*api.IssuerStatusResponse, error) {
	var status api.IssuerStatusResponse
	if err := c.do(ctx, http.MethodGet, route(api.IssuerStatusPath, "issuer", issuerName), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *VerifierClient) Document(ctx context.Context, fp interfaces.Fingerprint) ([]byte, error) {
	var document []byte
	if err := c.do(ctx, http.MethodGet, route(api.DocumentPath, "fingerprint", fp.String()), nil, &document); err != nil {
		return nil, err
	}
	return document, nil
}

func (c *VerifierClient) Network(ctx context.Context) (*api.NetworkResponse, error) {
	var network api.NetworkResponse
	if err := c.do(ctx, http.MethodGet, api.NetworkPath, nil, &network); err != nil {
		return nil, err
	}
	return &network, nil
}

// do sends the request and decodes a JSON answer into out. A *[]byte out
// receives the raw body instead.
func (c *VerifierClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.ServerAddr, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: could not reach verifier: %v", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &api.StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if raw, ok := out.(*[]byte); ok {
		*raw, err = io.ReadAll(resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse verifier response: %w", err)
	}
	return nil
}

func route(pattern, param, value string) string {
	return strings.Replace(pattern, "{"+param+"}", url.PathEscape(value), 1)
}

// MockVerifierProvider implements api.VerifierProvider for testing.
type MockVerifierProvider struct {
	mock.Mock
}

func (m *MockVerifierProvider) VerifyDocument(ctx context.Context, issuerName string, document []byte) (*interfaces.Verdict, error) {
	args := m.Called(ctx, issuerName, document)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Verdict), args.Error(1)
}

func (m *MockVerifierProvider) VerifyFingerprint(ctx context.Context, issuerName string, fp interfaces.Fingerprint) (*interfaces.Verdict, error) {
	args := m.Called(ctx, issuerName, fp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Verdict), args.Error(1)
}

func (m *MockVerifierProvider) IssuerStatus(ctx context.Context, issuerName string) (*api.IssuerStatusResponse, error) {
	args := m.Called(ctx, issuerName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.IssuerStatusResponse), args.Error(1)
}

func (m *MockVerifierProvider) Document(ctx context.Context, fp interfaces.Fingerprint) ([]byte, error) {
	args := m.Called(ctx, fp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockVerifierProvider) Network(ctx context.Context) (*api.NetworkResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.NetworkResponse), args.Error(1)
}

var (
	_ api.VerifierProvider = (*VerifierClient)(nil)
	_ api.VerifierProvider = (*MockVerifierProvider)(nil)
)
