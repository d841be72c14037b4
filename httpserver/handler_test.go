package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/diplomachain/api"
	"github.com/ruteri/diplomachain/api/clients"
	"github.com/ruteri/diplomachain/fingerprint"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/registry"
	"github.com/ruteri/diplomachain/signer"
	"github.com/ruteri/diplomachain/storage"
	"github.com/ruteri/diplomachain/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	registryAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	adminAddress    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	issuerAddress   = common.HexToAddress("0x00000000000000000000000000000000000000b2")

	deployment = interfaces.NetworkDeployment{
		NetworkKey:      "localhost",
		DisplayName:     "Localhost",
		ChainID:         31337,
		RPCEndpoint:     "http://127.0.0.1:8545",
		RegistryAddress: registryAddress,
	}

	diploma = []byte("Diploma: Jane Doe, MSc Physics")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	ledger  *registry.MockLedger
	client  *registry.RegistryClient
	archive *storage.Archive
	server  *httptest.Server
	srv     *Server
}

// newTestEnv serves a ledger on which MIT published diploma.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	ledger := registry.NewMockLedger(registryAddress, adminAddress)
	ledger.SetIssuer("MIT", issuerAddress, true)
	agent := signer.NewMockAgent(deployment.ChainID, issuerAddress, ledger)

	client, err := registry.NewRegistryClient(deployment, ledger, agent, ledger, registry.Options{
		CallTimeout:  time.Second,
		PollInterval: 5 * time.Millisecond,
		Log:          testLogger(),
	})
	require.NoError(t, err)

	tx, err := client.PublishRecord(ctx, fingerprint.Of(diploma), "MIT", "MSc")
	require.NoError(t, err)
	ledger.Mine()
	_, err = tx.Wait(ctx)
	require.NoError(t, err)

	backend, err := storage.NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	archive := storage.NewArchive(backend, nil, testLogger())
	_, err = archive.Put(ctx, diploma)
	require.NoError(t, err)

	engine, err := verification.NewEngine(client, verification.WithLogger(testLogger()))
	require.NoError(t, err)

	srv, err := New(&api.HTTPServerConfig{
		Log:                      testLogger(),
		GracefulShutdownDuration: time.Second,
		MaxDocumentSize:          1024,
	}, NewHandler(engine, client, archive, deployment, testLogger()), nil)
	require.NoError(t, err)

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)

	return &testEnv{ledger: ledger, client: client, archive: archive, server: server, srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeVerdict(t *testing.T, data []byte) interfaces.Verdict {
	t.Helper()
	var verdict interfaces.Verdict
	require.NoError(t, json.Unmarshal(data, &verdict))
	return verdict
}

func TestHandleVerifyDocument(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/public/verify/MIT", diploma)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	verdict := decodeVerdict(t, body)
	assert.True(t, verdict.Valid)
	assert.Equal(t, interfaces.ReasonOK, verdict.Reason)
	assert.Equal(t, issuerAddress, verdict.Issuer)
	assert.Equal(t, "MSc", verdict.DegreeType)
	assert.Equal(t, fingerprint.Of(diploma), verdict.Fingerprint)

	// a different issuer has no such record
	resp, body = env.do(t, http.MethodPost, "/api/public/verify/Harvard", diploma)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verdict = decodeVerdict(t, body)
	assert.False(t, verdict.Valid)
	assert.Equal(t, interfaces.ReasonNotFound, verdict.Reason)

	resp, _ = env.do(t, http.MethodPost, "/api/public/verify/MIT", bytes.Repeat([]byte{'x'}, 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHandleVerifyFingerprint(t *testing.T) {
	env := newTestEnv(t)
	fp := fingerprint.Of(diploma)

	resp, body := env.do(t, http.MethodGet, "/api/public/verify/MIT/"+fp.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, interfaces.ReasonOK, decodeVerdict(t, body).Reason)

	env.ledger.RevokeRecord(fp, "MIT")
	env.ledger.DeauthorizeIssuer("MIT")

	resp, body = env.do(t, http.MethodGet, "/api/public/verify/MIT/"+fp.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, interfaces.ReasonRevoked, decodeVerdict(t, body).Reason)

	resp, _ = env.do(t, http.MethodGet, "/api/public/verify/MIT/0x1234", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleIssuerStatus(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/public/issuers/MIT", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status api.IssuerStatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, api.IssuerStatusResponse{Name: "MIT", Authorized: true}, status)

	env.ledger.DeauthorizeIssuer("MIT")
	_, body = env.do(t, http.MethodGet, "/api/public/issuers/MIT", nil)
	require.NoError(t, json.Unmarshal(body, &status))
	assert.False(t, status.Authorized)
}

func TestIssuerNameWithSlash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.ledger.SetIssuer("MIT/CSAIL", issuerAddress, true)
	tx, err := env.client.PublishRecord(ctx, fingerprint.Of(diploma), "MIT/CSAIL", "PhD")
	require.NoError(t, err)
	env.ledger.Mine()
	_, err = tx.Wait(ctx)
	require.NoError(t, err)

	verifier := &clients.VerifierClient{ServerAddr: env.server.URL}

	status, err := verifier.IssuerStatus(ctx, "MIT/CSAIL")
	require.NoError(t, err)
	assert.Equal(t, &api.IssuerStatusResponse{Name: "MIT/CSAIL", Authorized: true}, status)

	verdict, err := verifier.VerifyDocument(ctx, "MIT/CSAIL", diploma)
	require.NoError(t, err)
	assert.True(t, verdict.Valid)
	assert.Equal(t, interfaces.ReasonOK, verdict.Reason)
	assert.Equal(t, "PhD", verdict.DegreeType)

	verdict, err = verifier.VerifyFingerprint(ctx, "MIT/CSAIL", fingerprint.Of(diploma))
	require.NoError(t, err)
	assert.True(t, verdict.Valid)

	// a malformed escape cannot come from a parsed URL, set it on the request directly
	req := httptest.NewRequest(http.MethodGet, "/api/public/issuers/MIT", nil)
	req.URL.Path = "/api/public/issuers/MIT%ZZ"
	req.URL.RawPath = "/api/public/issuers/MIT%ZZ"
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDocument(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/public/documents/"+fingerprint.Of(diploma).String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, diploma, body)

	resp, _ = env.do(t, http.MethodGet, "/api/public/documents/"+fingerprint.Of([]byte("missing")).String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/public/documents/nothex", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleDocument_NoArchive(t *testing.T) {
	mockRegistry := new(registry.MockRegistry)
	engine, err := verification.NewEngine(mockRegistry)
	require.NoError(t, err)
	handler := NewHandler(engine, mockRegistry, nil, deployment, testLogger())

	srv, err := New(&api.HTTPServerConfig{Log: testLogger()}, handler, nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/public/documents/"+fingerprint.Of(diploma).String(), nil)
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleNetwork(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/public/network", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var network api.NetworkResponse
	require.NoError(t, json.Unmarshal(body, &network))
	assert.Equal(t, deployment, network.NetworkDeployment)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"transport", errors.Join(interfaces.ErrTransport, errors.New("dial tcp: refused")), http.StatusBadGateway},
		{"not deployed", errors.Join(interfaces.ErrNetwork, interfaces.ErrNotDeployed), http.StatusBadGateway},
		{"input", interfaces.ErrInput, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRegistry := new(registry.MockRegistry)
			mockRegistry.On("QueryIssuerAuthorization", mock.Anything, "MIT").Return(false, tt.err)
			engine, err := verification.NewEngine(mockRegistry)
			require.NoError(t, err)

			srv, err := New(&api.HTTPServerConfig{Log: testLogger()}, NewHandler(engine, mockRegistry, nil, deployment, testLogger()), nil)
			require.NoError(t, err)

			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/public/issuers/MIT", nil))
			assert.Equal(t, tt.code, rr.Code)
			mockRegistry.AssertExpectations(t)
		})
	}
}

func TestReadiness(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/livez", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"alive"}`, string(body))

	resp, _ = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(t, http.MethodGet, "/drain", nil)
	assert.JSONEq(t, `{"status":"draining"}`, string(body))
	_, body = env.do(t, http.MethodGet, "/drain", nil)
	assert.JSONEq(t, `{"status":"already draining"}`, string(body))

	resp, _ = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, body = env.do(t, http.MethodGet, "/undrain", nil)
	assert.JSONEq(t, `{"status":"ready"}`, string(body))
	resp, _ = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
