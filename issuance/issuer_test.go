package issuance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/diplomachain/fingerprint"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/registry"
	"github.com/ruteri/diplomachain/signer"
	"github.com/ruteri/diplomachain/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	registryAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	adminAddress    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	issuerAddress   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T) (*registry.MockLedger, *signer.MockAgent, *registry.RegistryClient) {
	t.Helper()

	ledger := registry.NewMockLedger(registryAddress, adminAddress)
	ledger.SetIssuer("MIT", issuerAddress, true)
	agent := signer.NewMockAgent(31337, issuerAddress, ledger)

	client, err := registry.NewRegistryClient(interfaces.NetworkDeployment{
		NetworkKey:      "localhost",
		DisplayName:     "Localhost",
		ChainID:         31337,
		RegistryAddress: registryAddress,
	}, ledger, agent, ledger, registry.Options{
		CallTimeout:  time.Second,
		PollInterval: 5 * time.Millisecond,
		Log:          discard(),
	})
	require.NoError(t, err)
	return ledger, agent, client
}

func TestPublish_ArchivesThenSubmits(t *testing.T) {
	ledger, _, client := newClient(t)
	backend, err := storage.NewFileBackend(t.TempDir(), discard())
	require.NoError(t, err)
	archive := storage.NewArchive(backend, nil, discard())

	issuer, err := NewIssuer(client, Config{Archive: archive, Log: discard()})
	require.NoError(t, err)

	ctx := context.Background()
	document := []byte("Diploma: Jane Doe, BSc Computer Science")

	pub, err := issuer.Publish(ctx, document, "MIT", "BSc")
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Of(document), pub.Fingerprint)
	assert.True(t, pub.Archived)
	assert.Equal(t, registry.TxSubmitted, pub.Tx.State())

	stored, err := archive.Get(ctx, pub.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, document, stored)

	ledger.Mine()
	_, err = pub.Tx.Wait(ctx)
	require.NoError(t, err)

	view, err := client.QueryRecord(ctx, pub.Fingerprint, "MIT")
	require.NoError(t, err)
	assert.True(t, view.Exists)
	assert.Equal(t, issuerAddress, view.Issuer)
	assert.Equal(t, "BSc", view.DegreeType.String())
}

func TestPublishAndWait(t *testing.T) {
	ledger, _, client := newClient(t)
	issuer, err := NewIssuer(client, Config{Log: discard()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		for ledger.Pending() == 0 {
			time.Sleep(time.Millisecond)
		}
		ledger.Mine()
	}()

	pub, receipt, err := issuer.PublishAndWait(ctx, []byte("document"), "MIT", "")
	require.NoError(t, err)
	assert.False(t, pub.Archived)
	assert.Equal(t, registry.TxConfirmed, pub.Tx.State())
	assert.Equal(t, pub.Tx.Hash(), receipt.TxHash)

	// the same record cannot be created twice
	go func() {
		for ledger.Pending() == 0 {
			time.Sleep(time.Millisecond)
		}
		ledger.Mine()
	}()
	_, _, err = issuer.PublishAndWait(ctx, []byte("document"), "MIT", "")
	require.ErrorIs(t, err, interfaces.ErrLedgerRejection)
}

type failingBackend struct{ storage.FileBackend }

func (failingBackend) Store(ctx context.Context, key string, data []byte) error {
	return errors.New("disk full")
}

func TestPublish_ArchiveFailureSubmitsNothing(t *testing.T) {
	_, agent, client := newClient(t)
	archive := storage.NewArchive(&failingBackend{}, nil, discard())

	issuer, err := NewIssuer(client, Config{Archive: archive, Log: discard()})
	require.NoError(t, err)

	_, err = issuer.Publish(context.Background(), []byte("document"), "MIT", "BSc")
	require.Error(t, err)
	assert.Zero(t, agent.SendCalls())
}

func TestPublish_InvalidInputSubmitsNothing(t *testing.T) {
	_, agent, client := newClient(t)
	issuer, err := NewIssuer(client, Config{Log: discard()})
	require.NoError(t, err)

	_, err = issuer.Publish(context.Background(), []byte("document"), "  ", "BSc")
	require.ErrorIs(t, err, interfaces.ErrInput)
	assert.Zero(t, agent.SendCalls())
}

type weakFingerprinter struct{}

func (weakFingerprinter) Fingerprint(document []byte) interfaces.Fingerprint {
	return interfaces.Fingerprint{byte(len(document))}
}
func (weakFingerprinter) Cryptographic() bool { return false }

func TestNewIssuer_RejectsInsecureFingerprinter(t *testing.T) {
	_, _, client := newClient(t)

	_, err := NewIssuer(client, Config{Fingerprinter: weakFingerprinter{}})
	require.ErrorIs(t, err, interfaces.ErrInsecureFingerprinter)

	_, err = NewIssuer(client, Config{Fingerprinter: weakFingerprinter{}, AllowInsecureFingerprinter: true})
	require.NoError(t, err)

	_, err = NewIssuer(nil, Config{})
	require.ErrorIs(t, err, interfaces.ErrInput)
}
