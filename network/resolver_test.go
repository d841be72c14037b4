package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/signer"
	"github.com/ruteri/diplomachain/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccount = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	sepoliaAddr = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(t *testing.T, agent interfaces.SigningAgent, overrides OverrideSource) *Resolver {
	t.Helper()
	r, err := NewResolver(agent, Config{
		CallTimeout: time.Second,
		Overrides:   overrides,
		Log:         testLogger(),
	})
	require.NoError(t, err)
	return r
}

func TestResolveCurrent(t *testing.T) {
	t.Run("matched", func(t *testing.T) {
		agent := signer.NewMockAgent(11155111, testAccount, nil)
		res, err := newResolver(t, agent, nil).ResolveCurrent(context.Background())
		require.NoError(t, err)

		assert.Equal(t, SourceMatched, res.Source)
		assert.False(t, res.FellBack())
		assert.Equal(t, SepoliaKey, res.Deployment.NetworkKey)
		assert.Equal(t, uint64(11155111), res.AgentChainID)
	})

	t.Run("unknown chain falls back to default", func(t *testing.T) {
		agent := signer.NewMockAgent(1, testAccount, nil)
		res, err := newResolver(t, agent, nil).ResolveCurrent(context.Background())
		require.NoError(t, err)

		assert.Equal(t, SourceDefaultNoMatch, res.Source)
		assert.True(t, res.FellBack())
		assert.Equal(t, LocalhostKey, res.Deployment.NetworkKey)
		assert.Equal(t, uint64(1), res.AgentChainID)
	})

	t.Run("unreachable agent falls back to default", func(t *testing.T) {
		agent := signer.NewMockAgent(11155111, testAccount, nil)
		agent.FailChainID(errors.New("connection refused"))

		res, err := newResolver(t, agent, nil).ResolveCurrent(context.Background())
		require.NoError(t, err)

		assert.Equal(t, SourceDefaultUnreachable, res.Source)
		assert.Equal(t, LocalhostKey, res.Deployment.NetworkKey)
		assert.Error(t, res.Err)
	})

	t.Run("no agent", func(t *testing.T) {
		res, err := newResolver(t, nil, nil).ResolveCurrent(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceDefaultUnreachable, res.Source)
	})
}

func TestEnsureNetwork(t *testing.T) {
	ctx := context.Background()

	t.Run("already on target", func(t *testing.T) {
		agent := signer.NewMockAgent(31337, testAccount, nil)
		require.NoError(t, newResolver(t, agent, nil).EnsureNetwork(ctx, LocalhostKey))
		assert.Zero(t, agent.SwitchCalls())
	})

	t.Run("known chain switches without adding", func(t *testing.T) {
		agent := signer.NewMockAgent(31337, testAccount, nil)
		agent.KnowChain(11155111)

		require.NoError(t, newResolver(t, agent, nil).EnsureNetwork(ctx, SepoliaKey))
		assert.Equal(t, 1, agent.SwitchCalls())
		assert.Zero(t, agent.AddCalls())
	})

	t.Run("unknown chain is added and switch retried once", func(t *testing.T) {
		agent := signer.NewMockAgent(31337, testAccount, nil)
		r := newResolver(t, agent, nil)

		require.NoError(t, r.EnsureNetwork(ctx, SepoliaKey))
		assert.Equal(t, 2, agent.SwitchCalls())
		assert.Equal(t, 1, agent.AddCalls())

		added := agent.AddedChains()
		require.Len(t, added, 1)
		assert.Equal(t, interfaces.ChainParams{
			ChainID:       11155111,
			DisplayName:   "Sepolia",
			RPCEndpoint:   "https://rpc.sepolia.org",
			BlockExplorer: "https://sepolia.etherscan.io",
		}, added[0])

		res, err := r.ResolveCurrent(ctx)
		require.NoError(t, err)
		assert.Equal(t, SepoliaKey, res.Deployment.NetworkKey)
	})

	t.Run("refused switch is not retried", func(t *testing.T) {
		agent := signer.NewMockAgent(31337, testAccount, nil)
		agent.FailSwitch(interfaces.ErrSignerRejected)

		err := newResolver(t, agent, nil).EnsureNetwork(ctx, SepoliaKey)
		require.ErrorIs(t, err, interfaces.ErrNetwork)
		assert.Equal(t, 1, agent.SwitchCalls())
		assert.Zero(t, agent.AddCalls())
	})

	t.Run("refused add", func(t *testing.T) {
		agent := signer.NewMockAgent(31337, testAccount, nil)
		agent.FailAdd(interfaces.ErrSignerRejected)

		err := newResolver(t, agent, nil).EnsureNetwork(ctx, SepoliaKey)
		require.ErrorIs(t, err, interfaces.ErrNetwork)
		assert.Equal(t, 1, agent.SwitchCalls())
		assert.Equal(t, 1, agent.AddCalls())
	})

	t.Run("unknown network key", func(t *testing.T) {
		agent := signer.NewMockAgent(31337, testAccount, nil)
		err := newResolver(t, agent, nil).EnsureNetwork(ctx, "mainnet")
		require.ErrorIs(t, err, interfaces.ErrInput)
		assert.Zero(t, agent.SwitchCalls())
	})

	t.Run("unreachable agent", func(t *testing.T) {
		agent := signer.NewMockAgent(31337, testAccount, nil)
		agent.FailChainID(errors.New("connection refused"))
		require.ErrorIs(t, newResolver(t, agent, nil).EnsureNetwork(ctx, SepoliaKey), interfaces.ErrNetwork)
	})

	t.Run("no agent", func(t *testing.T) {
		require.ErrorIs(t, newResolver(t, nil, nil).EnsureNetwork(ctx, SepoliaKey), interfaces.ErrNetwork)
	})
}

func TestResolver_Overrides(t *testing.T) {
	ctx := context.Background()
	backend, err := storage.NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	book := storage.NewAddressBook(backend, testLogger())

	r := newResolver(t, nil, book)
	sepolia, ok := r.Deployment(SepoliaKey)
	require.True(t, ok)
	require.ErrorIs(t, sepolia.Validate(), interfaces.ErrNotDeployed)

	require.ErrorIs(t, r.SetRegistryAddress(ctx, SepoliaKey, common.Address{}), interfaces.ErrInput)
	require.ErrorIs(t, r.SetRegistryAddress(ctx, "mainnet", sepoliaAddr), interfaces.ErrInput)

	require.NoError(t, r.SetRegistryAddress(ctx, SepoliaKey, sepoliaAddr))
	sepolia, _ = r.Deployment(SepoliaKey)
	assert.Equal(t, sepoliaAddr, sepolia.RegistryAddress)
	assert.NoError(t, sepolia.Validate())

	// a fresh resolver picks the override up from storage
	fresh := newResolver(t, nil, book)
	require.NoError(t, fresh.Load(ctx))
	sepolia, _ = fresh.Deployment(SepoliaKey)
	assert.Equal(t, sepoliaAddr, sepolia.RegistryAddress)

	localhost, _ := fresh.Deployment(LocalhostKey)
	assert.Equal(t, DefaultDeployments()[0].RegistryAddress, localhost.RegistryAddress)
}

func TestNewResolver_Validation(t *testing.T) {
	_, err := NewResolver(nil, Config{DefaultKey: "mainnet", Log: testLogger()})
	require.ErrorIs(t, err, interfaces.ErrInput)

	dup := append(DefaultDeployments(), DefaultDeployments()[0])
	_, err = NewResolver(nil, Config{Deployments: dup, Log: testLogger()})
	require.ErrorIs(t, err, interfaces.ErrInput)

	r, err := NewResolver(nil, Config{Log: testLogger()})
	require.NoError(t, err)
	assert.Len(t, r.Deployments(), 2)
	assert.Equal(t, LocalhostKey, r.Default().NetworkKey)
}

func TestLoadDeploymentsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"network_key": "sepolia", "display_name": "Sepolia", "chain_id": 11155111,
		 "rpc_endpoint": "https://sepolia.example.org", "registry_address": "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"},
		{"network_key": "holesky", "display_name": "Holesky", "chain_id": 17000,
		 "rpc_endpoint": "https://holesky.example.org"}
	]`), 0644))

	deployments, err := LoadDeploymentsFile(path)
	require.NoError(t, err)
	require.Len(t, deployments, 3)

	assert.Equal(t, LocalhostKey, deployments[0].NetworkKey)
	assert.Equal(t, "https://sepolia.example.org", deployments[1].RPCEndpoint)
	assert.Equal(t, sepoliaAddr, deployments[1].RegistryAddress)
	assert.Equal(t, "holesky", deployments[2].NetworkKey)

	_, err = ReadDeployments(strings.NewReader(`[{"network_key": "x"}]`))
	require.ErrorIs(t, err, interfaces.ErrInput)

	_, err = ReadDeployments(strings.NewReader(`{`))
	require.ErrorIs(t, err, interfaces.ErrInput)
}
