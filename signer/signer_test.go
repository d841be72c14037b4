package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type walletError struct {
	code int
	msg  string
}

func (e walletError) Error() string  { return e.msg }
func (e walletError) ErrorCode() int { return e.code }

// fakeWallet serves the eth_ and wallet_ namespaces an injected wallet answers.
type fakeWallet struct {
	chainID  uint64
	known    map[uint64]bool
	accounts []common.Address
	reject   bool
	sent     []sendTxArgs
	added    []addChainParams
}

type fakeEth struct{ w *fakeWallet }

func (e *fakeEth) ChainId() hexutil.Uint64 { return hexutil.Uint64(e.w.chainID) }

func (e *fakeEth) RequestAccounts() ([]common.Address, error) {
	if e.w.reject {
		return nil, walletError{CodeUserRejected, "User rejected the request."}
	}
	return e.w.accounts, nil
}

func (e *fakeEth) SendTransaction(args sendTxArgs) (common.Hash, error) {
	if e.w.reject {
		return common.Hash{}, walletError{CodeUserRejected, "User denied transaction signature."}
	}
	e.w.sent = append(e.w.sent, args)
	return crypto.Keccak256Hash(args.Data), nil
}

type fakeWalletNS struct{ w *fakeWallet }

func (n *fakeWalletNS) SwitchEthereumChain(params switchChainParams) error {
	id, err := hexutil.DecodeUint64(params.ChainID)
	if err != nil {
		return err
	}
	if !n.w.known[id] {
		return walletError{CodeUnknownChain, "Unrecognized chain ID"}
	}
	n.w.chainID = id
	return nil
}

func (n *fakeWalletNS) AddEthereumChain(params addChainParams) error {
	id, err := hexutil.DecodeUint64(params.ChainID)
	if err != nil {
		return err
	}
	n.w.added = append(n.w.added, params)
	n.w.known[id] = true
	return nil
}

func newFakeWallet(t *testing.T, w *fakeWallet) *RPCAgent {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &fakeEth{w}))
	require.NoError(t, server.RegisterName("wallet", &fakeWalletNS{w}))
	t.Cleanup(server.Stop)

	agent := NewRPCAgent(rpc.DialInProc(server), testLogger)
	t.Cleanup(agent.Close)
	return agent
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("m", nil))
	assert.ErrorIs(t, classify("m", walletError{CodeUnknownChain, "x"}), interfaces.ErrChainNotAdded)
	assert.ErrorIs(t, classify("m", walletError{CodeUserRejected, "x"}), interfaces.ErrSignerRejected)
	assert.ErrorIs(t, classify("m", walletError{-32000, "x"}), interfaces.ErrTransport)
	assert.ErrorIs(t, classify("m", errors.New("connection refused")), interfaces.ErrTransport)
}

func TestRPCAgent_ChainAndAccounts(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	agent := newFakeWallet(t, &fakeWallet{
		chainID:  31337,
		known:    map[uint64]bool{31337: true},
		accounts: []common.Address{account},
	})

	id, err := agent.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), id.Uint64())

	accounts, err := agent.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Identity{account}, accounts)
}

func TestRPCAgent_SwitchUnknownChainThenAdd(t *testing.T) {
	w := &fakeWallet{chainID: 31337, known: map[uint64]bool{31337: true}}
	agent := newFakeWallet(t, w)

	err := agent.SwitchChain(context.Background(), 11155111)
	require.ErrorIs(t, err, interfaces.ErrChainNotAdded)

	require.NoError(t, agent.AddChain(context.Background(), interfaces.ChainParams{
		ChainID:       11155111,
		DisplayName:   "Sepolia",
		RPCEndpoint:   "https://rpc.sepolia.org",
		BlockExplorer: "https://sepolia.etherscan.io",
	}))
	require.Len(t, w.added, 1)
	assert.Equal(t, "0xaa36a7", w.added[0].ChainID)
	assert.Equal(t, []string{"https://rpc.sepolia.org"}, w.added[0].RPCUrls)
	assert.Equal(t, []string{"https://sepolia.etherscan.io"}, w.added[0].BlockExplorerUrls)

	require.NoError(t, agent.SwitchChain(context.Background(), 11155111))
	assert.Equal(t, uint64(11155111), w.chainID)
}

func TestRPCAgent_SendTransaction(t *testing.T) {
	from := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	to := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	w := &fakeWallet{chainID: 31337, known: map[uint64]bool{31337: true}, accounts: []common.Address{from}}
	agent := newFakeWallet(t, w)

	hash, err := agent.SendTransaction(context.Background(), interfaces.CallRequest{From: from, To: to, Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash([]byte{1, 2, 3}), hash)
	require.Len(t, w.sent, 1)
	assert.Equal(t, to, w.sent[0].To)

	w.reject = true
	_, err = agent.SendTransaction(context.Background(), interfaces.CallRequest{From: from, To: to})
	assert.ErrorIs(t, err, interfaces.ErrSignerRejected)
}

func setupTestChain(t *testing.T) (*simulated.Backend, *ecdsa.PrivateKey) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, big.NewInt(1337))
	require.NoError(t, err)

	balance := new(big.Int)
	balance.SetString("10000000000000000000", 10) // 10 ETH

	genesisAlloc := map[common.Address]types.Account{
		auth.From: {Balance: balance},
	}

	backend := simulated.NewBackend(genesisAlloc, simulated.WithBlockGasLimit(8000000))
	t.Cleanup(func() { backend.Close() })
	return backend, privateKey
}

func TestKeyedAgent_SendTransaction(t *testing.T) {
	backend, key := setupTestChain(t)
	agent := NewKeyedAgent(key, nil, testLogger)

	chainID, err := agent.Register(context.Background(), backend.Client())
	require.NoError(t, err)
	assert.Equal(t, uint64(1337), chainID)

	accounts, err := agent.RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []interfaces.Identity{crypto.PubkeyToAddress(key.PublicKey)}, accounts)

	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	hash, err := agent.SendTransaction(context.Background(), interfaces.CallRequest{
		From: accounts[0],
		To:   to,
		Data: []byte("payload"),
	})
	require.NoError(t, err)

	backend.Commit()

	receipt, err := backend.Client().TransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	tx, _, err := backend.Client().TransactionByHash(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), tx.Data())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
}

func TestKeyedAgent_RejectsForeignSender(t *testing.T) {
	backend, key := setupTestChain(t)
	agent := NewKeyedAgent(key, nil, testLogger)
	_, err := agent.Register(context.Background(), backend.Client())
	require.NoError(t, err)

	_, err = agent.SendTransaction(context.Background(), interfaces.CallRequest{
		From: common.HexToAddress("0x00000000000000000000000000000000000000cc"),
		To:   common.HexToAddress("0x00000000000000000000000000000000000000bb"),
	})
	assert.ErrorIs(t, err, interfaces.ErrSignerRejected)
}

func TestKeyedAgent_SwitchAndAddChain(t *testing.T) {
	backend, key := setupTestChain(t)
	dial := func(ctx context.Context, endpoint string) (ChainBackend, error) {
		return backend.Client(), nil
	}
	agent := NewKeyedAgent(key, dial, testLogger)

	_, err := agent.ChainID(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrTransport)

	err = agent.SwitchChain(context.Background(), 1337)
	require.ErrorIs(t, err, interfaces.ErrChainNotAdded)

	err = agent.AddChain(context.Background(), interfaces.ChainParams{ChainID: 31337, RPCEndpoint: "sim://"})
	require.ErrorIs(t, err, interfaces.ErrNetwork)

	require.NoError(t, agent.AddChain(context.Background(), interfaces.ChainParams{ChainID: 1337, RPCEndpoint: "sim://"}))
	require.NoError(t, agent.SwitchChain(context.Background(), 1337))

	id, err := agent.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1337), id.Uint64())
}

func TestNewKeyedAgentFromHex(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexkey := hexutil.Encode(crypto.FromECDSA(key))

	agent, err := NewKeyedAgentFromHex(hexkey, nil, testLogger)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), agent.Address())

	_, err = NewKeyedAgentFromHex("not-a-key", nil, testLogger)
	assert.ErrorIs(t, err, interfaces.ErrInput)
}

func TestMockAgent_ScriptedFailures(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	agent := NewMockAgent(31337, account, nil)

	require.ErrorIs(t, agent.SwitchChain(context.Background(), 1), interfaces.ErrChainNotAdded)
	require.NoError(t, agent.AddChain(context.Background(), interfaces.ChainParams{ChainID: 1}))
	require.NoError(t, agent.SwitchChain(context.Background(), 1))
	assert.Equal(t, 2, agent.SwitchCalls())
	assert.Equal(t, 1, agent.AddCalls())

	agent.FailSend(interfaces.ErrSignerRejected)
	_, err := agent.SendTransaction(context.Background(), interfaces.CallRequest{From: account})
	assert.ErrorIs(t, err, interfaces.ErrSignerRejected)
}
