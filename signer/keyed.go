package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ruteri/diplomachain/interfaces"
)

// ChainBackend is the part of an ethclient a KeyedAgent needs to build and
// broadcast transactions.
type ChainBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// ChainDialer connects to an RPC endpoint for AddChain.
type ChainDialer func(ctx context.Context, endpoint string) (ChainBackend, error)

func dialEthclient(ctx context.Context, endpoint string) (ChainBackend, error) {
	return ethclient.DialContext(ctx, endpoint)
}

// KeyedAgent signs with a local private key. It holds one backend per known
// chain and targets one of them at a time.
type KeyedAgent struct {
	key  *ecdsa.PrivateKey
	from common.Address
	dial ChainDialer
	log  *slog.Logger

	mu      sync.RWMutex
	chains  map[uint64]ChainBackend
	current uint64
}

func NewKeyedAgent(key *ecdsa.PrivateKey, dial ChainDialer, log *slog.Logger) *KeyedAgent {
	if dial == nil {
		dial = dialEthclient
	}
	if log == nil {
		log = slog.Default()
	}
	return &KeyedAgent{
		key:    key,
		from:   crypto.PubkeyToAddress(key.PublicKey),
		dial:   dial,
		log:    log,
		chains: make(map[uint64]ChainBackend),
	}
}

// NewKeyedAgentFromHex parses a hex private key, with or without 0x.
func NewKeyedAgentFromHex(hexkey string, dial ChainDialer, log *slog.Logger) (*KeyedAgent, error) {
	if len(hexkey) >= 2 && hexkey[0] == '0' && (hexkey[1] == 'x' || hexkey[1] == 'X') {
		hexkey = hexkey[2:]
	}
	key, err := crypto.HexToECDSA(hexkey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid private key: %v", interfaces.ErrInput, err)
	}
	return NewKeyedAgent(key, dial, log), nil
}

// Address is the account the agent signs for.
func (a *KeyedAgent) Address() common.Address {
	return a.from
}

// Register adds a connected backend under the chain id it reports. The first
// registered chain becomes the current one.
func (a *KeyedAgent) Register(ctx context.Context, backend ChainBackend) (uint64, error) {
	id, err := backend.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: chain id: %v", interfaces.ErrTransport, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.chains[id.Uint64()] = backend
	if a.current == 0 {
		a.current = id.Uint64()
	}
	return id.Uint64(), nil
}

func (a *KeyedAgent) backend() (uint64, ChainBackend, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	backend, ok := a.chains[a.current]
	if !ok {
		return 0, nil, fmt.Errorf("%w: no chain connected", interfaces.ErrTransport)
	}
	return a.current, backend, nil
}

func (a *KeyedAgent) ChainID(ctx context.Context) (*big.Int, error) {
	id, _, err := a.backend()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(id), nil
}

func (a *KeyedAgent) RequestAccounts(ctx context.Context) ([]interfaces.Identity, error) {
	return []interfaces.Identity{a.from}, nil
}

func (a *KeyedAgent) SwitchChain(ctx context.Context, chainID uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.chains[chainID]; !ok {
		return fmt.Errorf("%w: chain id %d", interfaces.ErrChainNotAdded, chainID)
	}
	a.current = chainID
	return nil
}

// AddChain dials the chain's endpoint and checks it serves the expected chain id.
func (a *KeyedAgent) AddChain(ctx context.Context, params interfaces.ChainParams) error {
	backend, err := a.dial(ctx, params.RPCEndpoint)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", interfaces.ErrTransport, params.RPCEndpoint, err)
	}

	id, err := backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: chain id of %s: %v", interfaces.ErrTransport, params.RPCEndpoint, err)
	}
	if id.Uint64() != params.ChainID {
		return fmt.Errorf("%w: %s serves chain id %d, expected %d", interfaces.ErrNetwork, params.RPCEndpoint, id.Uint64(), params.ChainID)
	}

	a.mu.Lock()
	a.chains[params.ChainID] = backend
	a.mu.Unlock()

	a.log.Info("chain added", "chainID", params.ChainID, "name", params.DisplayName)
	return nil
}

// SendTransaction builds, signs and broadcasts an EIP-1559 transaction on
// the current chain.
func (a *KeyedAgent) SendTransaction(ctx context.Context, req interfaces.CallRequest) (common.Hash, error) {
	if req.From != a.from {
		return common.Hash{}, fmt.Errorf("%w: agent holds no key for %s", interfaces.ErrSignerRejected, req.From.Hex())
	}

	chainID, backend, err := a.backend()
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := backend.PendingNonceAt(ctx, a.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: nonce: %v", interfaces.ErrTransport, err)
	}

	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: gas tip: %v", interfaces.ErrTransport, err)
	}

	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: head: %v", interfaces.ErrTransport, err)
	}

	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := req.To
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      a.from,
		To:        &to,
		GasFeeCap: feeCap,
		GasTipCap: tip,
		Data:      req.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: estimate gas: %v", interfaces.ErrTransport, err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(chainID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      req.Data,
	})

	auth, err := bind.NewKeyedTransactorWithChainID(a.key, new(big.Int).SetUint64(chainID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", interfaces.ErrSignerRejected, err)
	}
	signed, err := auth.Signer(a.from, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: sign: %v", interfaces.ErrSignerRejected, err)
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("%w: broadcast: %v", interfaces.ErrTransport, err)
	}

	a.log.Debug("transaction broadcast", "chainID", chainID, "nonce", nonce, "tx", signed.Hash())
	return signed.Hash(), nil
}
