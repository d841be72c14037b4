package signer

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/diplomachain/interfaces"
)

// TxSink receives transactions a MockAgent signs. registry.MockLedger is one.
type TxSink interface {
	Submit(ctx context.Context, from common.Address, to common.Address, data []byte) (common.Hash, error)
}

// MockAgent is an in-memory wallet for tests. Errors can be scripted per
// method, and calls are counted.
type MockAgent struct {
	mutex   sync.Mutex
	account interfaces.Identity
	chainID uint64
	known   map[uint64]bool
	sink    TxSink

	chainIDErr  error
	accountsErr error
	switchErr   error
	addErr      error
	sendErr     error

	switchCalls int
	addCalls    int
	sendCalls   int
	added       []interfaces.ChainParams
}

// NewMockAgent creates a wallet connected to chainID as account. A nil sink
// accepts transactions without delivering them anywhere.
func NewMockAgent(chainID uint64, account interfaces.Identity, sink TxSink) *MockAgent {
	return &MockAgent{
		account: account,
		chainID: chainID,
		known:   map[uint64]bool{chainID: true},
		sink:    sink,
	}
}

func (m *MockAgent) SetAccount(account interfaces.Identity) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.account = account
}

// KnowChain makes the wallet accept switches to chainID without AddChain.
func (m *MockAgent) KnowChain(chainID uint64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.known[chainID] = true
}

func (m *MockAgent) FailChainID(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.chainIDErr = err
}

func (m *MockAgent) FailAccounts(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.accountsErr = err
}

// FailSwitch makes every SwitchChain return err, even for known chains.
func (m *MockAgent) FailSwitch(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.switchErr = err
}

func (m *MockAgent) FailAdd(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.addErr = err
}

func (m *MockAgent) FailSend(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sendErr = err
}

func (m *MockAgent) SwitchCalls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.switchCalls
}

func (m *MockAgent) AddCalls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.addCalls
}

func (m *MockAgent) SendCalls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.sendCalls
}

// AddedChains returns the parameters of every AddChain request.
func (m *MockAgent) AddedChains() []interfaces.ChainParams {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]interfaces.ChainParams(nil), m.added...)
}

func (m *MockAgent) ChainID(ctx context.Context) (*big.Int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.chainIDErr != nil {
		return nil, m.chainIDErr
	}
	return new(big.Int).SetUint64(m.chainID), nil
}

func (m *MockAgent) RequestAccounts(ctx context.Context) ([]interfaces.Identity, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.accountsErr != nil {
		return nil, m.accountsErr
	}
	if m.account == (interfaces.Identity{}) {
		return nil, nil
	}
	return []interfaces.Identity{m.account}, nil
}

func (m *MockAgent) SwitchChain(ctx context.Context, chainID uint64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.switchCalls++
	if m.switchErr != nil {
		return m.switchErr
	}
	if !m.known[chainID] {
		return fmt.Errorf("%w: chain id %d", interfaces.ErrChainNotAdded, chainID)
	}
	m.chainID = chainID
	return nil
}

func (m *MockAgent) AddChain(ctx context.Context, params interfaces.ChainParams) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.addCalls++
	m.added = append(m.added, params)
	if m.addErr != nil {
		return m.addErr
	}
	m.known[params.ChainID] = true
	return nil
}

func (m *MockAgent) SendTransaction(ctx context.Context, req interfaces.CallRequest) (common.Hash, error) {
	m.mutex.Lock()
	m.sendCalls++
	sendErr, sink, account := m.sendErr, m.sink, m.account
	m.mutex.Unlock()

	if sendErr != nil {
		return common.Hash{}, sendErr
	}
	if req.From != account {
		return common.Hash{}, fmt.Errorf("%w: not connected as %s", interfaces.ErrSignerRejected, req.From.Hex())
	}
	if sink == nil {
		return crypto.Keccak256Hash(req.From.Bytes(), req.To.Bytes(), req.Data), nil
	}
	return sink.Submit(ctx, req.From, req.To, req.Data)
}
