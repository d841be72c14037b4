package registry

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/diplomachain/bindings/diplomaregistry"
)

// MockLedger is an in-memory DiplomaRegistry for tests. It answers view
// calls by decoding real ABI call data, queues submitted transactions until
// Mine is called, and applies the contract's rules when mining: only
// administrators authorize issuers, only the authorized address of an issuer
// name publishes under it, and a record is created once.
//
// It implements bind.ContractCaller and interfaces.ReceiptSource, and is the
// transaction sink for signer.MockAgent.
type MockLedger struct {
	mutex    sync.RWMutex
	address  common.Address
	parsed   abi.ABI
	now      func() time.Time
	block    uint64
	nonce    uint64
	issuers  map[string]mockIssuer
	records  map[mockRecordKey]*mockRecord
	admins   map[common.Address]bool
	pending  []mockTx
	receipts map[common.Hash]*types.Receipt
}

type mockIssuer struct {
	address    common.Address
	authorized bool
}

type mockRecordKey struct {
	fp   [32]byte
	name string
}

type mockRecord struct {
	issuer     common.Address
	issuedAt   uint64
	revoked    bool
	degreeType [32]byte
}

type mockTx struct {
	hash common.Hash
	from common.Address
	to   common.Address
	data []byte
}

// AdminRole is the role id the mock reports for ADMIN_ROLE().
var AdminRole = crypto.Keccak256Hash([]byte("ADMIN_ROLE"))

// NewMockLedger creates an empty registry deployed at address, with admin
// holding the administrator role.
func NewMockLedger(address common.Address, admin common.Address) *MockLedger {
	parsed, err := diplomaregistry.ParsedABI()
	if err != nil {
		panic(err)
	}

	return &MockLedger{
		address:  address,
		parsed:   parsed,
		now:      time.Now,
		block:    1,
		issuers:  make(map[string]mockIssuer),
		records:  make(map[mockRecordKey]*mockRecord),
		admins:   map[common.Address]bool{admin: true},
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// Address is where the mock registry is deployed.
func (m *MockLedger) Address() common.Address {
	return m.address
}

// SetClock replaces the clock used for issuance timestamps.
func (m *MockLedger) SetClock(now func() time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.now = now
}

// CodeAt reports code only at the registry address.
func (m *MockLedger) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	if contract == m.address {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

// CallContract executes a view call against confirmed state.
func (m *MockLedger) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call.To == nil || *call.To != m.address {
		return nil, nil
	}

	method, args, err := m.decode(call.Data)
	if err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	switch method.Name {
	case diplomaregistry.MethodAdminRole:
		return method.Outputs.Pack([32]byte(AdminRole))

	case diplomaregistry.MethodHasRole:
		role := args[0].([32]byte)
		account := args[1].(common.Address)
		return method.Outputs.Pack(role == [32]byte(AdminRole) && m.admins[account])

	case diplomaregistry.MethodIsUniversityAuthorized:
		name := args[0].(string)
		return method.Outputs.Pack(m.issuers[name].authorized)

	case diplomaregistry.MethodVerifyDiploma:
		key := mockRecordKey{fp: args[0].([32]byte), name: args[1].(string)}
		rec, ok := m.records[key]
		if !ok {
			return method.Outputs.Pack(false, false, common.Address{}, uint64(0), false, [32]byte{})
		}
		valid := !rec.revoked && m.issuers[key.name].authorized
		return method.Outputs.Pack(valid, true, rec.issuer, rec.issuedAt, rec.revoked, rec.degreeType)

	default:
		return nil, fmt.Errorf("execution reverted: %s is not a view", method.Name)
	}
}

// Submit queues a transaction from from. It is applied on the next Mine.
func (m *MockLedger) Submit(ctx context.Context, from common.Address, to common.Address, data []byte) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], m.nonce)
	m.nonce++

	hash := crypto.Keccak256Hash(nonce[:], from.Bytes(), to.Bytes(), data)
	m.pending = append(m.pending, mockTx{
		hash: hash,
		from: from,
		to:   to,
		data: append([]byte(nil), data...),
	})
	return hash, nil
}

// Pending returns how many transactions wait for the next Mine.
func (m *MockLedger) Pending() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.pending)
}

// Mine includes all pending transactions in one block, in submission order.
func (m *MockLedger) Mine() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.block++
	for i, tx := range m.pending {
		status := types.ReceiptStatusSuccessful
		if err := m.apply(tx); err != nil {
			status = types.ReceiptStatusFailed
		}
		m.receipts[tx.hash] = &types.Receipt{
			Status:           status,
			TxHash:           tx.hash,
			BlockNumber:      new(big.Int).SetUint64(m.block),
			TransactionIndex: uint(i),
			GasUsed:          21000,
		}
	}
	m.pending = nil
}

// TransactionReceipt returns ethereum.NotFound until the transaction is mined.
func (m *MockLedger) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	cp := *r
	return &cp, nil
}

var errRevert = errors.New("execution reverted")

// apply runs a state-changing call. Caller holds the write lock.
func (m *MockLedger) apply(tx mockTx) error {
	if tx.to != m.address {
		return errRevert
	}

	method, args, err := m.decode(tx.data)
	if err != nil {
		return err
	}

	switch method.Name {
	case diplomaregistry.MethodAuthorizeUniversity:
		name := args[0].(string)
		address := args[1].(common.Address)
		if !m.admins[tx.from] || name == "" || address == (common.Address{}) {
			return errRevert
		}
		m.issuers[name] = mockIssuer{address: address, authorized: true}
		return nil

	case diplomaregistry.MethodIssueDiploma:
		key := mockRecordKey{fp: args[0].([32]byte), name: args[1].(string)}
		issuer := m.issuers[key.name]
		if !issuer.authorized || issuer.address != tx.from {
			return errRevert
		}
		if _, exists := m.records[key]; exists {
			return errRevert
		}
		m.records[key] = &mockRecord{
			issuer:     tx.from,
			issuedAt:   uint64(m.now().Unix()),
			degreeType: args[2].([32]byte),
		}
		return nil

	default:
		return errRevert
	}
}

func (m *MockLedger) decode(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, errRevert
	}
	method, err := m.parsed.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errRevert, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errRevert, err)
	}
	return method, args, nil
}

// Ledger-side controls. The client exposes no calls for these; tests use
// them to put the registry into states other parties would produce.

// GrantAdmin gives account the administrator role.
func (m *MockLedger) GrantAdmin(account common.Address) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.admins[account] = true
}

// SetIssuer maps name to address directly, bypassing the admin check.
func (m *MockLedger) SetIssuer(name string, address common.Address, authorized bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.issuers[name] = mockIssuer{address: address, authorized: authorized}
}

// DeauthorizeIssuer withdraws the authority of name. Its records stay.
func (m *MockLedger) DeauthorizeIssuer(name string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	issuer := m.issuers[name]
	issuer.authorized = false
	m.issuers[name] = issuer
}

// RevokeRecord marks a record revoked. Revocation is permanent.
func (m *MockLedger) RevokeRecord(fp [32]byte, issuerName string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	rec, ok := m.records[mockRecordKey{fp: fp, name: issuerName}]
	if !ok {
		return false
	}
	rec.revoked = true
	return true
}
