package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RegistryReader is the read side of the credential registry.
type RegistryReader interface {
	// QueryIssuerAuthorization reports whether name may currently issue records.
	QueryIssuerAuthorization(ctx context.Context, name string) (bool, error)

	// QueryRecord returns the record stored under (fp, issuerName).
	QueryRecord(ctx context.Context, fp Fingerprint, issuerName string) (CredentialRecordView, error)

	// QueryRole reports whether identity holds role.
	QueryRole(ctx context.Context, role Role, identity Identity) (bool, error)
}

// ChainParams is what a signing agent needs to register a chain.
type ChainParams struct {
	ChainID       uint64
	DisplayName   string
	RPCEndpoint   string
	BlockExplorer string
}

// CallRequest is a contract call handed to the signing agent.
type CallRequest struct {
	From common.Address
	To   common.Address
	Data []byte
}

// SigningAgent holds keys and broadcasts transactions on behalf of the client.
type SigningAgent interface {
	// ChainID returns the chain the agent currently targets.
	ChainID(ctx context.Context) (*big.Int, error)

	// RequestAccounts returns the accounts the agent will sign for. The first is the connected one.
	RequestAccounts(ctx context.Context) ([]Identity, error)

	// SwitchChain asks the agent to target another chain.
	// Returns ErrChainNotAdded if the agent does not know the chain.
	SwitchChain(ctx context.Context, chainID uint64) error

	// AddChain registers a chain with the agent.
	AddChain(ctx context.Context, params ChainParams) error

	// SendTransaction signs and broadcasts a call, returning its hash.
	SendTransaction(ctx context.Context, req CallRequest) (common.Hash, error)
}

// ReceiptSource reports ledger finality for submitted transactions.
// TransactionReceipt returns ethereum.NotFound while the transaction is pending.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}
