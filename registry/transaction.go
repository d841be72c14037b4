package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/diplomachain/interfaces"
)

// TxState is the lifecycle state of a submitted transaction.
type TxState int

const (
	TxSubmitted TxState = iota
	TxConfirmed
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxSubmitted:
		return "submitted"
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FailureKind tells where a transaction failed.
type FailureKind int

const (
	// FailureSignerRejected: the agent or its user refused to sign.
	FailureSignerRejected FailureKind = iota + 1
	// FailureBroadcast: the agent could not be reached or could not broadcast.
	FailureBroadcast
	// FailureReverted: the ledger included the transaction and reverted it.
	FailureReverted
)

func (k FailureKind) String() string {
	switch k {
	case FailureSignerRejected:
		return "signer rejected"
	case FailureBroadcast:
		return "broadcast failed"
	case FailureReverted:
		return "reverted"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Failure is the cause attached to a failed transaction.
type Failure struct {
	Kind  FailureKind
	Cause error
}

func (f *Failure) Error() string {
	if f.Cause == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Cause)
}

// Unwrap exposes both the error class and the underlying cause.
func (f *Failure) Unwrap() []error {
	var class error
	switch f.Kind {
	case FailureSignerRejected:
		class = interfaces.ErrSignerRejected
	case FailureBroadcast:
		class = interfaces.ErrTransport
	case FailureReverted:
		class = interfaces.ErrLedgerRejection
	}

	errs := make([]error, 0, 2)
	if class != nil {
		errs = append(errs, class)
	}
	if f.Cause != nil {
		errs = append(errs, f.Cause)
	}
	return errs
}

// Receipt is the ledger's confirmation of a transaction.
type Receipt struct {
	ID          string      `json:"id"`
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	GasUsed     uint64      `json:"gas_used"`
}

func receiptFrom(r *types.Receipt) Receipt {
	out := Receipt{
		ID:      r.TxHash.Hex(),
		TxHash:  r.TxHash,
		GasUsed: r.GasUsed,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}

// PendingTransaction tracks one state-changing call from hand-off to its
// terminal state. It moves out of TxSubmitted at most once.
type PendingTransaction struct {
	method       string
	hash         common.Hash
	receipts     interfaces.ReceiptSource
	pollInterval time.Duration
	onResolve    func(*PendingTransaction)

	mu      sync.Mutex
	state   TxState
	receipt Receipt
	failure *Failure
	done    chan struct{}
}

func newPendingTransaction(method string, hash common.Hash, receipts interfaces.ReceiptSource, pollInterval time.Duration, onResolve func(*PendingTransaction)) *PendingTransaction {
	return &PendingTransaction{
		method:       method,
		hash:         hash,
		receipts:     receipts,
		pollInterval: pollInterval,
		onResolve:    onResolve,
		state:        TxSubmitted,
		done:         make(chan struct{}),
	}
}

func newFailedTransaction(method string, failure *Failure) *PendingTransaction {
	tx := &PendingTransaction{
		method:  method,
		state:   TxFailed,
		failure: failure,
		done:    make(chan struct{}),
	}
	close(tx.done)
	return tx
}

// Method is the contract method the transaction calls.
func (p *PendingTransaction) Method() string { return p.method }

// Hash is the transaction hash, empty when the hand-off failed.
func (p *PendingTransaction) Hash() common.Hash { return p.hash }

func (p *PendingTransaction) State() TxState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Receipt returns the confirmation once the transaction is confirmed.
func (p *PendingTransaction) Receipt() (Receipt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.receipt, p.state == TxConfirmed
}

// Failure returns the failure cause once the transaction failed, or nil.
func (p *PendingTransaction) Failure() *Failure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}

// Done is closed when the transaction reaches a terminal state.
func (p *PendingTransaction) Done() <-chan struct{} { return p.done }

// resolve applies the terminal transition. Later calls are ignored.
func (p *PendingTransaction) resolve(state TxState, receipt Receipt, failure *Failure) {
	p.mu.Lock()
	if p.state != TxSubmitted {
		p.mu.Unlock()
		return
	}
	p.state = state
	p.receipt = receipt
	p.failure = failure
	close(p.done)
	p.mu.Unlock()

	if p.onResolve != nil {
		p.onResolve(p)
	}
}

// Poll asks the ledger once for a receipt and returns the resulting state.
// A missing receipt leaves the transaction submitted.
func (p *PendingTransaction) Poll(ctx context.Context) (TxState, error) {
	if state := p.State(); state != TxSubmitted {
		return state, nil
	}

	r, err := p.receipts.TransactionReceipt(ctx, p.hash)
	if errors.Is(err, ethereum.NotFound) {
		return TxSubmitted, nil
	}
	if err != nil {
		return TxSubmitted, fmt.Errorf("%w: receipt for %s: %v", interfaces.ErrTransport, p.hash.Hex(), err)
	}

	receipt := receiptFrom(r)
	if r.Status == types.ReceiptStatusSuccessful {
		p.resolve(TxConfirmed, receipt, nil)
	} else {
		p.resolve(TxFailed, receipt, &Failure{
			Kind:  FailureReverted,
			Cause: fmt.Errorf("%s reverted in block %d", p.method, receipt.BlockNumber),
		})
	}
	return p.State(), nil
}

// Wait blocks until the transaction is confirmed or failed. When ctx ends
// first, Wait returns ErrConfirmationTimeout and the transaction stays
// submitted; it may still resolve later. Transient receipt lookup errors are
// retried on the next tick.
func (p *PendingTransaction) Wait(ctx context.Context) (Receipt, error) {
	var ticker *time.Ticker
	for {
		state, err := p.Poll(ctx)
		switch {
		case state == TxConfirmed:
			receipt, _ := p.Receipt()
			return receipt, nil
		case state == TxFailed:
			return Receipt{}, p.Failure()
		case err != nil && ctx.Err() != nil:
			return Receipt{}, fmt.Errorf("%w: %s: %w", interfaces.ErrConfirmationTimeout, p.hash.Hex(), ctx.Err())
		}

		if ticker == nil {
			ticker = time.NewTicker(p.pollInterval)
			defer ticker.Stop()
		}

		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("%w: %s: %w", interfaces.ErrConfirmationTimeout, p.hash.Hex(), ctx.Err())
		case <-p.done:
		case <-ticker.C:
		}
	}
}
