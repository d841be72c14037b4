// Package signer implements signing agents: a wallet reached over JSON-RPC,
// a local private key, and an in-memory mock for tests.
package signer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ruteri/diplomachain/interfaces"
)

// Wallet error codes (EIP-1193 and the MetaMask extension for unknown chains).
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnknownChain      = 4902
)

// classify maps a wallet error onto the client's error taxonomy.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case CodeUnknownChain:
			return fmt.Errorf("%w: %s: %v", interfaces.ErrChainNotAdded, method, err)
		case CodeUserRejected, CodeUnauthorized:
			return fmt.Errorf("%w: %s: %v", interfaces.ErrSignerRejected, method, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", interfaces.ErrTransport, method, err)
}

// RPCAgent is a wallet reached over JSON-RPC, speaking the EIP-1193 methods
// an injected browser wallet answers.
type RPCAgent struct {
	client *rpc.Client
	log    *slog.Logger
}

func NewRPCAgent(client *rpc.Client, log *slog.Logger) *RPCAgent {
	if log == nil {
		log = slog.Default()
	}
	return &RPCAgent{client: client, log: log}
}

// DialRPCAgent connects to a wallet endpoint.
func DialRPCAgent(ctx context.Context, endpoint string, log *slog.Logger) (*RPCAgent, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial wallet %s: %v", interfaces.ErrTransport, endpoint, err)
	}
	return NewRPCAgent(client, log), nil
}

func (a *RPCAgent) Close() {
	a.client.Close()
}

func (a *RPCAgent) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := a.client.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return nil, classify("eth_chainId", err)
	}
	return (*big.Int)(&result), nil
}

func (a *RPCAgent) RequestAccounts(ctx context.Context) ([]interfaces.Identity, error) {
	var accounts []common.Address
	if err := a.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, classify("eth_requestAccounts", err)
	}
	return accounts, nil
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

func (a *RPCAgent) SwitchChain(ctx context.Context, chainID uint64) error {
	params := switchChainParams{ChainID: hexutil.EncodeUint64(chainID)}
	err := a.client.CallContext(ctx, nil, "wallet_switchEthereumChain", params)
	return classify("wallet_switchEthereumChain", err)
}

type nativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type addChainParams struct {
	ChainID           string          `json:"chainId"`
	ChainName         string          `json:"chainName"`
	RPCUrls           []string        `json:"rpcUrls"`
	BlockExplorerUrls []string        `json:"blockExplorerUrls,omitempty"`
	NativeCurrency    *nativeCurrency `json:"nativeCurrency,omitempty"`
}

func newAddChainParams(params interfaces.ChainParams) addChainParams {
	out := addChainParams{
		ChainID:   hexutil.EncodeUint64(params.ChainID),
		ChainName: params.DisplayName,
		RPCUrls:   []string{params.RPCEndpoint},
		NativeCurrency: &nativeCurrency{
			Name:     "Ether",
			Symbol:   "ETH",
			Decimals: 18,
		},
	}
	if params.BlockExplorer != "" {
		out.BlockExplorerUrls = []string{params.BlockExplorer}
	}
	return out
}

func (a *RPCAgent) AddChain(ctx context.Context, params interfaces.ChainParams) error {
	err := a.client.CallContext(ctx, nil, "wallet_addEthereumChain", newAddChainParams(params))
	return classify("wallet_addEthereumChain", err)
}

type sendTxArgs struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

func (a *RPCAgent) SendTransaction(ctx context.Context, req interfaces.CallRequest) (common.Hash, error) {
	var hash common.Hash
	args := sendTxArgs{From: req.From, To: req.To, Data: req.Data}
	if err := a.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, classify("eth_sendTransaction", err)
	}
	a.log.Debug("wallet accepted transaction", "from", req.From, "to", req.To, "tx", hash)
	return hash, nil
}
