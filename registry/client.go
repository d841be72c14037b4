package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ruteri/diplomachain/bindings/diplomaregistry"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/metrics"
)

const (
	DefaultCallTimeout  = 10 * time.Second
	DefaultPollInterval = time.Second
)

// Options tune a RegistryClient. Zero values select the defaults.
type Options struct {
	// CallTimeout bounds every view call and every hand-off to the signing agent.
	CallTimeout time.Duration

	// PollInterval is how often trackers ask for a receipt.
	PollInterval time.Duration

	Log     *slog.Logger
	Metrics *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	return o
}

// RegistryClient is bound to one deployment and never changes after
// construction. Build a new one when the network changes.
type RegistryClient struct {
	deployment interfaces.NetworkDeployment
	contract   *diplomaregistry.DiplomaRegistryCaller
	agent      interfaces.SigningAgent
	receipts   interfaces.ReceiptSource
	opts       Options
}

// NewRegistryClient creates a client for the registry of deployment. The
// agent may be nil for a read-only client; a signing client needs receipts.
func NewRegistryClient(deployment interfaces.NetworkDeployment, caller bind.ContractCaller, agent interfaces.SigningAgent, receipts interfaces.ReceiptSource, opts Options) (*RegistryClient, error) {
	if err := deployment.Validate(); err != nil {
		return nil, err
	}
	if agent != nil && receipts == nil {
		return nil, fmt.Errorf("%w: a signing client needs a receipt source", interfaces.ErrInput)
	}

	contract, err := diplomaregistry.NewDiplomaRegistryCaller(deployment.RegistryAddress, caller)
	if err != nil {
		return nil, err
	}

	return &RegistryClient{
		deployment: deployment,
		contract:   contract,
		agent:      agent,
		receipts:   receipts,
		opts:       opts.withDefaults(),
	}, nil
}

// Deployment returns the deployment the client is bound to.
func (c *RegistryClient) Deployment() interfaces.NetworkDeployment {
	return c.deployment
}

// Agent returns the signing agent writes are handed to, or nil.
func (c *RegistryClient) Agent() interfaces.SigningAgent {
	return c.agent
}

func (c *RegistryClient) callOpts(ctx context.Context) (*bind.CallOpts, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	return &bind.CallOpts{Context: ctx}, cancel
}

// callError classifies a failed view call.
func (c *RegistryClient) callError(method string, err error) error {
	if errors.Is(err, bind.ErrNoCode) {
		return fmt.Errorf("%w: %w: no contract at %s on %s", interfaces.ErrNetwork, interfaces.ErrNotDeployed, c.deployment.RegistryAddress.Hex(), c.deployment.NetworkKey)
	}
	return fmt.Errorf("%w: %s: %v", interfaces.ErrTransport, method, err)
}

func (c *RegistryClient) observe(method string, start time.Time) {
	c.opts.Metrics.ObserveRegistryCall(method, time.Since(start))
}

// QueryIssuerAuthorization reports whether name may currently issue records.
// Unknown names are simply not authorized.
func (c *RegistryClient) QueryIssuerAuthorization(ctx context.Context, name string) (bool, error) {
	defer c.observe(diplomaregistry.MethodIsUniversityAuthorized, time.Now())

	opts, cancel := c.callOpts(ctx)
	defer cancel()

	authorized, err := c.contract.IsUniversityAuthorized(opts, name)
	if err != nil {
		return false, c.callError(diplomaregistry.MethodIsUniversityAuthorized, err)
	}
	return authorized, nil
}

// QueryRecord returns the record stored under (fp, issuerName). A missing
// record is a view with Exists false, not an error.
func (c *RegistryClient) QueryRecord(ctx context.Context, fp interfaces.Fingerprint, issuerName string) (interfaces.CredentialRecordView, error) {
	defer c.observe(diplomaregistry.MethodVerifyDiploma, time.Now())

	opts, cancel := c.callOpts(ctx)
	defer cancel()

	out, err := c.contract.VerifyDiploma(opts, fp, issuerName)
	if err != nil {
		return interfaces.CredentialRecordView{}, c.callError(diplomaregistry.MethodVerifyDiploma, err)
	}

	if !out.Exists {
		return interfaces.CredentialRecordView{}, nil
	}

	return interfaces.CredentialRecordView{
		Exists:      true,
		Revoked:     out.Revoked,
		Issuer:      out.Issuer,
		IssuedAt:    interfaces.UnixToTime(out.IssuedAt),
		DegreeType:  interfaces.DegreeType(out.DegreeType),
		LedgerValid: out.IsValid,
	}, nil
}

// QueryRole reports whether identity holds role.
func (c *RegistryClient) QueryRole(ctx context.Context, role interfaces.Role, identity interfaces.Identity) (bool, error) {
	defer c.observe(diplomaregistry.MethodHasRole, time.Now())

	opts, cancel := c.callOpts(ctx)
	defer cancel()

	var roleID [32]byte
	switch role {
	case interfaces.RoleAdministrator:
		id, err := c.contract.ADMINROLE(opts)
		if err != nil {
			return false, c.callError(diplomaregistry.MethodAdminRole, err)
		}
		roleID = id
	default:
		return false, fmt.Errorf("%w: unknown role %d", interfaces.ErrInput, role)
	}

	has, err := c.contract.HasRole(opts, roleID, identity)
	if err != nil {
		return false, c.callError(diplomaregistry.MethodHasRole, err)
	}
	return has, nil
}

// AuthorizeIssuer asks the ledger to map name to address and mark it
// authorized. Only administrators succeed; see Administration for the
// client-side check.
func (c *RegistryClient) AuthorizeIssuer(ctx context.Context, name string, address interfaces.Identity) (*PendingTransaction, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: issuer name is required", interfaces.ErrInput)
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("%w: issuer address is required", interfaces.ErrInput)
	}

	data, err := diplomaregistry.PackAuthorizeUniversity(name, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInput, err)
	}

	return c.submit(ctx, diplomaregistry.MethodAuthorizeUniversity, data)
}

// PublishRecord asks the ledger to create the record (fp, issuerName). An
// empty degreeType publishes the unspecified degree type.
func (c *RegistryClient) PublishRecord(ctx context.Context, fp interfaces.Fingerprint, issuerName string, degreeType string) (*PendingTransaction, error) {
	if strings.TrimSpace(issuerName) == "" {
		return nil, fmt.Errorf("%w: issuer name is required", interfaces.ErrInput)
	}

	dt, err := interfaces.NewDegreeType(degreeType)
	if err != nil {
		return nil, err
	}

	data, err := diplomaregistry.PackIssueDiploma(fp, issuerName, dt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInput, err)
	}

	return c.submit(ctx, diplomaregistry.MethodIssueDiploma, data)
}

// submit hands call data to the agent. A refused or failed hand-off yields a
// tracker that is already failed.
func (c *RegistryClient) submit(ctx context.Context, method string, data []byte) (*PendingTransaction, error) {
	if c.agent == nil {
		return nil, fmt.Errorf("%w: no signing agent configured", interfaces.ErrInput)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	log := c.opts.Log.With("method", method, "network", c.deployment.NetworkKey)

	from, err := ConnectedAccount(ctx, c.agent)
	if err != nil {
		log.Warn("signing agent refused to expose an account", "err", err)
		return c.failedHandoff(method, err), nil
	}

	hash, err := c.agent.SendTransaction(ctx, interfaces.CallRequest{
		From: from,
		To:   c.deployment.RegistryAddress,
		Data: data,
	})
	if err != nil {
		log.Warn("transaction hand-off failed", "from", from, "err", err)
		return c.failedHandoff(method, err), nil
	}

	log.Info("transaction submitted", "from", from, "tx", hash)
	return newPendingTransaction(method, hash, c.receipts, c.opts.PollInterval, c.onResolve), nil
}

func (c *RegistryClient) failedHandoff(method string, err error) *PendingTransaction {
	kind := FailureBroadcast
	if errors.Is(err, interfaces.ErrSignerRejected) {
		kind = FailureSignerRejected
	}
	tx := newFailedTransaction(method, &Failure{Kind: kind, Cause: err})
	c.onResolve(tx)
	return tx
}

func (c *RegistryClient) onResolve(tx *PendingTransaction) {
	outcome := "confirmed"
	if tx.State() == TxFailed {
		outcome = "failed"
	}
	c.opts.Metrics.IncrementTransaction(tx.Method(), outcome)
}

// ConnectedAccount returns the account the agent currently signs for.
func ConnectedAccount(ctx context.Context, agent interfaces.SigningAgent) (interfaces.Identity, error) {
	accounts, err := agent.RequestAccounts(ctx)
	if err != nil {
		return interfaces.Identity{}, err
	}
	if len(accounts) == 0 {
		return interfaces.Identity{}, fmt.Errorf("%w: no connected account", interfaces.ErrSignerRejected)
	}
	return accounts[0], nil
}

// Backend is what a registry client needs from a chain connection.
type Backend interface {
	bind.ContractCaller
	interfaces.ReceiptSource
}

// BackendDialer connects to the RPC endpoint of a deployment.
type BackendDialer func(ctx context.Context, rpcEndpoint string) (Backend, error)

// DialEthclient is the production BackendDialer.
func DialEthclient(ctx context.Context, rpcEndpoint string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", interfaces.ErrTransport, rpcEndpoint, err)
	}
	return client, nil
}

// RegistryFactory creates RegistryClient instances for deployments.
type RegistryFactory struct {
	dial  BackendDialer
	agent interfaces.SigningAgent
	opts  Options
}

// NewRegistryFactory creates a factory. A nil dial uses DialEthclient.
func NewRegistryFactory(dial BackendDialer, agent interfaces.SigningAgent, opts Options) *RegistryFactory {
	if dial == nil {
		dial = DialEthclient
	}
	return &RegistryFactory{dial: dial, agent: agent, opts: opts}
}

// RegistryFor connects to the deployment's endpoint and binds a client to it.
func (f *RegistryFactory) RegistryFor(ctx context.Context, deployment interfaces.NetworkDeployment) (*RegistryClient, error) {
	if err := deployment.Validate(); err != nil {
		return nil, err
	}

	backend, err := f.dial(ctx, deployment.RPCEndpoint)
	if err != nil {
		return nil, err
	}

	return NewRegistryClient(deployment, backend, f.agent, backend, f.opts)
}
