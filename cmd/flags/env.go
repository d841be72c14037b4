package flags

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/metrics"
	"github.com/ruteri/diplomachain/network"
	"github.com/ruteri/diplomachain/registry"
	"github.com/ruteri/diplomachain/signer"
	"github.com/ruteri/diplomachain/storage"
	"github.com/urfave/cli/v2"
)

// Env is the ledger-facing setup the commands share: a signing agent (if
// any), the network resolver with its overrides and a registry factory.
type Env struct {
	Log      *slog.Logger
	Agent    interfaces.SigningAgent
	Resolver *network.Resolver
	Factory  *registry.RegistryFactory
	Timeout  time.Duration

	// Overrides is the address book backing registry address overrides,
	// nil unless --overrides was given.
	Overrides *storage.AddressBook

	networkKey      string
	explicitNetwork bool
	rpcAddr         string
	closers         []func()
}

// NewEnv builds the environment from LedgerFlags. m may be nil.
func NewEnv(cCtx *cli.Context, log *slog.Logger, m *metrics.Metrics) (*Env, error) {
	env := &Env{
		Log:             log,
		Timeout:         cCtx.Duration(TimeoutFlag.Name),
		networkKey:      cCtx.String(NetworkFlag.Name),
		explicitNetwork: cCtx.IsSet(NetworkFlag.Name),
		rpcAddr:         cCtx.String(RpcAddrFlag.Name),
	}
	ready := false
	defer func() {
		if !ready {
			env.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(cCtx.Context, env.Timeout)
	defer cancel()

	var err error
	deployments := network.DefaultDeployments()
	if path := cCtx.String(NetworksFileFlag.Name); path != "" {
		deployments, err = network.LoadDeploymentsFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not load networks file: %w", err)
		}
	}

	var overrides network.OverrideSource
	if uris := cCtx.StringSlice(OverridesFlag.Name); len(uris) > 0 {
		backend, err := storage.NewStorageBackendFactory(log).BackendFromURIs(uris)
		if err != nil {
			return nil, fmt.Errorf("could not open overrides storage: %w", err)
		}
		env.Overrides = storage.NewAddressBook(backend, log)
		overrides = env.Overrides
	}

	switch {
	case cCtx.IsSet(WalletRpcFlag.Name):
		agent, err := signer.DialRPCAgent(ctx, cCtx.String(WalletRpcFlag.Name), log)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, agent.Close)
		env.Agent = agent
	case cCtx.IsSet(PrivateKeyFlag.Name):
		agent, err := env.keyedAgent(ctx, cCtx.String(PrivateKeyFlag.Name), deployments)
		if err != nil {
			return nil, err
		}
		env.Agent = agent
	}

	env.Resolver, err = network.NewResolver(env.Agent, network.Config{
		Deployments: deployments,
		DefaultKey:  env.networkKey,
		CallTimeout: env.Timeout,
		Overrides:   overrides,
		Log:         log,
	})
	if err != nil {
		return nil, err
	}
	if err := env.Resolver.Load(ctx); err != nil {
		return nil, fmt.Errorf("could not load registry address overrides: %w", err)
	}

	env.Factory = registry.NewRegistryFactory(nil, env.Agent, registry.Options{
		CallTimeout: env.Timeout,
		Log:         log,
		Metrics:     m,
	})
	ready = true
	return env, nil
}

// keyedAgent connects a local key to the selected network's endpoint.
func (e *Env) keyedAgent(ctx context.Context, hexkey string, deployments []interfaces.NetworkDeployment) (*signer.KeyedAgent, error) {
	agent, err := signer.NewKeyedAgentFromHex(hexkey, nil, e.Log)
	if err != nil {
		return nil, err
	}

	endpoint := e.rpcAddr
	if endpoint == "" {
		for _, d := range deployments {
			if d.NetworkKey == e.networkKey {
				endpoint = d.RPCEndpoint
			}
		}
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: no RPC endpoint for network %q", interfaces.ErrInput, e.networkKey)
	}

	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", interfaces.ErrTransport, endpoint, err)
	}
	e.closers = append(e.closers, client.Close)

	chainID, err := agent.Register(ctx, client)
	if err != nil {
		return nil, err
	}
	e.Log.Debug("Signing with local key", "address", agent.Address().Hex(), "chainID", chainID)
	return agent, nil
}

// Deployment picks the network to talk to: --network when given (or when
// there is no agent to ask), otherwise the agent's current chain.
func (e *Env) Deployment(ctx context.Context) (interfaces.NetworkDeployment, error) {
	var d interfaces.NetworkDeployment
	if e.explicitNetwork || e.Agent == nil {
		var ok bool
		d, ok = e.Resolver.Deployment(e.networkKey)
		if !ok {
			return d, fmt.Errorf("%w: unknown network %q", interfaces.ErrInput, e.networkKey)
		}
	} else {
		res, err := e.Resolver.ResolveCurrent(ctx)
		if err != nil {
			return d, err
		}
		d = res.Deployment
	}

	if e.rpcAddr != "" {
		d.RPCEndpoint = e.rpcAddr
	}
	return d, nil
}

// Client binds a registry client to the selected deployment.
func (e *Env) Client(ctx context.Context) (*registry.RegistryClient, error) {
	d, err := e.Deployment(ctx)
	if err != nil {
		return nil, err
	}
	return e.Factory.RegistryFor(ctx, d)
}

// SigningClient is Client for state-changing calls. It requires an agent and
// moves it onto --network first when one was named.
func (e *Env) SigningClient(ctx context.Context) (*registry.RegistryClient, error) {
	if e.Agent == nil {
		return nil, fmt.Errorf("%w: no signer configured, pass --%s or --%s", interfaces.ErrSignerRejected, WalletRpcFlag.Name, PrivateKeyFlag.Name)
	}
	if e.explicitNetwork {
		if err := e.Resolver.EnsureNetwork(ctx, e.networkKey); err != nil {
			return nil, err
		}
	}
	return e.Client(ctx)
}

func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}
