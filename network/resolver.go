// Package network picks the registry deployment that matches the signing
// agent's chain and moves the agent onto a requested chain.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/diplomachain/interfaces"
)

const DefaultCallTimeout = 10 * time.Second

// OverrideSource persists per-network registry addresses.
// storage.AddressBook implements it.
type OverrideSource interface {
	// RegistryAddress returns the stored override, if any.
	RegistryAddress(ctx context.Context, networkKey string) (common.Address, bool, error)

	SetRegistryAddress(ctx context.Context, networkKey string, address common.Address) error
}

// Source tells how a Resolution was reached.
type Source int

const (
	// SourceMatched: the agent's chain matched a known deployment.
	SourceMatched Source = iota
	// SourceDefaultNoMatch: the agent is on a chain with no known deployment.
	SourceDefaultNoMatch
	// SourceDefaultUnreachable: the agent did not answer.
	SourceDefaultUnreachable
)

func (s Source) String() string {
	switch s {
	case SourceMatched:
		return "matched"
	case SourceDefaultNoMatch:
		return "default (no match)"
	case SourceDefaultUnreachable:
		return "default (agent unreachable)"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

type Resolution struct {
	Deployment interfaces.NetworkDeployment
	Source     Source

	// AgentChainID is the chain the agent reported, zero when unreachable.
	AgentChainID uint64

	// Err is why the agent could not be asked, for SourceDefaultUnreachable.
	Err error
}

// FellBack reports whether the default deployment was used.
func (r Resolution) FellBack() bool {
	return r.Source != SourceMatched
}

type Config struct {
	// Deployments defaults to DefaultDeployments().
	Deployments []interfaces.NetworkDeployment

	// DefaultKey defaults to DefaultNetworkKey.
	DefaultKey string

	// CallTimeout bounds every agent and override call. Defaults to DefaultCallTimeout.
	CallTimeout time.Duration

	// Overrides may be nil, in which case overrides live only in memory.
	Overrides OverrideSource

	Log *slog.Logger
}

type Resolver struct {
	agent interfaces.SigningAgent
	cfg   Config

	mu          sync.RWMutex
	deployments map[string]interfaces.NetworkDeployment
	order       []string
}

func NewResolver(agent interfaces.SigningAgent, cfg Config) (*Resolver, error) {
	if cfg.Deployments == nil {
		cfg.Deployments = DefaultDeployments()
	}
	if cfg.DefaultKey == "" {
		cfg.DefaultKey = DefaultNetworkKey
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	r := &Resolver{
		agent:       agent,
		cfg:         cfg,
		deployments: make(map[string]interfaces.NetworkDeployment, len(cfg.Deployments)),
	}
	for _, d := range cfg.Deployments {
		if d.NetworkKey == "" {
			return nil, fmt.Errorf("%w: deployment without network key", interfaces.ErrInput)
		}
		if _, dup := r.deployments[d.NetworkKey]; dup {
			return nil, fmt.Errorf("%w: duplicate network key %q", interfaces.ErrInput, d.NetworkKey)
		}
		r.deployments[d.NetworkKey] = d
		r.order = append(r.order, d.NetworkKey)
	}
	if _, ok := r.deployments[cfg.DefaultKey]; !ok {
		return nil, fmt.Errorf("%w: default network %q is not a known deployment", interfaces.ErrInput, cfg.DefaultKey)
	}
	return r, nil
}

// Load applies persisted overrides to the deployment table. Networks without
// an override keep their compiled-in address.
func (r *Resolver) Load(ctx context.Context) error {
	if r.cfg.Overrides == nil {
		return nil
	}

	for _, key := range r.keys() {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		address, ok, err := r.cfg.Overrides.RegistryAddress(callCtx, key)
		cancel()
		if err != nil {
			return fmt.Errorf("loading override for %s: %w", key, err)
		}
		if !ok {
			continue
		}

		r.mu.Lock()
		d := r.deployments[key]
		d.RegistryAddress = address
		r.deployments[key] = d
		r.mu.Unlock()

		r.cfg.Log.Info("registry address override applied", "network", key, "address", address)
	}
	return nil
}

// SetRegistryAddress records an override for key, persisting it when an
// OverrideSource is configured.
func (r *Resolver) SetRegistryAddress(ctx context.Context, key string, address common.Address) error {
	if address == (common.Address{}) {
		return fmt.Errorf("%w: registry address is required", interfaces.ErrInput)
	}
	if _, ok := r.Deployment(key); !ok {
		return fmt.Errorf("%w: unknown network %q", interfaces.ErrInput, key)
	}

	if r.cfg.Overrides != nil {
		ctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
		if err := r.cfg.Overrides.SetRegistryAddress(ctx, key, address); err != nil {
			return fmt.Errorf("persisting override for %s: %w", key, err)
		}
	}

	r.mu.Lock()
	d := r.deployments[key]
	d.RegistryAddress = address
	r.deployments[key] = d
	r.mu.Unlock()

	r.cfg.Log.Info("registry address updated", "network", key, "address", address)
	return nil
}

func (r *Resolver) keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Resolver) Deployment(key string) (interfaces.NetworkDeployment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deployments[key]
	return d, ok
}

// Deployments returns all known deployments in configuration order.
func (r *Resolver) Deployments() []interfaces.NetworkDeployment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]interfaces.NetworkDeployment, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.deployments[key])
	}
	return out
}

func (r *Resolver) Default() interfaces.NetworkDeployment {
	d, _ := r.Deployment(r.cfg.DefaultKey)
	return d
}

func (r *Resolver) byChainID(chainID uint64) (interfaces.NetworkDeployment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.order {
		if d := r.deployments[key]; d.ChainID == chainID {
			return d, true
		}
	}
	return interfaces.NetworkDeployment{}, false
}

// ResolveCurrent returns the deployment for the agent's current chain. When
// the agent is unreachable or on an unknown chain the default deployment is
// returned, and Source says so.
func (r *Resolver) ResolveCurrent(ctx context.Context) (Resolution, error) {
	if r.agent == nil {
		return r.fallback(SourceDefaultUnreachable, 0, errors.New("no signing agent")), nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	id, err := r.agent.ChainID(ctx)
	if err != nil {
		return r.fallback(SourceDefaultUnreachable, 0, err), nil
	}

	if d, ok := r.byChainID(id.Uint64()); ok {
		return Resolution{Deployment: d, Source: SourceMatched, AgentChainID: id.Uint64()}, nil
	}
	return r.fallback(SourceDefaultNoMatch, id.Uint64(), nil), nil
}

func (r *Resolver) fallback(source Source, chainID uint64, cause error) Resolution {
	d := r.Default()
	r.cfg.Log.Warn("falling back to default network",
		"reason", source,
		"agentChainID", chainID,
		"network", d.NetworkKey,
		"err", cause,
	)
	return Resolution{Deployment: d, Source: source, AgentChainID: chainID, Err: cause}
}

// EnsureNetwork moves the agent onto the chain of key. A chain unknown to the
// agent is registered and the switch retried once; any other refusal is
// returned as ErrNetwork without retrying.
func (r *Resolver) EnsureNetwork(ctx context.Context, key string) error {
	target, ok := r.Deployment(key)
	if !ok {
		return fmt.Errorf("%w: unknown network %q", interfaces.ErrInput, key)
	}
	if r.agent == nil {
		return fmt.Errorf("%w: no signing agent", interfaces.ErrNetwork)
	}

	var onTarget bool
	err := r.call(ctx, func(ctx context.Context) error {
		id, err := r.agent.ChainID(ctx)
		if err != nil {
			return err
		}
		onTarget = id.Uint64() == target.ChainID
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: reading agent chain: %w", interfaces.ErrNetwork, err)
	}
	if onTarget {
		return nil
	}

	err = r.call(ctx, func(ctx context.Context) error { return r.agent.SwitchChain(ctx, target.ChainID) })
	if err == nil {
		r.cfg.Log.Info("switched network", "network", key, "chainID", target.ChainID)
		return nil
	}
	if !errors.Is(err, interfaces.ErrChainNotAdded) {
		return fmt.Errorf("%w: switch to %s refused: %w", interfaces.ErrNetwork, target.DisplayName, err)
	}

	r.cfg.Log.Info("agent does not know chain, adding it", "network", key, "chainID", target.ChainID)
	err = r.call(ctx, func(ctx context.Context) error {
		return r.agent.AddChain(ctx, interfaces.ChainParams{
			ChainID:       target.ChainID,
			DisplayName:   target.DisplayName,
			RPCEndpoint:   target.RPCEndpoint,
			BlockExplorer: target.BlockExplorer,
		})
	})
	if err != nil {
		return fmt.Errorf("%w: adding %s refused: %w", interfaces.ErrNetwork, target.DisplayName, err)
	}

	err = r.call(ctx, func(ctx context.Context) error { return r.agent.SwitchChain(ctx, target.ChainID) })
	if err != nil {
		return fmt.Errorf("%w: switch to %s after adding it refused: %w", interfaces.ErrNetwork, target.DisplayName, err)
	}

	r.cfg.Log.Info("switched network", "network", key, "chainID", target.ChainID)
	return nil
}

// call runs fn under the configured timeout.
func (r *Resolver) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return fn(ctx)
}
