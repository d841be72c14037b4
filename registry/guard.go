package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/diplomachain/interfaces"
)

// Guard answers role questions against the live registry. It only saves the
// caller a doomed transaction; the ledger enforces roles regardless.
type Guard struct {
	registry interfaces.RegistryReader
}

func NewGuard(registry interfaces.RegistryReader) *Guard {
	return &Guard{registry: registry}
}

// IsAdministrator reports whether identity holds the administrator role.
func (g *Guard) IsAdministrator(ctx context.Context, identity interfaces.Identity) (bool, error) {
	return g.registry.QueryRole(ctx, interfaces.RoleAdministrator, identity)
}

// RequireAdministrator returns ErrAuthorization unless identity is an administrator.
func (g *Guard) RequireAdministrator(ctx context.Context, identity interfaces.Identity) error {
	ok, err := g.IsAdministrator(ctx, identity)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an administrator", interfaces.ErrAuthorization, identity.Hex())
	}
	return nil
}

// Administration performs administrator-only registry changes on behalf of
// the account connected to the client's signing agent.
type Administration struct {
	client *RegistryClient
	guard  *Guard
	log    *slog.Logger
}

func NewAdministration(client *RegistryClient, log *slog.Logger) *Administration {
	if log == nil {
		log = slog.Default()
	}
	return &Administration{
		client: client,
		guard:  NewGuard(client),
		log:    log,
	}
}

// AuthorizeIssuer checks that the connected account is an administrator and
// then submits the authorization. Nothing is submitted when the check fails.
func (a *Administration) AuthorizeIssuer(ctx context.Context, name string, address interfaces.Identity) (*PendingTransaction, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: issuer name is required", interfaces.ErrInput)
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("%w: issuer address is required", interfaces.ErrInput)
	}

	agent := a.client.Agent()
	if agent == nil {
		return nil, fmt.Errorf("%w: no signing agent configured", interfaces.ErrInput)
	}

	caller, err := ConnectedAccount(ctx, agent)
	if errors.Is(err, interfaces.ErrSignerRejected) {
		return nil, fmt.Errorf("could not resolve connected account: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: could not resolve connected account: %w", interfaces.ErrTransport, err)
	}

	if err := a.guard.RequireAdministrator(ctx, caller); err != nil {
		a.log.Warn("refusing to authorize issuer", "caller", caller, "issuer", name, "err", err)
		return nil, err
	}

	return a.client.AuthorizeIssuer(ctx, name, address)
}
