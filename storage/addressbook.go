package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/diplomachain/interfaces"
)

// AddressKeyPrefix prefixes the storage keys of registry address overrides.
const AddressKeyPrefix = "registry-address/"

// AddressBook persists per-network registry address overrides in a storage
// backend. Values are stored as checksummed hex text.
type AddressBook struct {
	backend interfaces.StorageBackend
	log     *slog.Logger
}

func NewAddressBook(backend interfaces.StorageBackend, log *slog.Logger) *AddressBook {
	if log == nil {
		log = slog.Default()
	}
	return &AddressBook{backend: backend, log: log}
}

// AddressKey returns the storage key for the override of networkKey.
func AddressKey(networkKey string) string {
	return AddressKeyPrefix + networkKey
}

// RegistryAddress returns the stored override for networkKey. A missing
// override is reported with ok set to false and a nil error.
func (a *AddressBook) RegistryAddress(ctx context.Context, networkKey string) (common.Address, bool, error) {
	if networkKey == "" {
		return common.Address{}, false, fmt.Errorf("%w: network key is required", interfaces.ErrInput)
	}

	data, err := a.backend.Fetch(ctx, AddressKey(networkKey))
	if errors.Is(err, interfaces.ErrContentNotFound) {
		return common.Address{}, false, nil
	}
	if err != nil {
		return common.Address{}, false, fmt.Errorf("reading %s override from %s: %w", networkKey, a.backend.Name(), err)
	}

	address, err := interfaces.ParseIdentity(strings.TrimSpace(string(data)))
	if err != nil {
		return common.Address{}, false, fmt.Errorf("stored %s override: %w", networkKey, err)
	}
	return address, true, nil
}

// SetRegistryAddress stores address as the override for networkKey.
func (a *AddressBook) SetRegistryAddress(ctx context.Context, networkKey string, address common.Address) error {
	if networkKey == "" || strings.Contains(networkKey, "/") {
		return fmt.Errorf("%w: invalid network key %q", interfaces.ErrInput, networkKey)
	}
	if address == (common.Address{}) {
		return fmt.Errorf("%w: zero registry address", interfaces.ErrInput)
	}

	if err := a.backend.Store(ctx, AddressKey(networkKey), []byte(address.Hex())); err != nil {
		return fmt.Errorf("writing %s override to %s: %w", networkKey, a.backend.Name(), err)
	}

	a.log.Debug("Stored registry address override",
		slog.String("network", networkKey),
		slog.String("address", address.Hex()),
		slog.String("backend", a.backend.Name()))
	return nil
}
