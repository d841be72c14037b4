package network

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/diplomachain/interfaces"
)

const (
	LocalhostKey = "localhost"
	SepoliaKey   = "sepolia"

	DefaultNetworkKey = LocalhostKey
)

// DefaultDeployments returns the compiled-in deployment table. Sepolia has no
// registry until one is deployed and recorded as an override.
func DefaultDeployments() []interfaces.NetworkDeployment {
	return []interfaces.NetworkDeployment{
		{
			NetworkKey:      LocalhostKey,
			DisplayName:     "Localhost",
			ChainID:         31337,
			RPCEndpoint:     "http://127.0.0.1:8545",
			BlockExplorer:   "http://localhost:8545",
			RegistryAddress: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		},
		{
			NetworkKey:    SepoliaKey,
			DisplayName:   "Sepolia",
			ChainID:       11155111,
			RPCEndpoint:   "https://rpc.sepolia.org",
			BlockExplorer: "https://sepolia.etherscan.io",
		},
	}
}

// ReadDeployments decodes a JSON array of deployments.
func ReadDeployments(r io.Reader) ([]interfaces.NetworkDeployment, error) {
	var deployments []interfaces.NetworkDeployment
	if err := json.NewDecoder(r).Decode(&deployments); err != nil {
		return nil, fmt.Errorf("%w: invalid deployments: %v", interfaces.ErrInput, err)
	}
	for i, d := range deployments {
		if d.NetworkKey == "" || d.ChainID == 0 {
			return nil, fmt.Errorf("%w: deployment %d needs network_key and chain_id", interfaces.ErrInput, i)
		}
	}
	return deployments, nil
}

// LoadDeploymentsFile reads a deployments file and merges it over the defaults.
func LoadDeploymentsFile(path string) ([]interfaces.NetworkDeployment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	extra, err := ReadDeployments(f)
	if err != nil {
		return nil, err
	}
	return MergeDeployments(DefaultDeployments(), extra), nil
}

// MergeDeployments returns base with entries of extra replacing those with the
// same key and new keys appended.
func MergeDeployments(base, extra []interfaces.NetworkDeployment) []interfaces.NetworkDeployment {
	merged := append([]interfaces.NetworkDeployment(nil), base...)
	index := make(map[string]int, len(merged))
	for i, d := range merged {
		index[d.NetworkKey] = i
	}
	for _, d := range extra {
		if i, ok := index[d.NetworkKey]; ok {
			merged[i] = d
			continue
		}
		index[d.NetworkKey] = len(merged)
		merged = append(merged, d)
	}
	return merged
}
