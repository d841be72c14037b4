package interfaces

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is the address of a party interacting with the registry.
// Addresses are compared as bytes, so hex case never matters.
type Identity = common.Address

// ParseIdentity parses a 20-byte hex address with or without 0x prefix.
// The zero address is rejected since the registry never assigns it.
func ParseIdentity(addr string) (Identity, error) {
	clean := strings.TrimSpace(addr)
	if !common.IsHexAddress(clean) {
		return Identity{}, fmt.Errorf("%w: malformed address %q", ErrInput, addr)
	}

	identity := common.HexToAddress(clean)
	if identity == (Identity{}) {
		return Identity{}, fmt.Errorf("%w: zero address", ErrInput)
	}
	return identity, nil
}

// Fingerprint is the 32-byte Keccak-256 digest of a document.
type Fingerprint [32]byte

// NewFingerprintFromBytes converts a raw 32-byte digest.
func NewFingerprintFromBytes(source []byte) (Fingerprint, error) {
	if len(source) != 32 {
		return Fingerprint{}, fmt.Errorf("%w: fingerprint must be 32 bytes, got %d", ErrInput, len(source))
	}

	var fp Fingerprint
	copy(fp[:], source)
	return fp, nil
}

// ParseFingerprint parses a 64-character hex digest with optional 0x prefix.
func ParseFingerprint(source string) (Fingerprint, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(source), "0x")
	if len(clean) != 64 {
		return Fingerprint{}, fmt.Errorf("%w: fingerprint hex must be 64 characters", ErrInput)
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: invalid fingerprint hex: %v", ErrInput, err)
	}
	return NewFingerprintFromBytes(raw)
}

// String returns the 0x-prefixed hex representation.
func (fp Fingerprint) String() string {
	return "0x" + hex.EncodeToString(fp[:])
}

// Bytes returns the raw digest.
func (fp Fingerprint) Bytes() []byte {
	return fp[:]
}

// MarshalText encodes the fingerprint as 0x-hex.
func (fp Fingerprint) MarshalText() ([]byte, error) {
	return []byte(fp.String()), nil
}

// UnmarshalText decodes a 0x-hex fingerprint.
func (fp *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := ParseFingerprint(string(text))
	if err != nil {
		return err
	}
	*fp = parsed
	return nil
}

// MaxDegreeTypeLength is the longest degree label that fits the registry's
// bytes32 field while keeping a terminating NUL.
const MaxDegreeTypeLength = 31

// DegreeType is the fixed-width degree label stored with a record.
// The zero value means "unspecified".
type DegreeType [32]byte

// NewDegreeType encodes a label into the fixed field. An empty label yields
// the zero value. Labels that do not fit are rejected, never truncated.
func NewDegreeType(label string) (DegreeType, error) {
	var dt DegreeType
	if label == "" {
		return dt, nil
	}
	if !utf8.ValidString(label) {
		return dt, fmt.Errorf("%w: degree type is not valid UTF-8", ErrInput)
	}
	if len(label) > MaxDegreeTypeLength {
		return dt, fmt.Errorf("%w: degree type is %d bytes, at most %d fit", ErrInput, len(label), MaxDegreeTypeLength)
	}
	if strings.IndexByte(label, 0) >= 0 {
		return dt, fmt.Errorf("%w: degree type contains a NUL byte", ErrInput)
	}

	copy(dt[:], label)
	return dt, nil
}

// Unspecified reports whether no degree type was recorded.
func (dt DegreeType) Unspecified() bool {
	return dt == DegreeType{}
}

// String decodes the label up to the first NUL byte.
func (dt DegreeType) String() string {
	if i := bytes.IndexByte(dt[:], 0); i >= 0 {
		return string(dt[:i])
	}
	return string(dt[:])
}

// Role is a capability granted per identity by the registry.
type Role int

const (
	// RoleAdministrator may authorize issuers.
	RoleAdministrator Role = iota + 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "administrator"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Issuer is an organization allowed to publish records under Name.
type Issuer struct {
	Name       string   `json:"name"`
	Address    Identity `json:"address"`
	Authorized bool     `json:"authorized"`
}

// CredentialRecordView is what the registry reports for a (fingerprint, issuer name) key.
// A missing record is a view with Exists=false, not an error.
type CredentialRecordView struct {
	Exists     bool
	Revoked    bool
	Issuer     Identity
	IssuedAt   time.Time
	DegreeType DegreeType

	// LedgerValid is the contract's own validity flag. Verdicts are derived
	// independently and do not rely on it.
	LedgerValid bool
}

// UnixToTime converts registry timestamps; zero stays the zero time.
func UnixToTime(seconds uint64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(int64(seconds), 0).UTC()
}

// NetworkDeployment describes one ledger deployment of the registry.
type NetworkDeployment struct {
	NetworkKey      string   `json:"network_key"`
	DisplayName     string   `json:"display_name"`
	ChainID         uint64   `json:"chain_id"`
	RPCEndpoint     string   `json:"rpc_endpoint"`
	BlockExplorer   string   `json:"block_explorer,omitempty"`
	RegistryAddress Identity `json:"registry_address"`
}

// Validate checks that a client can be built for the deployment.
func (d NetworkDeployment) Validate() error {
	if d.NetworkKey == "" {
		return fmt.Errorf("%w: deployment has no network key", ErrInput)
	}
	if d.ChainID == 0 {
		return fmt.Errorf("%w: deployment %s has no chain id", ErrInput, d.NetworkKey)
	}
	if d.RegistryAddress == (Identity{}) {
		return fmt.Errorf("%w: %w: %s (chain id %d)", ErrNetwork, ErrNotDeployed, d.DisplayName, d.ChainID)
	}
	return nil
}

// ReasonCode explains a verification verdict. The zero value is
// ReasonUnknown so an unset verdict never reads as OK.
type ReasonCode int

const (
	ReasonUnknown ReasonCode = iota
	ReasonOK
	ReasonNotFound
	ReasonRevoked
	ReasonIssuerNotAuthorized
)

var reasonNames = map[ReasonCode]string{
	ReasonUnknown:             "UNKNOWN",
	ReasonOK:                  "OK",
	ReasonNotFound:            "NOT_FOUND",
	ReasonRevoked:             "REVOKED",
	ReasonIssuerNotAuthorized: "ISSUER_NOT_AUTHORIZED",
}

// String returns the wire name of the reason.
func (r ReasonCode) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("REASON(%d)", int(r))
}

// MarshalText encodes the reason by name.
func (r ReasonCode) MarshalText() ([]byte, error) {
	name, ok := reasonNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown reason code %d", int(r))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a reason name.
func (r *ReasonCode) UnmarshalText(text []byte) error {
	for code, name := range reasonNames {
		if name == string(text) {
			*r = code
			return nil
		}
	}
	return errors.New("unknown reason code " + string(text))
}

// Verdict is the outcome of checking a document against the registry.
// Record fields are filled whenever the record exists, valid or not.
type Verdict struct {
	Valid       bool        `json:"valid"`
	Reason      ReasonCode  `json:"reason"`
	Exists      bool        `json:"exists"`
	Revoked     bool        `json:"revoked"`
	Issuer      Identity    `json:"issuer"`
	IssuedAt    time.Time   `json:"issued_at"`
	DegreeType  string      `json:"degree_type"`
	IssuerName  string      `json:"issuer_name"`
	Fingerprint Fingerprint `json:"fingerprint"`
}
