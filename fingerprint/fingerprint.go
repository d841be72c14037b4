// Package fingerprint computes the document digests that records in the
// registry are keyed by.
//
// Two verifiers hashing the same file must always agree, so the digest is a
// plain Keccak-256 over the raw bytes with no normalization of any kind.
package fingerprint

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/diplomachain/interfaces"
	"golang.org/x/crypto/sha3"
)

// Fingerprinter maps a document to its registry key.
type Fingerprinter interface {
	// Fingerprint is pure and total, including on empty input.
	Fingerprint(document []byte) interfaces.Fingerprint

	// Cryptographic reports whether collisions are infeasible for adversarial input.
	Cryptographic() bool
}

// Keccak256 is the production fingerprinter.
type Keccak256 struct{}

// Fingerprint returns the Keccak-256 digest of document.
func (Keccak256) Fingerprint(document []byte) interfaces.Fingerprint {
	return interfaces.Fingerprint(crypto.Keccak256Hash(document))
}

// Cryptographic is always true for Keccak-256.
func (Keccak256) Cryptographic() bool {
	return true
}

// Default is the fingerprinter used unless another one is injected.
var Default Fingerprinter = Keccak256{}

// Of fingerprints document with the default fingerprinter.
func Of(document []byte) interfaces.Fingerprint {
	return Default.Fingerprint(document)
}

// FingerprintReader streams r through Keccak-256. The result equals
// Keccak256.Fingerprint of the same bytes.
func FingerprintReader(r io.Reader) (interfaces.Fingerprint, error) {
	hasher := sha3.NewLegacyKeccak256()
	if _, err := io.Copy(hasher, r); err != nil {
		return interfaces.Fingerprint{}, fmt.Errorf("could not read document: %w", err)
	}

	var fp interfaces.Fingerprint
	hasher.Sum(fp[:0])
	return fp, nil
}

// RequireCryptographic rejects fingerprinters that are only fit for tests.
func RequireCryptographic(f Fingerprinter) error {
	if f == nil {
		return fmt.Errorf("%w: no fingerprinter configured", interfaces.ErrInsecureFingerprinter)
	}
	if !f.Cryptographic() {
		return fmt.Errorf("%w: %T", interfaces.ErrInsecureFingerprinter, f)
	}
	return nil
}
