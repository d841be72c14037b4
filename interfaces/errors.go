package interfaces

import "errors"

// Error classes. Every error returned by the client wraps exactly one of
// these so callers can tell "nothing happened" from "something failed".
var (
	// ErrInput is returned for malformed or missing fields, before anything is submitted.
	ErrInput = errors.New("invalid input")

	// ErrAuthorization is returned when the caller lacks a required role.
	ErrAuthorization = errors.New("not authorized")

	// ErrNetwork is returned for wrong or unknown chains and refused switches.
	ErrNetwork = errors.New("network error")

	// ErrTransport is returned when the signing agent or the ledger cannot be reached.
	ErrTransport = errors.New("transport error")

	// ErrLedgerRejection is returned when a submitted call reverted.
	ErrLedgerRejection = errors.New("ledger rejected transaction")
)

var (
	// ErrSignerRejected is returned when the signing agent (or its user) refuses a request.
	ErrSignerRejected = errors.New("signer rejected request")

	// ErrChainNotAdded is returned by a signing agent that does not know a chain.
	ErrChainNotAdded = errors.New("chain not added to signing agent")

	// ErrNotDeployed is returned when a deployment has no registry address.
	ErrNotDeployed = errors.New("registry not deployed on network")

	// ErrConfirmationTimeout is returned when the caller stops waiting for a transaction.
	// The transaction may still confirm or fail afterwards.
	ErrConfirmationTimeout = errors.New("stopped waiting for confirmation")

	// ErrInsecureFingerprinter is returned when a non-cryptographic fingerprinter
	// is used outside of tests.
	ErrInsecureFingerprinter = errors.New("fingerprinter is not cryptographic")
)
