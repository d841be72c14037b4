// Package interfaces defines the core types and interfaces of the diploma
// registry client, separating definitions from their implementations.
//
// # Domain Types
//
//   - Identity: address of a party on the ledger (case-insensitive hex)
//   - Fingerprint: 32-byte Keccak-256 digest of a document
//   - DegreeType: fixed-width degree label stored with a record
//   - Role: closed enumeration of capabilities (administrator)
//   - CredentialRecordView: what the registry holds for a (fingerprint, issuer name) key
//   - NetworkDeployment: a chain plus the registry contract deployed on it
//   - Verdict and ReasonCode: result of a verification
//
// # Collaborator Interfaces
//
//   - RegistryReader: read side of the registry contract
//   - SigningAgent: wallet that signs and broadcasts on behalf of the client
//   - ReceiptSource: finality reports for submitted transactions
//   - StorageBackend: key/value persistence for overrides and archived documents
//
// # Errors
//
// All errors returned by the client wrap one of ErrInput, ErrAuthorization,
// ErrNetwork, ErrTransport or ErrLedgerRejection.
package interfaces
