// Package storage provides key/value storage with pluggable backends for
// client-side state: registry address overrides and archived documents.
//
// Backends are selected by location URI:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
//   - file:///var/lib/diplomachain/
//   - s3://ACCESS:SECRET@bucket/prefix/?region=eu-west-1&endpoint=http://minio:9000
//   - ipfs://localhost:5001/diplomachain?timeout=30s
//   - vault://vault.example.com:8200/secret/diplomachain?token=...
//   - dns://1.1.1.1:53/example.org (read-only)
//
// Several locations combine into a MultiStorageBackend, which reads from the
// first backend holding a key and writes to every writable one.
//
// # Keys
//
// Keys are slash-separated relative paths. Empty segments, "." and ".." are
// rejected with interfaces.ErrInput.
//
//   - registry-address/<network> holds a hex registry address (AddressBook)
//   - documents/<fingerprint hex> holds an issued document (Archive)
//
// The DNS backend answers only registry-address keys, from TXT records of the
// form
//
//	<network>._diplomachain.<zone>. TXT "registry=0x..."
package storage
