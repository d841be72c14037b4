// Package main (cmd/verifier-server) serves the public verification API of the
// diploma registry.
//
// The server binds to one registry deployment at startup, chosen by --network
// or, when a wallet or key is configured without --network, by the chain the
// signer is on. Registry address overrides are read from the --overrides
// storage URIs before binding.
//
// Every verification reads the ledger live; nothing is cached. When --archive
// is given, documents stored there by `diplomachain publish --archive` can be
// downloaded by fingerprint.
//
// The server implements graceful shutdown on SIGINT/SIGTERM: it marks itself
// not ready, waits --drain-seconds and then stops the API and metrics servers.
//
// Example usage:
//
//	verifier-server --network=sepolia \
//	    --overrides=file:///var/lib/diplomachain \
//	    --archive=s3://diplomas/archive?region=eu-west-1 \
//	    --listen-addr=0.0.0.0:8080
package main
