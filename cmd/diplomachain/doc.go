// Package main (cmd/diplomachain) is the command-line client of the diploma
// registry.
//
// Read commands need only a ledger endpoint:
//
//	fingerprint FILE                 print the document fingerprint
//	verify --issuer NAME FILE        verify a document (exit status 1 when invalid)
//	issuer-status NAME               is the issuer name authorized
//	is-admin [ADDRESS]               does the account hold the administrator role
//	network list | resolve           inspect deployments
//
// Commands that change ledger state need a signer, either a wallet reachable
// over JSON-RPC (--wallet-rpc) or a local key (--private-key):
//
//	authorize-issuer --name NAME --address ADDRESS [--wait]
//	publish --issuer NAME [--degree LABEL] [--archive URI] FILE [--wait]
//	network switch KEY
//
// `network set-address KEY ADDRESS` records a registry address override in the
// --overrides storage so later runs pick it up.
package main
