// Package api holds the types shared by the verifier HTTP server and its
// clients: route patterns, response bodies and server configuration.
//
// Routes:
//
//	POST /api/public/verify/{issuer}                body: document bytes
//	GET  /api/public/verify/{issuer}/{fingerprint}
//	GET  /api/public/issuers/{issuer}
//	GET  /api/public/documents/{fingerprint}
//	GET  /api/public/network
//
// Verdicts are encoded as interfaces.Verdict. Errors are plain text with 400
// for invalid input, 404 for missing documents, 502 when the ledger could not
// be reached and 500 otherwise.
package api
