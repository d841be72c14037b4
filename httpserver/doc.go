/*
Package httpserver serves the public verifier API for one registry deployment.

Anyone holding a document can ask the server whether it is a valid credential
of a named issuer. The server never signs anything; it only reads the ledger
through a registry.RegistryClient and answers with an interfaces.Verdict.

# Endpoints

  - POST /api/public/verify/{issuer}: body is the document
  - GET /api/public/verify/{issuer}/{fingerprint}: hex Keccak-256 fingerprint
  - GET /api/public/issuers/{issuer}: live authorization of an issuer
  - GET /api/public/documents/{fingerprint}: archived document, if an archive is configured
  - GET /api/public/network: the deployment being served

Negative outcomes (NOT_FOUND, REVOKED, ISSUER_NOT_AUTHORIZED) are verdicts and
come back with status 200. Malformed input answers 400, an unreachable ledger
502.

# Operations

  - /livez and /readyz for probes
  - /drain and /undrain toggle readiness ahead of a rollout
  - /debug/pprof when EnablePprof is set
  - /metrics on a separate listener when MetricsAddr is set

Every API route goes through httplogger.LoggingMiddlewareSlog.
*/
package httpserver
