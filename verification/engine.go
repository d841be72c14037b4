// Package verification decides whether a document is a valid credential of
// a named issuer, from what the registry holds at the time of the call.
package verification

import (
	"context"
	"log/slog"

	"github.com/ruteri/diplomachain/fingerprint"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/metrics"
)

// Engine derives verdicts. It keeps no state between calls and is safe for
// concurrent use.
type Engine struct {
	registry      interfaces.RegistryReader
	fingerprinter fingerprint.Fingerprinter
	allowInsecure bool
	log           *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Engine)

func WithFingerprinter(f fingerprint.Fingerprinter) Option {
	return func(e *Engine) { e.fingerprinter = f }
}

// AllowInsecureFingerprinter accepts a non-cryptographic fingerprinter.
// Only tests should use it.
func AllowInsecureFingerprinter() Option {
	return func(e *Engine) { e.allowInsecure = true }
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(registry interfaces.RegistryReader, opts ...Option) (*Engine, error) {
	e := &Engine{
		registry:      registry,
		fingerprinter: fingerprint.Default,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.allowInsecure {
		if err := fingerprint.RequireCryptographic(e.fingerprinter); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Verify fingerprints document and checks it against expectedIssuerName.
// Empty documents are looked up like any other.
func (e *Engine) Verify(ctx context.Context, document []byte, expectedIssuerName string) (interfaces.Verdict, error) {
	return e.VerifyFingerprint(ctx, e.fingerprinter.Fingerprint(document), expectedIssuerName)
}

// VerifyFingerprint checks an already computed fingerprint. The first
// matching rule decides the reason:
//
//  1. no record: NOT_FOUND
//  2. record revoked: REVOKED
//  3. issuer not authorized now: ISSUER_NOT_AUTHORIZED
//  4. otherwise OK
//
// Only transport and network failures are returned as errors; every
// negative outcome is a verdict.
func (e *Engine) VerifyFingerprint(ctx context.Context, fp interfaces.Fingerprint, expectedIssuerName string) (interfaces.Verdict, error) {
	view, err := e.registry.QueryRecord(ctx, fp, expectedIssuerName)
	if err != nil {
		return interfaces.Verdict{}, err
	}

	verdict := interfaces.Verdict{
		Exists:      view.Exists,
		Revoked:     view.Revoked,
		Issuer:      view.Issuer,
		IssuedAt:    view.IssuedAt,
		DegreeType:  view.DegreeType.String(),
		IssuerName:  expectedIssuerName,
		Fingerprint: fp,
	}

	switch {
	case !view.Exists:
		verdict.Reason = interfaces.ReasonNotFound
	case view.Revoked:
		verdict.Reason = interfaces.ReasonRevoked
	default:
		authorized, err := e.registry.QueryIssuerAuthorization(ctx, expectedIssuerName)
		if err != nil {
			return interfaces.Verdict{}, err
		}
		if authorized {
			verdict.Valid = true
			verdict.Reason = interfaces.ReasonOK
		} else {
			verdict.Reason = interfaces.ReasonIssuerNotAuthorized
		}
	}

	e.metrics.IncrementVerification(verdict.Reason.String())
	e.log.Debug("verified document",
		"fingerprint", fp,
		"issuer", expectedIssuerName,
		"valid", verdict.Valid,
		"reason", verdict.Reason,
	)
	return verdict, nil
}
