// Package issuance publishes documents to the registry on behalf of an
// authorized issuer, optionally archiving the document bytes first.
package issuance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruteri/diplomachain/fingerprint"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/registry"
	"github.com/ruteri/diplomachain/storage"
)

// RecordPublisher is the write side of registry.RegistryClient used here.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, fp interfaces.Fingerprint, issuerName string, degreeType string) (*registry.PendingTransaction, error)
}

type Config struct {
	// Archive, when set, receives every document before it is published.
	Archive *storage.Archive

	// Fingerprinter defaults to fingerprint.Default.
	Fingerprinter fingerprint.Fingerprinter

	// AllowInsecureFingerprinter accepts a non-cryptographic fingerprinter.
	AllowInsecureFingerprinter bool

	Log *slog.Logger
}

type Issuer struct {
	publisher RecordPublisher
	cfg       Config
}

func NewIssuer(publisher RecordPublisher, cfg Config) (*Issuer, error) {
	if publisher == nil {
		return nil, fmt.Errorf("%w: no registry client", interfaces.ErrInput)
	}
	if cfg.Fingerprinter == nil {
		cfg.Fingerprinter = fingerprint.Default
	}
	if !cfg.AllowInsecureFingerprinter {
		if err := fingerprint.RequireCryptographic(cfg.Fingerprinter); err != nil {
			return nil, err
		}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Issuer{publisher: publisher, cfg: cfg}, nil
}

// Publication is the outcome of handing a document to the registry.
type Publication struct {
	Fingerprint interfaces.Fingerprint
	Archived    bool
	Tx          *registry.PendingTransaction
}

// Publish fingerprints document and submits the record (fingerprint,
// issuerName, degreeLabel). When an archive is configured the document is
// stored first, and an archive failure aborts before anything is submitted.
func (i *Issuer) Publish(ctx context.Context, document []byte, issuerName string, degreeLabel string) (Publication, error) {
	fp := i.cfg.Fingerprinter.Fingerprint(document)
	log := i.cfg.Log.With("fingerprint", fp.String(), "issuer", issuerName)

	pub := Publication{Fingerprint: fp}
	if i.cfg.Archive != nil {
		if _, err := i.cfg.Archive.Put(ctx, document); err != nil {
			return pub, err
		}
		pub.Archived = true
	}

	tx, err := i.publisher.PublishRecord(ctx, fp, issuerName, degreeLabel)
	if err != nil {
		return pub, err
	}
	pub.Tx = tx

	log.Info("record submitted", "tx", tx.Hash(), "state", tx.State(), "archived", pub.Archived)
	return pub, nil
}

// PublishAndWait publishes document and waits for the transaction to reach
// a terminal state. A failed transaction is returned as its *registry.Failure.
func (i *Issuer) PublishAndWait(ctx context.Context, document []byte, issuerName string, degreeLabel string) (Publication, registry.Receipt, error) {
	pub, err := i.Publish(ctx, document, issuerName, degreeLabel)
	if err != nil {
		return pub, registry.Receipt{}, err
	}

	receipt, err := pub.Tx.Wait(ctx)
	if err != nil {
		return pub, registry.Receipt{}, err
	}
	return pub, receipt, nil
}
