package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/diplomachain/fingerprint"
	"github.com/ruteri/diplomachain/interfaces"
)

// DocumentKeyPrefix prefixes the storage keys of archived documents.
const DocumentKeyPrefix = "documents/"

// ErrDocumentMismatch is returned when archived content does not hash to the
// fingerprint it is stored under.
var ErrDocumentMismatch = errors.New("archived document does not match its fingerprint")

// Archive keeps copies of issued documents addressed by fingerprint, so a
// holder who lost the file can fetch it again and re-verify it.
type Archive struct {
	backend       interfaces.StorageBackend
	fingerprinter fingerprint.Fingerprinter
	log           *slog.Logger
}

// NewArchive creates an archive over backend. A nil fingerprinter selects
// fingerprint.Default.
func NewArchive(backend interfaces.StorageBackend, fp fingerprint.Fingerprinter, log *slog.Logger) *Archive {
	if fp == nil {
		fp = fingerprint.Default
	}
	if log == nil {
		log = slog.Default()
	}
	return &Archive{backend: backend, fingerprinter: fp, log: log}
}

// DocumentKey returns the storage key of the document with fingerprint fp.
func DocumentKey(fp interfaces.Fingerprint) string {
	return DocumentKeyPrefix + hex.EncodeToString(fp[:])
}

// Put stores document and returns its fingerprint.
func (a *Archive) Put(ctx context.Context, document []byte) (interfaces.Fingerprint, error) {
	fp := a.fingerprinter.Fingerprint(document)
	if err := a.backend.Store(ctx, DocumentKey(fp), document); err != nil {
		return fp, fmt.Errorf("archiving document %s: %w", fp, err)
	}

	a.log.Debug("Archived document",
		slog.String("fingerprint", fp.String()),
		slog.Int("size", len(document)),
		slog.String("backend", a.backend.Name()))
	return fp, nil
}

// Get returns the archived document with fingerprint fp. Content whose
// fingerprint does not match is rejected rather than returned.
func (a *Archive) Get(ctx context.Context, fp interfaces.Fingerprint) ([]byte, error) {
	document, err := a.backend.Fetch(ctx, DocumentKey(fp))
	if err != nil {
		return nil, err
	}

	if got := a.fingerprinter.Fingerprint(document); got != fp {
		a.log.Warn("Archived document does not match its fingerprint",
			slog.String("fingerprint", fp.String()),
			slog.String("actual", got.String()),
			slog.String("backend", a.backend.Name()))
		return nil, fmt.Errorf("%w: %s", ErrDocumentMismatch, fp)
	}
	return document, nil
}
