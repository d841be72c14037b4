package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/diplomachain/api"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/ruteri/diplomachain/storage"
	"github.com/ruteri/diplomachain/verification"
)

// Handler serves the public verifier API for a single deployment.
type Handler struct {
	engine     *verification.Engine
	registry   interfaces.RegistryReader
	archive    *storage.Archive
	deployment interfaces.NetworkDeployment
	maxBody    int64
	log        *slog.Logger
}

// NewHandler creates a verifier API handler. archive may be nil, in which
// case document downloads answer 404.
func NewHandler(engine *verification.Engine, registry interfaces.RegistryReader, archive *storage.Archive, deployment interfaces.NetworkDeployment, log *slog.Logger) *Handler {
	return &Handler{
		engine:     engine,
		registry:   registry,
		archive:    archive,
		deployment: deployment,
		maxBody:    api.DefaultMaxDocumentSize,
		log:        log,
	}
}

// SetMaxDocumentSize overrides the upload limit.
func (h *Handler) SetMaxDocumentSize(n int64) {
	if n > 0 {
		h.maxBody = n
	}
}

// HandleVerifyDocument fingerprints the request body and checks it against
// the issuer in the URL.
//
// URL format: POST /api/public/verify/{issuer}
func (h *Handler) HandleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	issuer, ok := issuerParam(w, r)
	if !ok {
		return
	}

	document, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if int64(len(document)) > h.maxBody {
		http.Error(w, fmt.Sprintf("Document exceeds %d bytes", h.maxBody), http.StatusRequestEntityTooLarge)
		return
	}

	verdict, err := h.engine.Verify(r.Context(), document, issuer)
	if err != nil {
		h.writeError(w, "verify document", err)
		return
	}

	h.writeJSON(w, verdict)
}

// HandleVerifyFingerprint checks a hex fingerprint against the issuer.
//
// URL format: GET /api/public/verify/{issuer}/{fingerprint}
func (h *Handler) HandleVerifyFingerprint(w http.ResponseWriter, r *http.Request) {
	issuer, ok := issuerParam(w, r)
	if !ok {
		return
	}

	fp, ok := fingerprintParam(w, r)
	if !ok {
		return
	}

	verdict, err := h.engine.VerifyFingerprint(r.Context(), fp, issuer)
	if err != nil {
		h.writeError(w, "verify fingerprint", err)
		return
	}

	h.writeJSON(w, verdict)
}

// HandleIssuerStatus reports the live authorization of an issuer name.
//
// URL format: GET /api/public/issuers/{issuer}
func (h *Handler) HandleIssuerStatus(w http.ResponseWriter, r *http.Request) {
	issuer, ok := issuerParam(w, r)
	if !ok {
		return
	}

	authorized, err := h.registry.QueryIssuerAuthorization(r.Context(), issuer)
	if err != nil {
		h.writeError(w, "issuer status", err)
		return
	}

	h.writeJSON(w, api.IssuerStatusResponse{Name: issuer, Authorized: authorized})
}

// HandleDocument returns an archived document.
//
// URL format: GET /api/public/documents/{fingerprint}
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	fp, ok := fingerprintParam(w, r)
	if !ok {
		return
	}

	if h.archive == nil {
		http.Error(w, "No document archive configured", http.StatusNotFound)
		return
	}

	document, err := h.archive.Get(r.Context(), fp)
	if errors.Is(err, interfaces.ErrContentNotFound) {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("Failed to fetch archived document", "fingerprint", fp.String(), "err", err)
		http.Error(w, "Failed to fetch document", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(document)
}

// HandleNetwork describes the deployment this server verifies against.
//
// URL format: GET /api/public/network
func (h *Handler) HandleNetwork(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, api.NetworkResponse{NetworkDeployment: h.deployment})
}

// pathParam returns the decoded path parameter. chi hands out the raw
// segment whenever the request path carries escapes.
func pathParam(r *http.Request, name string) (string, error) {
	return url.PathUnescape(chi.URLParam(r, name))
}

func issuerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	issuer, err := pathParam(r, "issuer")
	if err != nil {
		http.Error(w, "Invalid issuer name in URL", http.StatusBadRequest)
		return "", false
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		http.Error(w, "Missing issuer name in URL", http.StatusBadRequest)
		return "", false
	}
	return issuer, true
}

func fingerprintParam(w http.ResponseWriter, r *http.Request) (interfaces.Fingerprint, bool) {
	raw, err := pathParam(r, "fingerprint")
	if err != nil {
		http.Error(w, "Invalid fingerprint format", http.StatusBadRequest)
		return interfaces.Fingerprint{}, false
	}
	fp, err := interfaces.ParseFingerprint(raw)
	if err != nil {
		http.Error(w, "Invalid fingerprint format", http.StatusBadRequest)
		return interfaces.Fingerprint{}, false
	}
	return fp, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, interfaces.ErrInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, interfaces.ErrTransport), errors.Is(err, interfaces.ErrNetwork):
		h.log.Warn("Registry unreachable", "op", op, "err", err)
		http.Error(w, "Registry unreachable", http.StatusBadGateway)
	default:
		h.log.Error("Request failed", "op", op, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
