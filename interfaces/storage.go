package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrContentNotFound means the key holds nothing in the backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable means the backend could not be reached.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrReadOnlyBackend is returned by Store on backends that only serve reads.
	ErrReadOnlyBackend = errors.New("storage backend is read-only")

	// ErrInvalidLocationURI rejects a malformed or unsupported location of the
	// form scheme://[auth@]host[:port][/path][?params].
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend is a key/value store for client-side state such as registry
// address overrides and archived documents. Keys are slash-separated paths.
type StorageBackend interface {
	// Fetch returns the value under key, or ErrContentNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Store writes data under key, replacing any previous value.
	Store(ctx context.Context, key string, data []byte) error

	Available(ctx context.Context) bool

	// Name identifies the backend in logs.
	Name() string

	LocationURI() string
}

// StorageBackendLocation is a parsed storage URI.
type StorageBackendLocation struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  url.Values

	// Username and Password are the decoded userinfo part.
	Username string
	Password string
}

var storageSchemes = map[string]bool{
	"file":  true,
	"s3":    true,
	"ipfs":  true,
	"vault": true,
	"dns":   true,
}

// NewStorageBackendLocation parses uri and checks its scheme is supported.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !storageSchemes[scheme] {
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	loc := StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
	}
	if parsed.User != nil {
		loc.Username = parsed.User.Username()
		loc.Password, _ = parsed.User.Password()
	}
	return loc, nil
}

func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns the first value of query parameter name.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}
