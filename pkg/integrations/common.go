package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/crateapi/pkg/buildinfo"
)

const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// UserAgent identifies crateapi to registries, which require one.
func UserAgent() string {
	return "crateapi/" + buildinfo.Version + " (https://github.com/matzehuels/crateapi)"
}

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NormalizeCrateName converts a crate name to the form registries index it
// under. crates.io treats '-' and '_' as the same character and ignores case.
func NormalizeCrateName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

// PathEscape percent-encodes a string for use as one URL path segment.
func PathEscape(s string) string { return url.PathEscape(s) }
