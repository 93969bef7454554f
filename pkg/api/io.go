package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	errs "github.com/matzehuels/crateapi/pkg/errors"
)

// =============================================================================
// Serialization API
// =============================================================================

// Marshal converts an Api to indented JSON bytes.
func Marshal(a *Api) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(a, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes an Api as indented JSON to w.
func Write(a *Api, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes an Api as JSON to path.
// The file is created with 0644 permissions.
func WriteFile(a *Api, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(a, f)
}

// Read decodes and validates a JSON Api from r.
// Malformed input and dangling ids are reported as [errs.ErrCodeApiParse].
func Read(r io.Reader) (*Api, error) {
	var a Api
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, errs.Wrap(errs.ErrCodeApiParse, err, "decode api")
	}
	if err := a.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeApiParse, err, "validate api")
	}
	if a.Features == nil {
		a.Features = make(map[string]AnyFeature)
	}
	return &a, nil
}

// ReadFile reads a JSON Api from path.
func ReadFile(path string) (*Api, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return Read(f)
}
