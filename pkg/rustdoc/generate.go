package rustdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/crateapi/pkg/errors"
)

// rustdocFlags switches rustdoc to its unstable JSON backend and keeps
// #[doc(hidden)] items, since hidden items are still reachable by callers.
const rustdocFlags = "-Z unstable-options --document-hidden-items --output-format=json"

// GenerateOptions configures a documentation generator run.
type GenerateOptions struct {
	// ManifestPath is the Cargo.toml of the package to document. Required.
	ManifestPath string

	// CrateName is the library target name; '-' is mapped to '_' when
	// locating the output file. Required.
	CrateName string

	// Deps documents dependencies too. Off by default: it is slower and
	// more likely to trip rustdoc bugs.
	Deps bool

	// TargetDir overrides the cargo target directory. When empty it is
	// taken from `cargo metadata`.
	TargetDir string

	// Cargo is the cargo binary. Defaults to $CARGO, then "cargo".
	Cargo string
}

func (o *GenerateOptions) cargo() string {
	if o.Cargo != "" {
		return o.Cargo
	}
	if env := os.Getenv("CARGO"); env != "" {
		return env
	}
	return "cargo"
}

// Generate runs `cargo +nightly doc` with JSON output for the package and
// returns the path of the produced documentation file.
//
// Builds go to a separate crate-api subdirectory of the target directory so
// nightly artifacts never clobber those of the regular toolchain.
func Generate(ctx context.Context, opts GenerateOptions) (string, error) {
	if opts.ManifestPath == "" {
		return "", errs.New(errs.ErrCodeInvalidInput, "manifest path is required")
	}
	if opts.CrateName == "" {
		return "", errs.New(errs.ErrCodeApiParse, "package name is required")
	}

	targetDir := opts.TargetDir
	if targetDir == "" {
		var err error
		if targetDir, err = metadataTargetDir(ctx, opts.cargo(), opts.ManifestPath); err != nil {
			return "", err
		}
	}
	targetDir = filepath.Join(targetDir, "crate-api")

	args := []string{"+nightly", "doc", "--all-features", "--manifest-path", opts.ManifestPath}
	if !opts.Deps {
		args = append(args, "--no-deps")
	}
	cmd := exec.CommandContext(ctx, opts.cargo(), args...)
	cmd.Env = append(os.Environ(),
		"RUSTDOCFLAGS="+rustdocFlags,
		"CARGO_TARGET_DIR="+targetDir,
	)
	if _, err := runCommand(cmd); err != nil {
		return "", errs.Wrap(errs.ErrCodeGenerate, err, "cargo doc on %s", opts.ManifestPath)
	}

	return OutputPath(targetDir, opts.CrateName), nil
}

// GenerateBytes runs [Generate] and reads the produced file.
func GenerateBytes(ctx context.Context, opts GenerateOptions) ([]byte, error) {
	path, err := Generate(ctx, opts)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeApiParse, err, "load %s", path)
	}
	return data, nil
}

// OutputPath returns where rustdoc writes the JSON for crateName under a
// CARGO_TARGET_DIR of targetDir.
func OutputPath(targetDir, crateName string) string {
	return filepath.Join(targetDir, "doc", strings.ReplaceAll(crateName, "-", "_")+".json")
}

func metadataTargetDir(ctx context.Context, cargo, manifestPath string) (string, error) {
	cmd := exec.CommandContext(ctx, cargo, "metadata", "--no-deps", "--format-version", "1", "--manifest-path", manifestPath)
	out, err := runCommand(cmd)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeGenerate, err, "cargo metadata on %s", manifestPath)
	}
	var meta struct {
		TargetDirectory string `json:"target_directory"`
	}
	if err := json.Unmarshal(out, &meta); err != nil {
		return "", errs.Wrap(errs.ErrCodeGenerate, err, "decode cargo metadata")
	}
	if meta.TargetDirectory == "" {
		return "", errs.New(errs.ErrCodeGenerate, "cargo metadata reported no target directory")
	}
	return meta.TargetDirectory, nil
}

func runCommand(cmd *exec.Cmd) ([]byte, error) {
	var stdout bytes.Buffer
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
