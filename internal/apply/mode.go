package apply

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Transfer moves one file's content from a scanned source location into a
// version directory.
type Transfer interface {
	// Name is the mode name used in configuration.
	Name() string

	// Transfer places src's content at dst. dst's parent directory exists.
	Transfer(src, dst string) error
}

// Registry maps file-transfer mode names to implementations.
type Registry struct {
	modes map[string]Transfer
}

// NewRegistry creates an empty transfer-mode registry.
func NewRegistry() *Registry {
	return &Registry{modes: make(map[string]Transfer)}
}

// Register adds a transfer mode under its name.
func (r *Registry) Register(t Transfer) {
	r.modes[t.Name()] = t
}

// Get returns the transfer mode for the given name.
func (r *Registry) Get(name string) (Transfer, error) {
	t, ok := r.modes[name]
	if !ok {
		return nil, fmt.Errorf("unknown file-transfer mode '%s' — supported modes: %s", name, r.supported())
	}
	return t, nil
}

func (r *Registry) supported() string {
	names := make([]string, 0, len(r.modes))
	for n := range r.modes {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// DefaultRegistry returns a registry with the built-in modes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(LinkTransfer{})
	r.Register(CopyTransfer{})
	r.Register(MoveTransfer{})
	return r
}

// LinkTransfer hard-links the source into the version directory. The
// default mode: no bytes are duplicated and the source stays in place.
type LinkTransfer struct{}

func (LinkTransfer) Name() string { return "link" }

func (LinkTransfer) Transfer(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		return fmt.Errorf("hard-linking %s: %w", src, err)
	}
	return nil
}

// CopyTransfer copies the source bytes into the version directory.
type CopyTransfer struct{}

func (CopyTransfer) Name() string { return "copy" }

func (CopyTransfer) Transfer(src, dst string) error {
	return copyFile(src, dst)
}

// MoveTransfer moves the source into the version directory, removing it
// from the scan location. Falls back to copy+remove across filesystems.
type MoveTransfer struct{}

func (MoveTransfer) Name() string { return "move" }

func (MoveTransfer) Transfer(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing moved source %s: %w", src, err)
	}
	return nil
}

// copyFile streams src to dst via a temp file in dst's directory and an
// atomic rename, preserving the source's permission bits.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, ".drsprep-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}

	success = true
	return nil
}
