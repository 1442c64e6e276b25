package checksum

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm selects the digest used for file content checksums.
type Algorithm string

const (
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"
	BLAKE3 Algorithm = "BLAKE3"
)

// DefaultAlgorithm is used when project rules do not name one.
const DefaultAlgorithm = SHA256

// blockSize is the read granularity. Memory use is bounded by this
// regardless of file size.
const blockSize = 64 * 1024

// ParseAlgorithm normalizes a user-supplied algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToUpper(strings.TrimSpace(s))) {
	case SHA256:
		return SHA256, nil
	case SHA512:
		return SHA512, nil
	case BLAKE3:
		return BLAKE3, nil
	case "":
		return DefaultAlgorithm, nil
	}
	return "", fmt.Errorf("unknown checksum algorithm '%s' — supported: SHA256, SHA512, BLAKE3", s)
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	}
	return nil, fmt.Errorf("unknown checksum algorithm '%s'", string(a))
}

// Sum computes the hex digest of the file at path, streaming in fixed-size
// blocks. The context is checked between blocks so a cancelled run or a hung
// filesystem surfaces as a per-file error rather than a stuck process.
func Sum(ctx context.Context, path string, algo Algorithm) (string, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, blockSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("checksum of %s interrupted: %w", path, err)
		}
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("reading %s: %w", path, readErr)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
