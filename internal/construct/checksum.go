package construct

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Checksums holds the digests published alongside an installer
type Checksums struct {
	SHA256 string
	BLAKE3 string
}

// ChecksumFile computes the installer digests in a single pass
func ChecksumFile(path string) (*Checksums, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sha := sha256.New()
	b3 := blake3.New()

	if _, err := io.Copy(io.MultiWriter(sha, b3), f); err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}

	return &Checksums{
		SHA256: fmt.Sprintf("%x", sha.Sum(nil)),
		BLAKE3: fmt.Sprintf("%x", b3.Sum(nil)),
	}, nil
}

// WriteChecksumFile writes the sha256sum-compatible sidecar file next
// to the installer and returns its path
func WriteChecksumFile(installerPath string, sums *Checksums) (string, error) {
	sidecar := installerPath + ".sha256"
	line := fmt.Sprintf("%s  %s\n", sums.SHA256, filepath.Base(installerPath))
	if err := os.WriteFile(sidecar, []byte(line), 0o644); err != nil {
		return "", fmt.Errorf("write checksum file: %w", err)
	}
	return sidecar, nil
}
