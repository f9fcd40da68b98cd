package hasher

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"
	"time"
)

// probeChunkSize is the read buffer used while streaming file content
// into the digest. Memory use stays constant regardless of file size.
const probeChunkSize = 32 * 1024

// FileProbe is a point-in-time observation of one file.
type FileProbe struct {
	Hash    string
	Size    int64
	ModTime time.Time
}

// Prober computes content digests and size snapshots for paths.
type Prober struct {
	algorithm string
}

// NewProber creates a prober for the given hash algorithm selector.
// Unknown or empty selectors fall back to sha256.
func NewProber(algorithm string) *Prober {
	algo := strings.ToLower(algorithm)
	switch algo {
	case "sha1", "sha256", "sha512":
	default:
		algo = "sha256"
	}
	return &Prober{algorithm: algo}
}

// Algorithm returns the configured hash algorithm selector.
func (p *Prober) Algorithm() string {
	return p.algorithm
}

// Probe reads the file at path in bounded-size chunks and folds them
// into a streaming digest. A file that does not exist at the moment of
// probing yields ErrFileNotFound, which is a normal race outcome and
// not a failure. Any other read error is a ReadFailure.
func (p *Prober) Probe(path string) (FileProbe, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileProbe{}, ErrFileNotFound
		}
		return FileProbe{}, NewReadFailure(path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return FileProbe{}, NewReadFailure(path, err)
	}

	digest := p.newDigest()
	buf := make([]byte, probeChunkSize)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return FileProbe{}, NewReadFailure(path, readErr)
		}
	}

	return FileProbe{
		Hash:    hex.EncodeToString(digest.Sum(nil)),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (p *Prober) newDigest() hash.Hash {
	switch p.algorithm {
	case "sha1":
		return sha1.New()
	case "sha512":
		return sha512.New()
	default:
		return sha256.New()
	}
}
