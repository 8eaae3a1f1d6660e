// Package distribute copies generated artifacts into the destination tree.
package distribute

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kitextech/ESPNanopb/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Copied describes one artifact written to the destination.
type Copied struct {
	Name        string
	Source      string
	Destination string
	Bytes       int64
	SHA256      string
}

// Distributor copies a fixed list of files between two directories.
type Distributor struct {
	fs        afero.Fs
	files     []string
	sourceDir string
	destDir   string
}

// New returns a Distributor over fs for the configured artifacts.
func New(fs afero.Fs, cfg config.Artifacts) *Distributor {
	return &Distributor{
		fs:        fs,
		files:     append([]string(nil), cfg.Files...),
		sourceDir: cfg.SourceDir,
		destDir:   cfg.Destination,
	}
}

// Files returns the artifact names in copy order.
func (d *Distributor) Files() []string {
	return append([]string(nil), d.files...)
}

// Copy writes name from the source directory into the destination
// directory, replacing any existing file. The destination directory must
// already exist.
func (d *Distributor) Copy(ctx context.Context, name string) (Copied, error) {
	if err := ctx.Err(); err != nil {
		return Copied{}, err
	}
	src := filepath.Join(d.sourceDir, name)
	dst := filepath.Join(d.destDir, name)

	info, err := d.fs.Stat(d.destDir)
	if err != nil {
		return Copied{}, fmt.Errorf("destination %s: %w", d.destDir, err)
	}
	if !info.IsDir() {
		return Copied{}, fmt.Errorf("destination %s: not a directory", d.destDir)
	}

	in, err := d.fs.Open(src)
	if err != nil {
		return Copied{}, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = in.Close() }()

	srcInfo, err := in.Stat()
	if err != nil {
		return Copied{}, fmt.Errorf("stat artifact %s: %w", src, err)
	}
	if srcInfo.IsDir() {
		return Copied{}, fmt.Errorf("artifact %s is a directory", src)
	}

	out, err := d.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return Copied{}, fmt.Errorf("create %s: %w", dst, err)
	}

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, hash), in)
	if err != nil {
		_ = out.Close()
		return Copied{}, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return Copied{}, fmt.Errorf("close %s: %w", dst, err)
	}

	copied := Copied{
		Name:        name,
		Source:      src,
		Destination: dst,
		Bytes:       n,
		SHA256:      hex.EncodeToString(hash.Sum(nil)),
	}
	log.Debug().Str("src", src).Str("dst", dst).Int64("bytes", n).Msg("artifact copied")
	return copied, nil
}
