package assets

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// HashLen is the number of hex characters of the digest kept in filenames.
const HashLen = 8

// Artifact is a built output file.
type Artifact struct {
	Name   string
	Target Target // empty for styles
	Hash   string
	Ext    string
	Path   string
}

// File is the artifact's filename inside the output directory.
func (a Artifact) File() string { return filepath.Base(a.Path) }

func (a Artifact) IsZero() bool { return a.Path == "" }

// ContentHash identifies content by the first HashLen hex characters of its
// SHA-1 digest. Collision resistance only matters for accidental collisions.
func ContentHash(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])[:HashLen]
}

// Writer persists artifacts into Dir. The hash always covers the exact bytes
// written to disk.
type Writer struct {
	Dir string
}

// Write stores content as {name}-{hash}.{ext}. Identical content always maps
// to the same filename, so rewriting it is harmless.
func (w Writer) Write(name, ext string, content []byte) (Artifact, error) {
	hash := ContentHash(content)
	return w.write(fmt.Sprintf("%s-%s.%s", name, hash, ext), name, ext, hash, content)
}

// WriteFixed stores content as {name}.{ext}, for watch mode.
func (w Writer) WriteFixed(name, ext string, content []byte) (Artifact, error) {
	return w.write(name+"."+ext, name, ext, ContentHash(content), content)
}

func (w Writer) write(file, name, ext, hash string, content []byte) (Artifact, error) {
	path := filepath.Join(w.Dir, file)
	tmp, err := os.CreateTemp(w.Dir, "."+file+".*")
	if err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", file, err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("write %s: %w", file, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("write %s: %w", file, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("write %s: %w", file, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("write %s: %w", file, err)
	}
	return Artifact{Name: name, Hash: hash, Ext: ext, Path: path}, nil
}
