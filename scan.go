package replay

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// ErrInvalidPrefix is returned for host prefixes that would leave RecordDir.
var ErrInvalidPrefix = errors.New("replay: invalid host prefix")

// Fixtures enumerates the fixtures recorded under hostPrefix, a directory
// relative to RecordDir such as "www.example.com" or "www.example.com/api".
// Sidecar files are skipped; each primary file is loaded with its sidecars.
// Unreadable fixtures are yielded as errors and enumeration continues. Every
// call re-reads the directory, and the order is that of the filesystem walk.
func (b *Bundle) Fixtures(hostPrefix string) iter.Seq2[*Pairing, error] {
	return func(yield func(*Pairing, error) bool) {
		if b.RecordDir == "" {
			return
		}
		prefix := filepath.FromSlash(strings.Trim(hostPrefix, "/"))
		if prefix == "" {
			prefix = "."
		}
		if !filepath.IsLocal(prefix) {
			yield(nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, hostPrefix))
			return
		}

		root := filepath.Join(b.RecordDir, prefix)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && path == root {
					return filepath.SkipAll
				}
				return err
			}
			if !d.Type().IsRegular() || filepath.Ext(path) != primaryExt || isSidecar(d.Name()) {
				return nil
			}
			rel, err := filepath.Rel(b.RecordDir, path)
			if err != nil {
				return err
			}
			p, err := b.LoadFile(b.RecordDir, filepath.ToSlash(rel))
			if !yield(p, err) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

// ListFixtures collects Fixtures(hostPrefix). Unreadable fixtures are logged
// and left out; only errors walking the directory are returned.
func (b *Bundle) ListFixtures(hostPrefix string) ([]*Pairing, error) {
	var out []*Pairing
	for p, err := range b.Fixtures(hostPrefix) {
		if err == nil {
			out = append(out, p)
			continue
		}
		var de *DecodeError
		var me *MissingSidecarError
		if errors.As(err, &de) || errors.As(err, &me) {
			b.loadFailed(hostPrefix, err)
			continue
		}
		return out, err
	}
	return out, nil
}
