package replay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/richshaffer/replay/logger"
)

// Source records where a resolved response came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceHandler Source = "handler"
	SourceLoad    Source = "fixture-load"
	SourceRecord  Source = "fixture-record"
	SourceNetwork Source = "network"
)

// Bundle holds registered handlers and reads and writes fixture sets. Fixtures
// are looked up in LoadDir first and RecordDir second; new fixtures are only
// ever written to RecordDir. Either directory may be empty.
type Bundle struct {
	LoadDir   string
	RecordDir string

	Identifier *Identifier
	Namer      Namer

	// LoadCounter and RecordCounter, when set, number successive loads and
	// recordings of the same URL. See Counter.
	LoadCounter   *Counter
	RecordCounter *Counter

	Logger  logger.Logger
	Metrics *Metrics

	mu       sync.RWMutex
	handlers []HandlerFunc
	cache    *lru.Cache[string, cachedFixture]
}

type cachedFixture struct {
	modTime time.Time
	size    int64
	pairing *Pairing
}

// NewBundle returns a Bundle reading from loadDir and recordDir and writing
// to recordDir.
func NewBundle(loadDir, recordDir string) *Bundle {
	return &Bundle{
		LoadDir:    loadDir,
		RecordDir:  recordDir,
		Identifier: &Identifier{},
		Logger:     logger.NewNop(),
	}
}

// EnableCache keeps up to size parsed fixtures in memory. Entries are
// revalidated against the primary file's size and modification time.
func (b *Bundle) EnableCache(size int) error {
	cache, err := lru.New[string, cachedFixture](size)
	if err != nil {
		return fmt.Errorf("create fixture cache: %w", err)
	}
	b.mu.Lock()
	b.cache = cache
	b.mu.Unlock()
	return nil
}

// EnableRepetition numbers successive loads and recordings of a URL.
func (b *Bundle) EnableRepetition() {
	b.LoadCounter = NewCounter()
	b.RecordCounter = NewCounter()
}

// Recording reports whether new fixtures can be written.
func (b *Bundle) Recording() bool {
	return b.RecordDir != ""
}

func (b *Bundle) log() logger.Logger {
	if b.Logger == nil {
		return logger.NewNop()
	}
	return b.Logger
}

func (b *Bundle) codec() *Codec {
	id := b.Identifier
	if id == nil {
		id = &Identifier{}
	}
	return &Codec{Namer: b.Namer, Identifier: id}
}

// Identify computes the identity of req with the bundle's Identifier.
func (b *Bundle) Identify(req *Request) Identity {
	return b.codec().Identifier.Identify(req)
}

// RegisterHandler adds h after the handlers already registered.
func (b *Bundle) RegisterHandler(h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// UnregisterAllHandlers removes every registered handler.
func (b *Bundle) UnregisterAllHandlers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = nil
}

// HasHandlers reports whether any handler is registered.
func (b *Bundle) HasHandlers() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers) > 0
}

// Handle asks each registered handler in registration order and returns the
// first non-nil response.
func (b *Bundle) Handle(req *Request) *Response {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		if res := h(req.Clone()); res != nil {
			return res
		}
	}
	return nil
}

// Load looks for a fixture matching req in LoadDir and then in RecordDir.
// Fixtures that exist but cannot be read are logged and skipped. It returns
// a nil pairing and SourceNone when nothing matches.
func (b *Bundle) Load(req *Request) (*Pairing, Source) {
	p := b.codec().Identifier.Pair(req, nil)
	if !p.Identity.Valid() {
		return nil, SourceNone
	}

	order := 0
	if b.LoadCounter != nil {
		order = b.LoadCounter.Next(req.URL)
	}

	for _, src := range []struct {
		dir    string
		source Source
	}{{b.LoadDir, SourceLoad}, {b.RecordDir, SourceRecord}} {
		if src.dir == "" {
			continue
		}
		if loaded := b.loadFrom(src.dir, p, order); loaded != nil {
			return loaded, src.source
		}
	}
	return nil, SourceNone
}

func (b *Bundle) loadFrom(dir string, p *Pairing, order int) *Pairing {
	names := []string{b.Namer.OrderedFileName(p, TargetPrimary, order)}
	if order > 0 {
		names = append(names, b.Namer.FileName(p, TargetPrimary))
	}
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			continue
		}
		loaded, err := b.LoadFile(dir, name)
		if err != nil {
			b.loadFailed(name, err)
			return nil
		}
		if loaded.Response == nil {
			b.loadFailed(name, &DecodeError{Path: name, Field: "response", Err: errors.New("missing")})
			return nil
		}
		return loaded
	}
	return nil
}

func (b *Bundle) loadFailed(name string, err error) {
	reason := "decode"
	var missing *MissingSidecarError
	if errors.As(err, &missing) {
		reason = "missing_sidecar"
	}
	b.Metrics.loadFailed(reason)
	b.log().Warn("Skipping unreadable fixture",
		logger.String("fixture", name),
		logger.String("reason", reason),
		logger.Error(err),
	)
}

// LoadFile loads the fixture set whose primary file is name, relative to
// dir.
func (b *Bundle) LoadFile(dir, name string) (*Pairing, error) {
	path := filepath.Join(dir, filepath.FromSlash(name))
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	cache := b.cache
	b.mu.RUnlock()
	if cache != nil {
		if c, ok := cache.Get(path); ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
			return c.pairing.Clone(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := b.codec().Unmarshal(name, data, func(sidecar string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(sidecar)))
	})
	if err != nil {
		return nil, err
	}

	if cache != nil {
		cache.Add(path, cachedFixture{modTime: info.ModTime(), size: info.Size(), pairing: p.Clone()})
	}
	return p, nil
}

// Record writes p to RecordDir. Sidecars are written before the primary file
// and every file is replaced atomically. Bodies that cannot be encoded are
// logged and left out.
func (b *Bundle) Record(p *Pairing) error {
	if !b.Recording() {
		return nil
	}
	order := 0
	if b.RecordCounter != nil && p.Request != nil {
		order = b.RecordCounter.Next(p.Request.URL)
	}
	enc, err := b.codec().Marshal(p, order)
	if err != nil {
		return err
	}
	for _, w := range enc.Warnings {
		b.log().Warn("Body left out of fixture", logger.String("url", p.Request.URL), logger.Error(w))
	}
	for _, f := range enc.Files {
		if err := writeFileAtomic(filepath.Join(b.RecordDir, filepath.FromSlash(f.Name)), f.Data); err != nil {
			return err
		}
	}
	b.log().Debug("Persisted fixture",
		logger.String("fixture", enc.Primary().Name),
		logger.String("dir", b.RecordDir),
	)
	return nil
}

// writeFileAtomic writes to a temporary file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir, filename := filepath.Split(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filename+".*")
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(f.Name(), 0o644)
	}
	if err == nil {
		err = os.Rename(f.Name(), path)
	}
	if err != nil {
		os.Remove(f.Name())
	}
	return err
}
