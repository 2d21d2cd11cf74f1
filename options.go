package replay

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/richshaffer/replay/logger"
)

// Options is the YAML and environment form of a RoundTripper's settings.
type Options struct {
	// LoadDir holds read-only fixtures.
	LoadDir string `yaml:"load_dir" env:"REPLAY_LOAD_DIR"`
	// RecordDir receives new fixtures and is also read from.
	RecordDir string `yaml:"record_dir" env:"REPLAY_RECORD_DIR"`
	// Fallback lets misses reach the network.
	Fallback bool `yaml:"fallback" env:"REPLAY_FALLBACK"`
	// QueryPolicy is "sorted" (the default) or "verbatim".
	QueryPolicy string `yaml:"query_policy" env:"REPLAY_QUERY_POLICY"`
	// IncludeMethod adds the method to identity hashes.
	IncludeMethod bool `yaml:"include_method" env:"REPLAY_INCLUDE_METHOD"`
	// OmitQuery lists query parameters left out of identities.
	OmitQuery []string `yaml:"omit_query" env:"REPLAY_OMIT_QUERY"`
	// IgnoreBody leaves request bodies out of identities.
	IgnoreBody bool `yaml:"ignore_body" env:"REPLAY_IGNORE_BODY"`
	// InlineText stores text bodies in the primary file instead of sidecars.
	InlineText bool `yaml:"inline_text" env:"REPLAY_INLINE_TEXT"`
	// Repetition numbers successive recordings of one URL.
	Repetition bool `yaml:"repetition" env:"REPLAY_REPETITION"`
	// CacheSize, if positive, keeps that many parsed fixtures in memory.
	CacheSize int `yaml:"cache_size" env:"REPLAY_CACHE_SIZE"`
}

// Identifier returns the Identifier described by o.
func (o Options) Identifier() (*Identifier, error) {
	id := &Identifier{IncludeMethod: o.IncludeMethod}
	switch strings.ToLower(o.QueryPolicy) {
	case "", "sorted":
		id.Query = QuerySorted
	case "verbatim":
		id.Query = QueryVerbatim
	default:
		return nil, fmt.Errorf("replay: unknown query policy %q", o.QueryPolicy)
	}

	var normalizers []Normalizer
	if len(o.OmitQuery) > 0 {
		normalizers = append(normalizers, OmitQuery(NewStringSet(o.OmitQuery...)))
	}
	if o.IgnoreBody {
		normalizers = append(normalizers, DropBody)
	}
	if len(normalizers) > 0 {
		id.Normalize = ChainNormalizers(normalizers...)
	}
	return id, nil
}

// NewRoundTripper builds a RoundTripper from o. transport is used for
// fallback requests and may be nil; log and metrics may be nil as well.
func (o Options) NewRoundTripper(transport http.RoundTripper, log logger.Logger, metrics *Metrics) (*RoundTripper, error) {
	id, err := o.Identifier()
	if err != nil {
		return nil, err
	}

	bundle := NewBundle(o.LoadDir, o.RecordDir)
	bundle.Identifier = id
	bundle.Metrics = metrics
	if log != nil {
		bundle.Logger = log
	}
	if o.InlineText {
		bundle.Namer.Suffix = BasicDataSuffix
	}
	if o.Repetition {
		bundle.EnableRepetition()
	}
	if o.CacheSize > 0 {
		if err := bundle.EnableCache(o.CacheSize); err != nil {
			return nil, err
		}
	}

	return &RoundTripper{RoundTripper: transport, Bundle: bundle, Fallback: o.Fallback}, nil
}
