package replay

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// hashLength is the number of hex digits of the digest used in file names.
const hashLength = 8

// defaultBaseName names fixtures for requests whose URL has no host.
const defaultBaseName = "request"

// StringSet implements a set of string values.
type StringSet map[string]struct{}

// NewStringSet returns a new set initialized with optional values.
func NewStringSet(args ...string) StringSet {
	ss := make(StringSet, len(args))
	ss.Add(args...)
	return ss
}

// Add adds the provided value(s) to the set.
func (ss StringSet) Add(args ...string) {
	for i := range args {
		ss[args[i]] = struct{}{}
	}
}

// Del removes the provided value(s) from the set.
func (ss StringSet) Del(args ...string) {
	for i := range args {
		delete(ss, args[i])
	}
}

// Has reports whether v is in the set.
func (ss StringSet) Has(v string) bool {
	_, ok := ss[v]
	return ok
}

// Normalizer derives the request used to compute an identity. It receives a
// copy and may modify it freely; the request that is sent and stored is never
// affected.
type Normalizer func(*Request) *Request

// ChainNormalizers applies each normalizer in turn.
func ChainNormalizers(ns ...Normalizer) Normalizer {
	return func(req *Request) *Request {
		for _, n := range ns {
			if n != nil && req != nil {
				req = n(req)
			}
		}
		return req
	}
}

// OmitQuery removes the named query parameters, typically cache busters or
// timestamps that change on every run.
func OmitQuery(names StringSet) Normalizer {
	return editURL(func(u *url.URL) {
		if u.RawQuery == "" || len(names) == 0 {
			return
		}
		kept := make([]string, 0)
		for _, item := range strings.Split(u.RawQuery, "&") {
			if names.Has(queryItemName(item)) {
				continue
			}
			kept = append(kept, item)
		}
		u.RawQuery = strings.Join(kept, "&")
		u.ForceQuery = false
	})
}

// DropQuery removes the whole query string.
func DropQuery(req *Request) *Request {
	return editURL(func(u *url.URL) {
		u.RawQuery = ""
		u.ForceQuery = false
	})(req)
}

// DropFragment removes the URL fragment.
func DropFragment(req *Request) *Request {
	return editURL(func(u *url.URL) {
		u.Fragment = ""
		u.RawFragment = ""
	})(req)
}

// DropBody keeps the request body out of the identity.
func DropBody(req *Request) *Request {
	req.Body = nil
	return req
}

func editURL(edit func(*url.URL)) Normalizer {
	return func(req *Request) *Request {
		u, err := url.Parse(req.URL)
		if err != nil {
			return req
		}
		edit(u)
		req.URL = u.String()
		return req
	}
}

func queryItemName(item string) string {
	name, _, _ := strings.Cut(item, "=")
	if unescaped, err := url.QueryUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// QueryPolicy controls how the query string contributes to an identity.
type QueryPolicy int

const (
	// QuerySorted orders query items by name so parameter order does not
	// change the identity. Items sharing a name keep their relative order.
	QuerySorted QueryPolicy = iota
	// QueryVerbatim uses the URL exactly as given.
	QueryVerbatim
)

// Identity is the content-derived name of a request.
type Identity struct {
	// Hash is the first eight hex digits of the MD5 digest of the normalized
	// URL, the body and, optionally, the method. It is empty when there was
	// nothing to hash.
	Hash string
	// BaseName is host+path of the normalized URL, or "request" when the URL
	// has no host.
	BaseName string
	// Normalized is the request the identity was computed from.
	Normalized *Request
}

// Valid reports whether the identity can be used to name fixture files.
func (id Identity) Valid() bool { return id.Hash != "" }

// Identifier computes identities. The zero value sorts query items, hashes
// the body and ignores the method.
type Identifier struct {
	// Normalize, if set, derives the request that identities are computed
	// from.
	Normalize Normalizer
	// Query selects how query strings are canonicalized.
	Query QueryPolicy
	// IncludeMethod adds the request method to the hash input, so a GET and a
	// POST to the same URL are filed separately.
	IncludeMethod bool
}

// Identify computes the identity of req. It is a pure function of req and
// the Identifier's settings.
func (id *Identifier) Identify(req *Request) Identity {
	normalized := req.Clone()
	if id != nil && id.Normalize != nil {
		if n := id.Normalize(normalized); n != nil {
			normalized = n
		}
	}

	canonical := normalized.URL
	if id == nil || id.Query == QuerySorted {
		canonical = sortQuery(canonical)
	}

	var data []byte
	data = append(data, canonical...)
	data = append(data, normalized.Body...)
	if id != nil && id.IncludeMethod {
		data = append(data, normalized.Method...)
	}

	return Identity{
		Hash:       hashBytes(data),
		BaseName:   baseName(normalized.URL),
		Normalized: normalized,
	}
}

// Hash returns the identity hash of req.
func (id *Identifier) Hash(req *Request) string {
	return id.Identify(req).Hash
}

// Pair builds a Pairing and computes its identity from req. The pairing takes
// ownership of req and res.
func (id *Identifier) Pair(req *Request, res *Response) *Pairing {
	return &Pairing{
		Request:  req,
		Response: res,
		Identity: id.Identify(req),
	}
}

func hashBytes(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])[:hashLength]
}

func sortQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}
	items := strings.Split(u.RawQuery, "&")
	sort.SliceStable(items, func(i, j int) bool {
		return queryItemName(items[i]) < queryItemName(items[j])
	})
	u.RawQuery = strings.Join(items, "&")
	return u.String()
}

func baseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return defaultBaseName
	}
	name := u.Hostname()
	if u.Path != "" {
		name += cleanPath(u.Path)
	}
	return name
}

// cleanPath escapes dot segments so a URL path can never name a file
// outside the fixture directory.
func cleanPath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		switch s {
		case ".":
			segments[i] = "%2E"
		case "..":
			segments[i] = "%2E%2E"
		}
	}
	return strings.Join(segments, "/")
}
