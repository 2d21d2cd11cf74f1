package replay

import (
	"path"
	"strconv"
	"strings"
)

// Target selects one of the files of a fixture set.
type Target int

const (
	// TargetPrimary is the JSON file holding the request and response.
	TargetPrimary Target = iota
	// TargetRequestBody is the sidecar holding the request body.
	TargetRequestBody
	// TargetResponseBody is the sidecar holding the response body.
	TargetResponseBody
)

const (
	primaryExt      = ".json"
	requestSidecar  = "-request"
	responseSidecar = "-response"
)

func (t Target) String() string {
	switch t {
	case TargetRequestBody:
		return "request-body"
	case TargetResponseBody:
		return "response-body"
	}
	return "primary"
}

// Namer derives fixture file names. All files of one fixture set share the
// stem "{host}{path}-{hash}", where the hash always comes from the request:
//
//	www.example.com/logo-1a2b3c4d.json
//	www.example.com/logo-1a2b3c4d-request.json
//	www.example.com/logo-1a2b3c4d-response.png
//
// Names are slash-separated and relative to a fixture directory.
type Namer struct {
	// Suffix maps content types to sidecar extensions. Nil means DataSuffix.
	Suffix SuffixFunc
}

func (n Namer) suffix(contentType string) string {
	if n.Suffix == nil {
		return DataSuffix(contentType)
	}
	return n.Suffix(contentType)
}

// Stem returns the shared prefix of every file name of id's fixture set.
// A positive order prefixes the last path element with "{order}-", which
// keeps successive recordings of one identity apart.
func Stem(id Identity, order int) string {
	stem := id.BaseName + "-" + id.Hash
	if order <= 0 {
		return stem
	}
	dir, file := path.Split(stem)
	return dir + strconv.Itoa(order) + "-" + file
}

// FileName returns the name of the target file of p's fixture set. It
// returns "" when p has no identity, and for sidecars whose content type has
// no extension, since such bodies are stored inline.
func (n Namer) FileName(p *Pairing, t Target) string {
	return n.OrderedFileName(p, t, 0)
}

// OrderedFileName is FileName with a repetition order applied to the stem.
func (n Namer) OrderedFileName(p *Pairing, t Target, order int) string {
	if p == nil || !p.Identity.Valid() {
		return ""
	}
	return n.name(Stem(p.Identity, order), t, message(p, t))
}

// SidecarName returns the sidecar for target next to the primary file name
// primary, or "" if the body of m is stored inline.
func (n Namer) SidecarName(primary string, t Target, m Message) string {
	return n.name(strings.TrimSuffix(primary, primaryExt), t, m)
}

func (n Namer) name(stem string, t Target, m Message) string {
	if t == TargetPrimary {
		return stem + primaryExt
	}
	if m == nil {
		return ""
	}
	ext := n.suffix(m.ContentType())
	if ext == "" {
		return ""
	}
	if t == TargetRequestBody {
		return stem + requestSidecar + "." + ext
	}
	return stem + responseSidecar + "." + ext
}

// Inline reports whether the body of m is stored inside the primary file.
func (n Namer) Inline(m Message) bool {
	return n.suffix(m.ContentType()) == ""
}

func message(p *Pairing, t Target) Message {
	switch t {
	case TargetRequestBody:
		if p.Request != nil {
			return p.Request
		}
	case TargetResponseBody:
		if p.Response != nil {
			return p.Response
		}
	}
	return nil
}

// isSidecar reports whether a file name follows the sidecar convention.
func isSidecar(name string) bool {
	stem := strings.TrimSuffix(name, path.Ext(name))
	return strings.HasSuffix(stem, requestSidecar) || strings.HasSuffix(stem, responseSidecar)
}
