package replay

import (
	"net/http"
	"time"

	"github.com/richshaffer/replay/logger"
)

// RoundTripper resolves requests against registered handlers and fixtures.
// For each request it tries, in order, the Bundle's handlers, a fixture in
// LoadDir and a fixture in RecordDir. If none of them answers and Fallback is
// set, the request is sent with the wrapped http.RoundTripper and the
// response is recorded when the Bundle has a RecordDir. Handlers always win
// over fixtures, and LoadDir fixtures always win over RecordDir fixtures.
type RoundTripper struct {
	// RoundTripper sends requests that no handler or fixture answers. Nil
	// means http.DefaultTransport.
	http.RoundTripper
	// Bundle provides handlers and fixture storage.
	*Bundle
	// Fallback allows requests to reach the network. Without it a miss fails
	// with a *NotConnectedError.
	Fallback bool
}

// Resolution is the outcome of resolving one request.
type Resolution struct {
	Pairing  *Pairing
	Source   Source
	Response *http.Response
}

// NewRoundTripper returns a RoundTripper over bundle.
func NewRoundTripper(bundle *Bundle, fallback bool) *RoundTripper {
	return &RoundTripper{Bundle: bundle, Fallback: fallback}
}

// RoundTrip implements http.RoundTripper.
func (r *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := r.Resolve(req)
	if err != nil {
		return nil, err
	}
	return res.Response, nil
}

// Resolve finds the response for req and reports where it came from.
// Failures reading or writing fixtures are logged and never returned. The
// only errors are a *NotConnectedError on a miss without fallback, errors of
// the fallback transport, passed through unchanged, and an *Error when a
// request or response body cannot be read.
func (r *RoundTripper) Resolve(req *http.Request) (*Resolution, error) {
	buffered, err := NewRequest(req)
	if err != nil {
		return nil, &Error{Request: req, Err: err}
	}
	log := r.log().With(logger.String("method", buffered.Method), logger.String("url", buffered.URL))

	if res := r.Handle(buffered); res != nil {
		return r.resolved(req, r.codec().Identifier.Pair(buffered, res), SourceHandler), nil
	}

	if p, source := r.Load(buffered); p != nil {
		log.Debug("Loaded fixture", logger.String("source", string(source)))
		return r.resolved(req, p, source), nil
	}

	if !r.Fallback {
		r.Metrics.resolved(SourceNone)
		return nil, &NotConnectedError{Method: buffered.Method, URL: buffered.URL}
	}

	transport := r.RoundTripper
	if transport == nil {
		transport = http.DefaultTransport
	}
	log.Debug("Falling back to network")
	httpRes, err := transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	res, err := NewResponse(httpRes)
	if err != nil {
		return nil, &Error{Request: req, Response: httpRes, Err: err}
	}
	if res.URL == "" {
		res.URL = buffered.URL
	}

	p := r.codec().Identifier.Pair(buffered, res)
	p.RecordedAt = time.Now().UTC()
	if r.Recording() && p.Identity.Valid() {
		err := r.Record(p)
		r.Metrics.persisted(err)
		if err != nil {
			log.Error("Failed to persist fixture", logger.Error(err))
		}
	}

	r.Metrics.resolved(SourceNetwork)
	return &Resolution{Pairing: p, Source: SourceNetwork, Response: httpRes}, nil
}

func (r *RoundTripper) resolved(req *http.Request, p *Pairing, source Source) *Resolution {
	r.Metrics.resolved(source)
	return &Resolution{
		Pairing:  p,
		Source:   source,
		Response: p.Response.HTTPResponse(req),
	}
}

// NewClient returns an *http.Client that replays fixtures from loadDir and
// recordDir and records responses it has to fetch into recordDir.
func NewClient(loadDir, recordDir string) *http.Client {
	return &http.Client{
		Transport: &RoundTripper{
			RoundTripper: http.DefaultTransport,
			Bundle:       NewBundle(loadDir, recordDir),
			Fallback:     true,
		},
	}
}

// NewPlaybackOnlyClient returns an *http.Client which only returns fixtures
// from loadDir. Any other request fails with a *NotConnectedError.
func NewPlaybackOnlyClient(loadDir string) *http.Client {
	return &http.Client{
		Transport: NewRoundTripper(NewBundle(loadDir, ""), false),
	}
}
