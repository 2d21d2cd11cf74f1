package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Message is the part of a request or response that decides how its body is
// stored.
type Message interface {
	Headers() map[string]string
	ContentType() string
	Data() []byte
}

// Request is a buffered HTTP request. Header keys keep the case they were
// given in, but lookups through HeaderValue ignore case.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// ResponseKind discriminates the two shapes a Response can take.
type ResponseKind int

const (
	// KindHTTP is a response with a status code.
	KindHTTP ResponseKind = iota
	// KindGeneric is a non-HTTP response described by a MIME type, an
	// expected length and a text encoding name.
	KindGeneric
)

func (k ResponseKind) String() string {
	if k == KindGeneric {
		return "generic"
	}
	return "http"
}

// Response is a buffered response. StatusCode is only meaningful for
// KindHTTP; MIMEType, ExpectedContentLength and TextEncodingName only for
// KindGeneric.
type Response struct {
	Kind       ResponseKind
	URL        string
	StatusCode int
	Header     map[string]string
	Body       []byte

	MIMEType              string
	ExpectedContentLength int64
	TextEncodingName      string
}

// Pairing is one request and the response it produced. The response may be
// nil when it has not been resolved yet. Identity is computed when the
// pairing is built and always describes the request.
type Pairing struct {
	Request    *Request
	Response   *Response
	RecordedAt time.Time
	Identity   Identity
}

func headerValue(h map[string]string, name string) string {
	if v, ok := h[name]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func cloneHeader(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// flattenHeader joins repeated values with ", ".
func flattenHeader(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

func expandHeader(h map[string]string) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out[k] = []string{v}
	}
	return out
}

// HeaderValue returns the value of the named header, ignoring case.
func (r *Request) HeaderValue(name string) string { return headerValue(r.Header, name) }

// Headers implements Message.
func (r *Request) Headers() map[string]string { return r.Header }

// ContentType implements Message.
func (r *Request) ContentType() string { return r.HeaderValue("Content-Type") }

// Data implements Message.
func (r *Request) Data() []byte { return r.Body }

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	return &Request{
		Method: r.Method,
		URL:    r.URL,
		Header: cloneHeader(r.Header),
		Body:   cloneBytes(r.Body),
	}
}

// NewRequest buffers req into a Request. The body of req is read and
// replaced so req can still be sent afterwards.
func NewRequest(req *http.Request) (*Request, error) {
	body, err := bufferRequestBody(req)
	if err != nil {
		return nil, err
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		Method: method,
		URL:    req.URL.String(),
		Header: flattenHeader(req.Header),
		Body:   body,
	}, nil
}

func bufferRequestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return nil, nil
		}
		return body, nil
	}
	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

// HTTPRequest builds an *http.Request equivalent to r.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header = expandHeader(r.Header)
	return req, nil
}

// HeaderValue returns the value of the named header, ignoring case.
func (r *Response) HeaderValue(name string) string { return headerValue(r.Header, name) }

// Headers implements Message.
func (r *Response) Headers() map[string]string { return r.Header }

// ContentType implements Message. It falls back to MIMEType when there is
// no Content-Type header.
func (r *Response) ContentType() string {
	if ct := r.HeaderValue("Content-Type"); ct != "" {
		return ct
	}
	return r.MIMEType
}

// Data implements Message.
func (r *Response) Data() []byte { return r.Body }

// Clone returns a deep copy of r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := *r
	c.Header = cloneHeader(r.Header)
	c.Body = cloneBytes(r.Body)
	return &c
}

// NewResponse buffers res into a Response. The body of res is read, closed
// and replaced with an in-memory copy.
func NewResponse(res *http.Response) (*Response, error) {
	var body []byte
	if res.Body != nil {
		var err error
		body, err = io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return nil, err
		}
		res.Body = io.NopCloser(bytes.NewReader(body))
	}
	if len(body) == 0 {
		body = nil
	}
	var u string
	if res.Request != nil && res.Request.URL != nil {
		u = res.Request.URL.String()
	}
	return &Response{
		Kind:       KindHTTP,
		URL:        u,
		StatusCode: res.StatusCode,
		Header:     flattenHeader(res.Header),
		Body:       body,
	}, nil
}

// HTTPResponse converts r into an *http.Response answering req. Generic
// responses are reported as 200 OK with Content-Type and Content-Length taken
// from their description.
func (r *Response) HTTPResponse(req *http.Request) *http.Response {
	header := expandHeader(r.Header)
	status := r.StatusCode
	length := int64(len(r.Body))
	if r.Kind == KindGeneric {
		status = http.StatusOK
		if header.Get("Content-Type") == "" && r.MIMEType != "" {
			ct := r.MIMEType
			if r.TextEncodingName != "" {
				ct += "; charset=" + r.TextEncodingName
			}
			header.Set("Content-Type", ct)
		}
		if header.Get("Content-Length") == "" && r.ExpectedContentLength >= 0 {
			header.Set("Content-Length", strconv.FormatInt(r.ExpectedContentLength, 10))
		}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: length,
		Request:       req,
	}
}

// Clone returns a deep copy of p.
func (p *Pairing) Clone() *Pairing {
	if p == nil {
		return nil
	}
	c := *p
	c.Request = p.Request.Clone()
	c.Response = p.Response.Clone()
	c.Identity.Normalized = p.Identity.Normalized.Clone()
	return &c
}
