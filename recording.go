package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"
)

// A Recording is the JSON document stored in the primary file of a fixture
// set. Bodies appear here only when they are not stored in a sidecar:
//
//	{
//	  "request": {
//	    "method": "GET",
//	    "url": "https://www.example.com/hodor",
//	    "headers": {"Accept": "text/plain"}
//	  },
//	  "response": {
//	    "url": "https://www.example.com/hodor",
//	    "status_code": 200,
//	    "headers": {"X-Custom-Header": "CustomValue"},
//	    "data": "AQIDBA=="
//	  },
//	  "recorded_at": "2024-05-01T10:00:00Z"
//	}
//
// A response without "status_code" is a generic response and must carry
// "expected_content_length" instead.
type Recording struct {
	Request    *RequestRecording  `json:"request"`
	Response   *ResponseRecording `json:"response,omitempty"`
	RecordedAt *time.Time         `json:"recorded_at,omitempty"`
}

// RequestRecording is the request half of a Recording.
type RequestRecording struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    *string           `json:"body,omitempty"`
}

// ResponseRecording is the response half of a Recording.
type ResponseRecording struct {
	URL                   string            `json:"url"`
	StatusCode            *int              `json:"status_code,omitempty"`
	MIMEType              *string           `json:"mime_type,omitempty"`
	ExpectedContentLength *int64            `json:"expected_content_length,omitempty"`
	TextEncodingName      *string           `json:"text_encoding_name,omitempty"`
	Headers               map[string]string `json:"headers,omitempty"`
	Data                  *string           `json:"data,omitempty"`
}

// File is one file of an encoded fixture set.
type File struct {
	// Name is slash-separated and relative to the fixture directory.
	Name string
	Data []byte
}

// Encoded is a fixture set ready to be written. Files holds sidecars first
// and the primary file last.
type Encoded struct {
	Files []File
	// Warnings lists bodies that could not be encoded inline and were left
	// out of the primary file.
	Warnings []error
}

// Primary returns the primary file.
func (e *Encoded) Primary() File {
	return e.Files[len(e.Files)-1]
}

// Codec converts pairings to and from fixture files.
type Codec struct {
	Namer      Namer
	Identifier *Identifier
}

// Marshal encodes p. A positive order prefixes every file name, see Stem.
// Bodies that cannot be encoded inline are skipped and reported in
// Encoded.Warnings; the returned error is only set when p cannot be filed.
func (c *Codec) Marshal(p *Pairing, order int) (*Encoded, error) {
	if p == nil || p.Request == nil {
		return nil, fmt.Errorf("replay: marshal: pairing has no request")
	}
	if !p.Identity.Valid() {
		return nil, ErrUnidentifiable
	}

	enc := &Encoded{}
	rec := Recording{
		Request: &RequestRecording{
			Method:  p.Request.Method,
			URL:     p.Request.URL,
			Headers: p.Request.Header,
		},
	}
	if !p.RecordedAt.IsZero() {
		t := p.RecordedAt.UTC()
		rec.RecordedAt = &t
	}

	if name := c.Namer.OrderedFileName(p, TargetRequestBody, order); name != "" {
		enc.Files = append(enc.Files, File{Name: name, Data: p.Request.Body})
	} else if len(p.Request.Body) > 0 {
		body, err := EncodeBody(p.Request.Body, p.Request.ContentType())
		if err != nil {
			enc.Warnings = append(enc.Warnings, withField(err, "body"))
		} else {
			rec.Request.Body = &body
		}
	}

	if res := p.Response; res != nil {
		rr := &ResponseRecording{URL: res.URL, Headers: res.Header}
		if rr.URL == "" {
			rr.URL = p.Request.URL
		}
		if res.Kind == KindGeneric {
			rr.MIMEType = &res.MIMEType
			rr.ExpectedContentLength = &res.ExpectedContentLength
			rr.TextEncodingName = &res.TextEncodingName
		} else {
			rr.StatusCode = &res.StatusCode
		}

		if name := c.Namer.OrderedFileName(p, TargetResponseBody, order); name != "" {
			enc.Files = append(enc.Files, File{Name: name, Data: res.Body})
		} else if len(res.Body) > 0 {
			data, err := EncodeBody(res.Body, res.ContentType())
			if err != nil {
				enc.Warnings = append(enc.Warnings, withField(err, "data"))
			} else {
				rr.Data = &data
			}
		}
		rec.Response = rr
	}

	primary, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return nil, &EncodeError{Field: "recording", ContentType: contentTypeJSON, Err: err}
	}
	enc.Files = append(enc.Files, File{
		Name: c.Namer.OrderedFileName(p, TargetPrimary, order),
		Data: append(primary, '\n'),
	})
	return enc, nil
}

// ReadFunc reads a file of a fixture set by its slash-separated name.
type ReadFunc func(name string) ([]byte, error)

// Unmarshal decodes the primary file called name. Sidecars named after it
// are read through read and take precedence over inline bodies. A sidecar
// implied by a content type but absent from disk is a *MissingSidecarError.
func (c *Codec) Unmarshal(name string, data []byte, read ReadFunc) (*Pairing, error) {
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &DecodeError{Path: name, Err: err}
	}
	if rec.Request == nil || rec.Request.URL == "" {
		return nil, &DecodeError{Path: name, Field: "request.url", Err: errors.New("missing")}
	}

	req := &Request{
		Method: rec.Request.Method,
		URL:    rec.Request.URL,
		Header: rec.Request.Headers,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if rec.Request.Body != nil {
		body, err := DecodeBody(*rec.Request.Body, req.ContentType())
		if err != nil {
			return nil, &DecodeError{Path: name, Field: "request.body", Err: err}
		}
		req.Body = emptyToNil(body)
	}
	if err := c.readSidecar(name, TargetRequestBody, req, &req.Body, read); err != nil {
		return nil, err
	}

	var res *Response
	if rr := rec.Response; rr != nil {
		var err error
		if res, err = decodeResponse(rr); err != nil {
			return nil, &DecodeError{Path: name, Field: "response", Err: err}
		}
		if err := c.readSidecar(name, TargetResponseBody, res, &res.Body, read); err != nil {
			return nil, err
		}
	}

	p := c.Identifier.Pair(req, res)
	if rec.RecordedAt != nil {
		p.RecordedAt = *rec.RecordedAt
	}
	return p, nil
}

func (c *Codec) readSidecar(primary string, t Target, m Message, dst *[]byte, read ReadFunc) error {
	sidecar := c.Namer.SidecarName(primary, t, m)
	if sidecar == "" {
		return nil
	}
	data, err := read(sidecar)
	if errors.Is(err, fs.ErrNotExist) {
		return &MissingSidecarError{Path: sidecar, Err: err}
	}
	if err != nil {
		return &DecodeError{Path: sidecar, Err: err}
	}
	*dst = emptyToNil(data)
	return nil
}

func decodeResponse(rr *ResponseRecording) (*Response, error) {
	res := &Response{URL: rr.URL, Header: rr.Headers}
	switch {
	case rr.StatusCode != nil:
		res.Kind = KindHTTP
		res.StatusCode = *rr.StatusCode
	case rr.ExpectedContentLength != nil:
		res.Kind = KindGeneric
		res.ExpectedContentLength = *rr.ExpectedContentLength
		if rr.MIMEType != nil {
			res.MIMEType = *rr.MIMEType
		}
		if rr.TextEncodingName != nil {
			res.TextEncodingName = *rr.TextEncodingName
		}
	default:
		return nil, errors.New("neither status_code nor expected_content_length is set")
	}
	if rr.Data != nil {
		body, err := DecodeBody(*rr.Data, res.ContentType())
		if err != nil {
			return nil, err
		}
		res.Body = emptyToNil(body)
	}
	return res, nil
}

func emptyToNil(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func withField(err error, field string) error {
	var ee *EncodeError
	if errors.As(err, &ee) {
		ee.Field = field
		return ee
	}
	return err
}
