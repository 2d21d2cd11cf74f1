package replay

import (
	"encoding/json"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return &Codec{Identifier: &Identifier{}}
}

// roundTrip marshals p and unmarshals it from an in-memory file set.
func roundTrip(t *testing.T, c *Codec, p *Pairing) (*Pairing, map[string][]byte) {
	t.Helper()
	enc, err := c.Marshal(p, 0)
	require.NoError(t, err)
	require.Empty(t, enc.Warnings)

	files := make(map[string][]byte)
	for _, f := range enc.Files {
		files[f.Name] = f.Data
	}
	primary := enc.Primary()
	loaded, err := c.Unmarshal(primary.Name, primary.Data, func(name string) ([]byte, error) {
		if data, ok := files[name]; ok {
			return data, nil
		}
		return nil, fs.ErrNotExist
	})
	require.NoError(t, err)
	return loaded, files
}

func assertSamePairing(t *testing.T, want, got *Pairing) {
	t.Helper()
	assert.Equal(t, want.Request, got.Request)
	assert.Equal(t, want.Response, got.Response)
	assert.Equal(t, want.Identity.Hash, got.Identity.Hash)
	assert.Equal(t, want.Identity.BaseName, got.Identity.BaseName)
}

func TestRoundTripBodies(t *testing.T) {
	binary := []byte{0, 1, 2, 0xff, 0xfe}
	tests := []struct {
		name        string
		contentType string
		body        []byte
		inline      bool
	}{
		{"text sidecar", "text/plain", []byte("Hodor hodor hodor hodor"), false},
		{"json sidecar", "application/json", []byte(`["shame","shame","shame","DING"]`), false},
		{"png sidecar", "image/png", binary, false},
		{"binary inline", "application/octet-stream", binary, true},
		{"no content type inline", "", binary, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{
				Method: "POST",
				URL:    "https://www.buzzfeed.com/upload?x=1",
				Header: map[string]string{"X-Test": "yes"},
				Body:   tt.body,
			}
			res := &Response{
				Kind:       KindHTTP,
				URL:        req.URL,
				StatusCode: 202,
				Header:     map[string]string{"X-Custom-Header": "CustomValue"},
				Body:       tt.body,
			}
			if tt.contentType != "" {
				req.Header["Content-Type"] = tt.contentType
				res.Header["Content-Type"] = tt.contentType
			}
			p := testCodec().Identifier.Pair(req, res)

			loaded, files := roundTrip(t, testCodec(), p)
			assertSamePairing(t, p, loaded)
			if tt.inline {
				assert.Len(t, files, 1)
			} else {
				assert.Len(t, files, 3)
			}
		})
	}
}

func TestRoundTripInlineTextAndJSON(t *testing.T) {
	c := &Codec{Identifier: &Identifier{}, Namer: Namer{Suffix: func(string) string { return "" }}}

	req := &Request{Method: "GET", URL: "https://www.buzzfeed.com/hodor"}
	res := &Response{
		StatusCode: 200,
		Header:     map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       []byte("Hodor hodor"),
	}
	p := c.Identifier.Pair(req, res)
	loaded, files := roundTrip(t, c, p)
	assert.Len(t, files, 1)
	assert.Equal(t, []byte("Hodor hodor"), loaded.Response.Body)

	res.Header["Content-Type"] = "application/json"
	res.Body = []byte("{\n  \"a\": 1\n}")
	loaded, _ = roundTrip(t, c, c.Identifier.Pair(req, res))
	assert.JSONEq(t, `{"a":1}`, string(loaded.Response.Body))
}

func TestRoundTripGenericResponse(t *testing.T) {
	req := &Request{Method: "GET", URL: "ftp://files.example.com/readme"}
	res := &Response{
		Kind:                  KindGeneric,
		URL:                   req.URL,
		MIMEType:              "application/octet-stream",
		ExpectedContentLength: 4,
		TextEncodingName:      "utf-8",
		Body:                  []byte{1, 2, 3, 4},
	}
	p := testCodec().Identifier.Pair(req, res)
	loaded, _ := roundTrip(t, testCodec(), p)
	assertSamePairing(t, p, loaded)

	var raw map[string]map[string]any
	enc, err := testCodec().Marshal(p, 0)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(enc.Primary().Data, &raw))
	assert.NotContains(t, raw["response"], "status_code")
	assert.Contains(t, raw["response"], "mime_type")
	assert.Contains(t, raw["response"], "expected_content_length")
}

func TestMarshalPrimaryKeys(t *testing.T) {
	req := &Request{Method: "GET", URL: "https://www.buzzfeed.com/logo.png"}
	png := &Response{StatusCode: 200, Header: map[string]string{"Content-Type": "image/png"}, Body: []byte{0x89, 'P', 'N', 'G'}}
	enc, err := testCodec().Marshal(testCodec().Identifier.Pair(req, png), 0)
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(enc.Primary().Data, &raw))
	assert.NotContains(t, raw["response"], "data")
	assert.Equal(t, float64(200), raw["response"]["status_code"])
	assert.Equal(t, "GET", raw["request"]["method"])
	assert.NotContains(t, raw["request"], "body")

	blob := &Response{StatusCode: 200, Body: []byte{1, 2, 3, 4}}
	enc, err = testCodec().Marshal(testCodec().Identifier.Pair(req, blob), 0)
	require.NoError(t, err)
	require.Len(t, enc.Files, 1)
	require.NoError(t, json.Unmarshal(enc.Primary().Data, &raw))
	assert.Equal(t, "AQIDBA==", raw["response"]["data"])
}

func TestMarshalEncodeWarning(t *testing.T) {
	c := &Codec{Identifier: &Identifier{}, Namer: Namer{Suffix: func(string) string { return "" }}}
	req := &Request{
		Method: "POST",
		URL:    "https://www.buzzfeed.com/form",
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   []byte("{broken"),
	}
	res := &Response{StatusCode: 200}

	enc, err := c.Marshal(c.Identifier.Pair(req, res), 0)
	require.NoError(t, err)
	require.Len(t, enc.Warnings, 1)
	var ee *EncodeError
	require.True(t, errors.As(enc.Warnings[0], &ee))
	assert.Equal(t, "body", ee.Field)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(enc.Primary().Data, &raw))
	assert.NotContains(t, raw["request"], "body")
	assert.Equal(t, float64(200), raw["response"]["status_code"])
}

func TestMarshalUnidentifiable(t *testing.T) {
	_, err := testCodec().Marshal((&Identifier{}).Pair(&Request{}, nil), 0)
	assert.ErrorIs(t, err, ErrUnidentifiable)
}

func TestUnmarshalDefaultsAndErrors(t *testing.T) {
	c := testCodec()
	noRead := func(string) ([]byte, error) { return nil, fs.ErrNotExist }

	p, err := c.Unmarshal("x.json", []byte(`{"request":{"url":"https://h/p"},"response":{"url":"https://h/p","status_code":207,"headers":{"X-YOU-KNOW-NOTHING":"Jon Snow"}},"recorded_at":"2024-05-01T10:00:00Z"}`), noRead)
	require.NoError(t, err)
	assert.Equal(t, "GET", p.Request.Method)
	assert.Equal(t, 207, p.Response.StatusCode)
	assert.Equal(t, "Jon Snow", p.Response.HeaderValue("x-you-know-nothing"))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), p.RecordedAt)

	var de *DecodeError
	_, err = c.Unmarshal("x.json", []byte(`{`), noRead)
	assert.True(t, errors.As(err, &de))

	_, err = c.Unmarshal("x.json", []byte(`{"request":{}}`), noRead)
	assert.True(t, errors.As(err, &de))

	_, err = c.Unmarshal("x.json", []byte(`{"request":{"url":"https://h/p"},"response":{"url":"https://h/p"}}`), noRead)
	assert.True(t, errors.As(err, &de))

	_, err = c.Unmarshal("x.json", []byte(`{"request":{"url":"https://h/p"},"response":{"url":"https://h/p","status_code":200,"data":"%%"}}`), noRead)
	assert.True(t, errors.As(err, &de))
}

func TestUnmarshalMissingSidecar(t *testing.T) {
	c := testCodec()
	primary := []byte(`{"request":{"url":"https://h/logo"},"response":{"url":"https://h/logo","status_code":200,"headers":{"Content-Type":"image/png"}}}`)
	_, err := c.Unmarshal("h/logo-abcd1234.json", primary, func(string) ([]byte, error) { return nil, fs.ErrNotExist })

	var me *MissingSidecarError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "h/logo-abcd1234-response.png", me.Path)
}

func TestSidecarOverridesInline(t *testing.T) {
	c := testCodec()
	primary := []byte(`{"request":{"url":"https://h/doc"},"response":{"url":"https://h/doc","status_code":200,"headers":{"Content-Type":"application/json"},"data":"{\"inline\":true}"}}`)
	p, err := c.Unmarshal("h/doc-abcd1234.json", primary, func(name string) ([]byte, error) {
		assert.Equal(t, "h/doc-abcd1234-response.json", name)
		return []byte(`{"sidecar":true}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, `{"sidecar":true}`, string(p.Response.Body))
}
