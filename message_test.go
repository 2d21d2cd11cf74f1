package replay

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestKeepsBody(t *testing.T) {
	require, assert := require.New(t), assert.New(t)
	httpReq, err := http.NewRequest(http.MethodPost, "https://www.buzzfeed.com/so-many-tests", io.NopCloser(strings.NewReader("payload")))
	require.NoError(err)
	httpReq.Header.Add("Accept", "a")
	httpReq.Header.Add("Accept", "b")

	req, err := NewRequest(httpReq)
	require.NoError(err)
	assert.Equal("payload", string(req.Body))
	assert.Equal("a, b", req.HeaderValue("accept"))

	again, err := io.ReadAll(httpReq.Body)
	require.NoError(err)
	assert.Equal("payload", string(again))
	rc, err := httpReq.GetBody()
	require.NoError(err)
	fromGetBody, _ := io.ReadAll(rc)
	assert.Equal("payload", string(fromGetBody))
}

func TestNewRequestEmptyBody(t *testing.T) {
	httpReq, err := http.NewRequest(http.MethodPost, "https://www.buzzfeed.com/", bytes.NewReader(nil))
	require.NoError(t, err)
	req, err := NewRequest(httpReq)
	require.NoError(t, err)
	assert.Nil(t, req.Body)
}

func TestRequestHTTPRequest(t *testing.T) {
	req := &Request{
		URL:    "https://www.buzzfeed.com/so-many-tests",
		Header: map[string]string{"X-Test": "1"},
		Body:   []byte("body"),
	}
	httpReq, err := req.HTTPRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, httpReq.Method)
	assert.Equal(t, "1", httpReq.Header.Get("X-Test"))

	back, err := NewRequest(httpReq)
	require.NoError(t, err)
	assert.Equal(t, req.Body, back.Body)
	assert.Equal(t, req.URL, back.URL)
}

func TestNewResponseReplacesBody(t *testing.T) {
	httpRes := &http.Response{
		StatusCode: http.StatusTeapot,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("short and stout")),
		Request:    httptestRequest("https://tasty.co/teapot"),
	}
	res, err := NewResponse(httpRes)
	require.NoError(t, err)
	assert.Equal(t, KindHTTP, res.Kind)
	assert.Equal(t, http.StatusTeapot, res.StatusCode)
	assert.Equal(t, "text/plain", res.ContentType())
	assert.Equal(t, "https://tasty.co/teapot", res.URL)

	body, err := io.ReadAll(httpRes.Body)
	require.NoError(t, err)
	assert.Equal(t, "short and stout", string(body))
}

func TestCloneIsDeep(t *testing.T) {
	p := (&Identifier{}).Pair(
		&Request{URL: "https://h/p", Header: map[string]string{"A": "1"}, Body: []byte("x")},
		&Response{StatusCode: 200, Header: map[string]string{"B": "2"}, Body: []byte("y")},
	)
	c := p.Clone()
	c.Request.Header["A"] = "changed"
	c.Request.Body[0] = 'z'
	c.Response.Header["B"] = "changed"
	c.Response.Body[0] = 'z'

	assert.Equal(t, "1", p.Request.Header["A"])
	assert.Equal(t, "x", string(p.Request.Body))
	assert.Equal(t, "2", p.Response.Header["B"])
	assert.Equal(t, "y", string(p.Response.Body))
}

func TestHandlerHelpers(t *testing.T) {
	req := &Request{Method: http.MethodGet, URL: "https://tasty.co/"}

	res := StatusResponse(req, 0, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Nil(t, res.Body)
	assert.Equal(t, req.URL, res.URL)

	res, err := JSONResponse(req, map[string]int{"n": 1}, http.StatusCreated, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "application/json", res.ContentType())
	assert.JSONEq(t, `{"n":1}`, string(res.Body))

	res, err = JSONResponse(req, []int{1}, 0, map[string]string{"content-type": "application/vnd.api+json"})
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.api+json", res.ContentType())

	_, err = JSONResponse(req, make(chan int), 0, nil)
	assert.Error(t, err)
}

func httptestRequest(rawURL string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, rawURL, nil)
	return req
}
