package replay

import (
	"encoding/json"
	"net/http"
)

// HandlerFunc answers a request in-process. It returns nil to let the next
// handler, or the fixtures, answer instead.
type HandlerFunc func(*Request) *Response

// StatusResponse returns an empty response to req with the given status and
// headers. A zero status means 200.
func StatusResponse(req *Request, status int, headers map[string]string) *Response {
	return DataResponse(req, nil, status, headers)
}

// DataResponse returns a response to req carrying data.
func DataResponse(req *Request, data []byte, status int, headers map[string]string) *Response {
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		Kind:       KindHTTP,
		URL:        req.URL,
		StatusCode: status,
		Header:     cloneHeader(headers),
		Body:       emptyToNil(cloneBytes(data)),
	}
}

// JSONResponse returns a response to req whose body is v encoded as JSON.
// Content-Type defaults to application/json.
func JSONResponse(req *Request, v any, status int, headers map[string]string) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	res := DataResponse(req, data, status, headers)
	if res.HeaderValue("Content-Type") == "" {
		if res.Header == nil {
			res.Header = make(map[string]string, 1)
		}
		res.Header["Content-Type"] = contentTypeJSON
	}
	return res, nil
}
