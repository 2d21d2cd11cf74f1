package replay

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	contentTypeText = "text/"
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// SuffixFunc maps a content type to the file extension of its sidecar file.
// An empty result means bodies of that type are stored inline in the primary
// fixture file.
type SuffixFunc func(contentType string) string

// DataSuffix recognizes images, JSON, form posts and any text/* type. Text
// types use their subtype as the extension, so text/html is stored as .html.
func DataSuffix(contentType string) string {
	if s := BasicDataSuffix(contentType); s != "" {
		return s
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, contentTypeForm):
		return "txt"
	case strings.HasPrefix(ct, contentTypeText):
		sub := strings.TrimPrefix(mediaType(ct), contentTypeText)
		if sub == "" || strings.ContainsAny(sub, `/\ `) {
			return "txt"
		}
		return sub
	}
	return ""
}

// BasicDataSuffix recognizes only images and JSON. Everything else, text
// included, is stored inline.
func BasicDataSuffix(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "image/jpeg"):
		return "jpg"
	case strings.Contains(ct, "image/png"):
		return "png"
	case strings.Contains(ct, "image/gif"):
		return "gif"
	case strings.Contains(ct, contentTypeJSON):
		return "json"
	}
	return ""
}

// mediaType strips parameters such as "; charset=utf-8".
func mediaType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// EncodeBody converts body into the string stored in a fixture's "body" or
// "data" field. Text is stored as is, JSON is re-indented so fixtures diff
// well, and anything else is base64. Text that is not valid UTF-8 falls back
// to base64. Malformed JSON yields an *EncodeError.
func EncodeBody(body []byte, contentType string) (string, error) {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, contentTypeText) && utf8.Valid(body) {
		return string(body), nil
	}
	if strings.HasPrefix(ct, contentTypeJSON) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			return "", &EncodeError{ContentType: contentType, Err: err}
		}
		return buf.String(), nil
	}
	return base64.StdEncoding.EncodeToString(body), nil
}

// DecodeBody reverses EncodeBody. Text and JSON come back as their UTF-8
// bytes; other types must hold valid base64.
func DecodeBody(encoded string, contentType string) ([]byte, error) {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, contentTypeJSON) {
		if !json.Valid([]byte(encoded)) {
			return nil, &DecodeError{Field: "body", Err: errInvalidJSON}
		}
		return []byte(encoded), nil
	}
	if strings.HasPrefix(ct, contentTypeText) {
		return []byte(encoded), nil
	}
	body, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &DecodeError{Field: "body", Err: err}
	}
	return body, nil
}
