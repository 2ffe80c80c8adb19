package shared

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
)

// MaxPeekBodySize bounds how much of a request body PeekJSON will buffer.
const MaxPeekBodySize = 100 << 10

var errBodyTooLarge = errors.New("request body too large to inspect")

// IsJSON reports whether the request declares a JSON body.
func IsJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// PeekJSON decodes the request body into v without consuming it: the body is
// restored so downstream handlers can read it again. Bodies larger than
// MaxPeekBodySize are not decoded and an error is returned.
func PeekJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return io.EOF
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, MaxPeekBodySize+1))
	r.Body = readCloser{
		Reader: io.MultiReader(bytes.NewReader(buf), r.Body),
		Closer: r.Body,
	}
	if err != nil {
		return err
	}
	if len(buf) > MaxPeekBodySize {
		return errBodyTooLarge
	}

	return json.Unmarshal(buf, v)
}

type readCloser struct {
	io.Reader
	io.Closer
}
