package core

import (
	"bytes"
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"

	"github.com/yourusername/serverrequest/pool/buffers"
	"github.com/yourusername/serverrequest/upload"
)

// snapshot is the JSON shape of a ServerRequest. Bodies and file contents
// are never read; uploaded files are reduced to their metadata.
type snapshot struct {
	Method          string              `json:"method"`
	URI             string              `json:"uri"`
	RequestTarget   string              `json:"request_target"`
	ProtocolVersion string              `json:"protocol_version"`
	Headers         map[string][]string `json:"headers"`
	ServerParams    map[string]any      `json:"server_params"`
	CookieParams    map[string]string   `json:"cookie_params"`
	QueryParams     map[string]any      `json:"query_params"`
	ParsedBody      any                 `json:"parsed_body"`
	UploadedFiles   any                 `json:"uploaded_files,omitempty"`
	Attributes      []string            `json:"attributes"`
}

type fileSummary struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Size      *int64 `json:"size,omitempty"`
	Error     int    `json:"error"`
}

// MarshalJSON encodes a diagnostic snapshot of the request. Attribute
// values are left out, only their names are listed.
func (r *ServerRequest) MarshalJSON() ([]byte, error) {
	snap := snapshot{
		Method:          r.Method(),
		URI:             r.URI().String(),
		RequestTarget:   r.RequestTarget(),
		ProtocolVersion: r.ProtocolVersion(),
		Headers:         r.Headers(),
		ServerParams:    r.serverParams,
		CookieParams:    r.cookieParams,
		QueryParams:     r.queryParams,
		ParsedBody:      r.parsedBody,
		Attributes:      r.AttributeNames(),
	}
	if r.uploadedFiles != nil {
		snap.UploadedFiles = summarizeUploads(reflect.ValueOf(r.uploadedFiles))
	}

	buf := buffers.Acquire(0)
	defer buffers.Release(buf)

	if err := json.NewEncoder(buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("core: encode snapshot: %w", err)
	}
	// The buffer goes back to the pool, so hand out a copy.
	return bytes.Clone(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

func summarizeUploads(v reflect.Value) any {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if f, ok := v.Interface().(upload.File); ok {
		s := fileSummary{
			Filename:  f.ClientFilename(),
			MediaType: f.ClientMediaType(),
			Error:     f.Error(),
		}
		if size, known := f.Size(); known {
			s.Size = &size
		}
		return s
	}

	switch v.Kind() {
	case reflect.Map:
		out := make(map[string]any, v.Len())
		for _, k := range sortedKeys(v) {
			out[fmt.Sprint(k.Interface())] = summarizeUploads(v.MapIndex(k))
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = summarizeUploads(v.Index(i))
		}
		return out
	default:
		return nil
	}
}
