package adapter

import (
	"bytes"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/serverrequest/core"
	"github.com/yourusername/serverrequest/stream"
	"github.com/yourusername/serverrequest/upload"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 500000000, time.UTC)

func TestFromHTTPServerParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/search?q=go&page=2", nil)
	r.Header.Set("Accept", "application/json")
	r.Header.Set("X-Forwarded-For", "10.0.0.1")
	r.RemoteAddr = "192.0.2.10:54321"

	req, err := fromHTTP(r, fixedTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]any{
		"REQUEST_METHOD":       "GET",
		"REQUEST_URI":          "/search?q=go&page=2",
		"SERVER_PROTOCOL":      "HTTP/1.1",
		"HTTP_HOST":            "example.com",
		"QUERY_STRING":         "q=go&page=2",
		"REQUEST_TIME":         fixedTime.Unix(),
		"REQUEST_TIME_FLOAT":   1714564800.5,
		"REMOTE_ADDR":          "192.0.2.10",
		"REMOTE_PORT":          "54321",
		"SERVER_NAME":          "example.com",
		"SERVER_PORT":          "80",
		"HTTP_ACCEPT":          "application/json",
		"HTTP_X_FORWARDED_FOR": "10.0.0.1",
	}
	for name, want := range expected {
		got, ok := req.ServerParam(name)
		if !ok {
			t.Errorf("expected server param %s", name)
			continue
		}
		if got != want {
			t.Errorf("%s: expected %v (%T), got %v (%T)", name, want, want, got, got)
		}
	}
	if _, ok := req.ServerParam("HTTPS"); ok {
		t.Error("expected no HTTPS param for plain http")
	}
}

func TestFromHTTPTLS(t *testing.T) {
	r := httptest.NewRequest("GET", "https://secure.example:8443/", nil)
	r.TLS = &tls.ConnectionState{}

	req, err := fromHTTP(r, fixedTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, _ := req.ServerParam("HTTPS"); v != "on" {
		t.Errorf("expected HTTPS on, got %v", v)
	}
	if v, _ := req.ServerParam("SERVER_PORT"); v != "8443" {
		t.Errorf("expected SERVER_PORT 8443, got %v", v)
	}
	if req.URI().Scheme() != "https" {
		t.Errorf("expected https scheme, got %s", req.URI().Scheme())
	}
}

func TestFromHTTPMessage(t *testing.T) {
	r := httptest.NewRequest("POST", "/items?tags[]=a&tags[]=b&filter[owner]=me", strings.NewReader("payload"))
	r.AddCookie(&http.Cookie{Name: "session", Value: "abc"})
	r.AddCookie(&http.Cookie{Name: "session", Value: "shadowed"})

	req, err := FromHTTP(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Method() != "POST" {
		t.Errorf("expected POST, got %s", req.Method())
	}
	if req.ProtocolVersion() != "1.1" {
		t.Errorf("expected protocol 1.1, got %s", req.ProtocolVersion())
	}
	if req.HeaderLine("Host") != "example.com" {
		t.Errorf("expected Host derived from URI, got %q", req.HeaderLine("Host"))
	}
	if req.URI().String() != "http://example.com/items?tags[]=a&tags[]=b&filter[owner]=me" {
		t.Errorf("unexpected URI %s", req.URI())
	}

	if v, _ := req.CookieParam("session"); v != "abc" {
		t.Errorf("expected first cookie value abc, got %q", v)
	}

	tags, _ := req.QueryParam("tags")
	if list, ok := tags.([]any); !ok || len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("expected tags [a b], got %#v", tags)
	}
	filter, _ := req.QueryParam("filter")
	if m, ok := filter.(map[string]any); !ok || m["owner"] != "me" {
		t.Errorf("expected filter[owner]=me, got %#v", filter)
	}

	body, err := stream.ReadString(req.Body())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "payload" {
		t.Errorf("expected payload, got %q", body)
	}

	if req.ParsedBody() != nil {
		t.Errorf("expected nil parsed body when the form was not parsed, got %#v", req.ParsedBody())
	}
	if req.UploadedFiles() != nil {
		t.Errorf("expected no uploads, got %#v", req.UploadedFiles())
	}
}

func TestFromHTTPParsedForm(t *testing.T) {
	form := url.Values{"name": {"gopher"}, "roles[]": {"admin", "dev"}}
	r := httptest.NewRequest("POST", "/users", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := r.ParseForm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := FromHTTP(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, ok := req.ParsedBody().(map[string]any)
	if !ok {
		t.Fatalf("expected map parsed body, got %T", req.ParsedBody())
	}
	if body["name"] != "gopher" {
		t.Errorf("expected name gopher, got %v", body["name"])
	}
	if roles, ok := body["roles"].([]any); !ok || len(roles) != 2 {
		t.Errorf("expected two roles, got %#v", body["roles"])
	}
	if v, _ := req.ServerParam("CONTENT_TYPE"); v != "application/x-www-form-urlencoded" {
		t.Errorf("expected CONTENT_TYPE, got %v", v)
	}
}

func TestFromHTTPMultipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "report")
	fw, err := mw.CreateFormFile("docs[a]", "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(fw, "alpha")
	fw, err = mw.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(fw, "png")
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest("POST", "/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := FromHTTP(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tree, ok := req.UploadedFiles().(map[string]any)
	if !ok {
		t.Fatalf("expected map tree, got %T", req.UploadedFiles())
	}
	avatar, ok := tree["avatar"].(upload.File)
	if !ok {
		t.Fatalf("expected avatar file, got %T", tree["avatar"])
	}
	if avatar.ClientFilename() != "me.png" {
		t.Errorf("expected me.png, got %s", avatar.ClientFilename())
	}

	docs, ok := tree["docs"].(map[string]any)
	if !ok {
		t.Fatalf("expected docs group, got %T", tree["docs"])
	}
	doc, ok := docs["a"].(upload.File)
	if !ok {
		t.Fatalf("expected docs[a] file, got %T", docs["a"])
	}
	s, err := doc.Stream()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := stream.ReadString(s); got != "alpha" {
		t.Errorf("expected alpha, got %q", got)
	}

	body, _ := req.ParsedBody().(map[string]any)
	if body["title"] != "report" {
		t.Errorf("expected title field in parsed body, got %#v", req.ParsedBody())
	}
}

func TestProtocolVersion(t *testing.T) {
	tests := []struct {
		major, minor int
		want         string
	}{
		{1, 0, "1.0"},
		{1, 1, "1.1"},
		{2, 0, "2"},
		{3, 0, "3"},
		{0, 0, ""},
	}

	for _, tt := range tests {
		r := &http.Request{ProtoMajor: tt.major, ProtoMinor: tt.minor}
		if got := protocolVersion(r); got != tt.want {
			t.Errorf("%d.%d: expected %q, got %q", tt.major, tt.minor, tt.want, got)
		}
	}
}

func TestHandler(t *testing.T) {
	h := func(w http.ResponseWriter, r *core.ServerRequest) error {
		return core.WriteJSON(w, http.StatusOK, map[string]string{"path": r.URI().Path()})
	}

	rec := httptest.NewRecorder()
	Handler(h, DefaultConfig()).ServeHTTP(rec, httptest.NewRequest("GET", "/hello", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"path":"/hello"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHandlerErrors(t *testing.T) {
	h := func(w http.ResponseWriter, r *core.ServerRequest) error {
		return core.ErrNotFound
	}

	rec := httptest.NewRecorder()
	Handler(h, Config{}).ServeHTTP(rec, httptest.NewRequest("GET", "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerConversionError(t *testing.T) {
	var gotReq *core.ServerRequest
	var gotErr error
	config := Config{
		ErrorHandler: func(w http.ResponseWriter, r *core.ServerRequest, err error) {
			gotReq, gotErr = r, err
			core.DefaultErrorHandler(w, r, err)
		},
	}
	h := func(w http.ResponseWriter, r *core.ServerRequest) error {
		t.Error("handler should not be called")
		return nil
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header["X-Broken"] = []string{"bad\x00value"}
	rec := httptest.NewRecorder()
	Handler(h, config).ServeHTTP(rec, r)

	if gotReq != nil {
		t.Error("expected nil request for conversion failures")
	}
	if !errors.Is(gotErr, core.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", gotErr)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerMaxBodyBytes(t *testing.T) {
	h := func(w http.ResponseWriter, r *core.ServerRequest) error {
		if _, err := stream.ReadString(r.Body()); err != nil {
			return core.ErrRequestTooLarge
		}
		return nil
	}

	rec := httptest.NewRecorder()
	config := DefaultConfig()
	config.MaxBodyBytes = 4
	Handler(h, config).ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader("too long")))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestWithAttributes(t *testing.T) {
	req, err := core.New(core.Options{})
	if err != nil {
		t.Fatal(err)
	}

	if got := withAttributes(req, nil); got != req {
		t.Error("expected same request without attributes")
	}

	got := withAttributes(req, map[string]string{"id": "7", "slug": "go"})
	if got.Attribute("id") != "7" || got.Attribute("slug") != "go" {
		t.Errorf("unexpected attributes %v", got.Attributes())
	}
	if len(req.Attributes()) != 0 {
		t.Error("original request changed")
	}
}
