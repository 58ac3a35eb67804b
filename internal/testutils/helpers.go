package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
)

// PNGHeader is the 8-byte PNG signature, enough for content sniffing
var PNGHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// CreateMultipartFile builds a multipart body with one file part. An empty
// contentType leaves the part without a Content-Type header.
func CreateMultipartFile(field, filename, contentType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// MakeJSONRequest creates an HTTP test request with JSON body
func MakeJSONRequest(method, url string, payload interface{}) *http.Request {
	var body io.Reader
	if payload != nil {
		jsonData, _ := json.Marshal(payload) //nolint:errcheck // Test payloads always marshal
		body = bytes.NewReader(jsonData)
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")

	return req
}

// AssertHTTPStatus checks if the HTTP response has the expected status code
func AssertHTTPStatus(t TestingInterface, resp *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if resp.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d. Body: %s", expectedStatus, resp.Code, resp.Body.String())
	}
}

// DecodeJSON checks the response is JSON and unmarshals it into target
func DecodeJSON(t TestingInterface, resp *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if !strings.Contains(resp.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("Expected JSON response, got %q", resp.Header().Get("Content-Type"))
		return
	}
	if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to unmarshal JSON response: %v (body: %s)", err, resp.Body.String())
	}
}

// TestingInterface defines the interface for testing frameworks (compatible with testing.T)
type TestingInterface interface {
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	Helper()
}
