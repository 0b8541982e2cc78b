package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"neweyes-online/internal/db"
)

func createSession(t *testing.T, ts *httptest.Server, token, episodeID string) (string, string) {
	t.Helper()
	payload := map[string]string{"name": "Friday table"}
	if episodeID != "" {
		payload["episode_id"] = episodeID
	}
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", payload, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	assertString(t, body["session_id"])
	assertString(t, body["join_code"])
	return body["session_id"].(string), body["join_code"].(string)
}

func joinSession(t *testing.T, ts *httptest.Server, token, code string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/join", map[string]string{"code": code}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected join status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

// seedEpisode writes an episode with blocks straight into the directory.
func seedEpisode(t *testing.T, srv *Server, id string, blocks ...db.EpisodeBlock) {
	t.Helper()
	ctx := context.Background()
	if err := srv.dir.CreateEpisode(ctx, &db.Episode{ID: id, Title: "The Sunken Vault"}); err != nil {
		t.Fatalf("create episode: %v", err)
	}
	for i := range blocks {
		blocks[i].EpisodeID = id
		if err := srv.dir.CreateBlock(ctx, &blocks[i]); err != nil {
			t.Fatalf("create block: %v", err)
		}
	}
}

func postState(t *testing.T, ts *httptest.Server, path string, payload any, token string, want int) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, path, payload, token)
	if resp.StatusCode != want {
		t.Fatalf("%s: expected status %d, got %d", path, want, resp.StatusCode)
	}
	if want != http.StatusOK {
		return nil
	}
	body := decodeBody(t, resp)
	state, ok := body["state"].(map[string]any)
	if !ok {
		t.Fatalf("%s: expected state object, got %T", path, body["state"])
	}
	return state
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any, token string) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return send(t, req)
}

func doForm(t *testing.T, ts *httptest.Server, path string, form url.Values, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return send(t, req)
}

func doUpload(t *testing.T, ts *httptest.Server, path, field string, data []byte, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return send(t, req)
}

// send never follows redirects so tests can assert on Location.
func send(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func assertString(t *testing.T, value any) {
	t.Helper()
	if _, ok := value.(string); !ok {
		t.Fatalf("expected string, got %T", value)
	}
}
