package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/services"
	"github.com/vidshare/backend/internal/storage"
)

type testServer struct {
	router    http.Handler
	accounts  *repositories.MemoryAccountRepository
	videos    *repositories.MemoryVideoRepository
	media     *storage.MemoryGateway
	uploadDir string
}

type envelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testFile struct {
	field string
	name  string
}

func newTestServer(t *testing.T, limiter middleware.RateLimiter) *testServer {
	t.Helper()

	store := repositories.NewMemoryStore()
	accounts := repositories.NewMemoryAccountRepository(store)
	videos := repositories.NewMemoryVideoRepository(store)
	media := storage.NewMemoryGateway("https://cdn.test")
	tokens := auth.NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour, accounts)
	uploadDir := t.TempDir()

	router := chi.NewRouter()
	RegisterRoutes(router, Dependencies{
		Accounts:   services.NewAccountService(accounts, tokens, media),
		Videos:     services.NewPublishingService(videos, accounts, media),
		Tokens:     tokens,
		Limiter:    limiter,
		RetryAfter: time.Minute,
		Uploads:    UploadPolicy{Dir: uploadDir, MaxBytes: 1 << 20},
	})

	return &testServer{router: router, accounts: accounts, videos: videos, media: media, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, handle string) string {
	t.Helper()
	body, contentType := multipartBody(t, map[string]string{
		"username": handle,
		"email":    handle + "@example.com",
		"fullName": handle,
		"password": "pw123",
	}, testFile{field: "avatar", name: "avatar.png"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := s.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", handle, rec.Code, rec.Body.String())
	}

	var account struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &account)
	return account.ID
}

// login returns the session cookies issued for handle.
func (s *testServer) login(t *testing.T, handle string) []*http.Cookie {
	t.Helper()
	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{"username": handle, "password": "pw123"})
	rec := s.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", handle, rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func (s *testServer) publish(t *testing.T, cookies []*http.Cookie, title string) string {
	t.Helper()
	body, contentType := multipartBody(t, map[string]string{"title": title},
		testFile{field: "videoFile", name: "clip.mp4"},
		testFile{field: "thumbnail", name: "thumb.png"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	withCookies(req, cookies)

	rec := s.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("publish: status %d body %s", rec.Code, rec.Body.String())
	}
	var video struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &video)
	return video.ID
}

func (s *testServer) assertUploadDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no temp files, found %d", len(entries))
	}
}

func multipartBody(t *testing.T, fields map[string]string, files ...testFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.field, file.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(part, "media bytes"); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withCookies(req *http.Request, cookies []*http.Cookie) {
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
}
