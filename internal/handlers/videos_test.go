package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidshare/backend/internal/models"
)

func TestPublishReturnsOwnedPublishedVideo(t *testing.T) {
	srv := newTestServer(t, nil)
	ownerID := srv.register(t, "alice")
	cookies := srv.login(t, "alice")

	body, contentType := multipartBody(t, map[string]string{"title": "Demo"},
		testFile{field: "videoFile", name: "demo.mp4"},
		testFile{field: "thumbnail", name: "demo.png"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	withCookies(req, cookies)

	rec := srv.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var video models.Video
	decodeData(t, rec, &video)
	if video.OwnerID != ownerID || !video.IsPublished || video.Title != "Demo" {
		t.Fatalf("unexpected video %+v", video)
	}
	srv.assertUploadDirEmpty(t)
}

func TestPublishWithoutThumbnailCleansUp(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.register(t, "alice")
	cookies := srv.login(t, "alice")
	uploadsBefore := len(srv.media.Uploads())

	body, contentType := multipartBody(t, map[string]string{"title": "Demo"}, testFile{field: "videoFile", name: "demo.mp4"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	withCookies(req, cookies)

	if rec := srv.do(t, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	if got := len(srv.media.Uploads()); got != uploadsBefore {
		t.Fatalf("expected no uploads, got %d new", got-uploadsBefore)
	}
	srv.assertUploadDirEmpty(t)
}

func TestGetVideoRecordsHistoryOnce(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.register(t, "alice")
	srv.register(t, "bob")
	alice := srv.login(t, "alice")
	bob := srv.login(t, "bob")
	videoID := srv.publish(t, alice, "Demo")

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+videoID, nil)
		withCookies(req, bob)
		if rec := srv.do(t, req); rec.Code != http.StatusOK {
			t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil)
	withCookies(req, bob)
	rec := srv.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	var history []models.WatchedVideo
	decodeData(t, rec, &history)
	if len(history) != 1 || history[0].ID != videoID || history[0].Owner.Handle != "alice" {
		t.Fatalf("unexpected history %+v", history)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos/not-a-uuid", nil)
	withCookies(req, bob)
	if rec := srv.do(t, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected malformed id to fail with %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestNonOwnerCannotMutateVideo(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.register(t, "alice")
	srv.register(t, "bob")
	alice := srv.login(t, "alice")
	bob := srv.login(t, "bob")
	videoID := srv.publish(t, alice, "Demo")

	requests := []*http.Request{
		httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+videoID, nil),
		httptest.NewRequest(http.MethodPatch, "/api/v1/videos/toggle/publish/"+videoID, nil),
		jsonRequest(t, http.MethodPatch, "/api/v1/videos/"+videoID, map[string]string{"title": "mine"}),
	}
	for _, req := range requests {
		withCookies(req, bob)
		if rec := srv.do(t, req); rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected status %d got %d", req.Method, req.URL.Path, http.StatusForbidden, rec.Code)
		}
	}

	if len(srv.media.Deletes()) != 0 {
		t.Fatalf("expected no remote deletes, got %v", srv.media.Deletes())
	}
	video, err := srv.videos.FindByID(t.Context(), videoID)
	if err != nil {
		t.Fatalf("expected video to survive: %v", err)
	}
	if video.Title != "Demo" || !video.IsPublished {
		t.Fatalf("video was modified: %+v", video)
	}
}

func TestOwnerUpdatesTogglesAndDeletesVideo(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.register(t, "alice")
	alice := srv.login(t, "alice")
	videoID := srv.publish(t, alice, "Demo")

	body, contentType := multipartBody(t, map[string]string{"description": "new words"}, testFile{field: "thumbnail", name: "next.png"})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/videos/"+videoID, body)
	req.Header.Set("Content-Type", contentType)
	withCookies(req, alice)
	rec := srv.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var updated models.Video
	decodeData(t, rec, &updated)
	if updated.Title != "Demo" || updated.Description != "new words" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if len(srv.media.Deletes()) != 1 {
		t.Fatalf("expected the old thumbnail to be deleted once, got %v", srv.media.Deletes())
	}

	req = jsonRequest(t, http.MethodPatch, "/api/v1/videos/"+videoID, map[string]string{})
	withCookies(req, alice)
	if rec := srv.do(t, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected empty update to fail with %d got %d", http.StatusBadRequest, rec.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/videos/toggle/publish/"+videoID, nil)
	withCookies(req, alice)
	rec = srv.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	var toggled models.Video
	decodeData(t, rec, &toggled)
	if toggled.IsPublished {
		t.Fatal("expected video to be unpublished")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+videoID, nil)
	withCookies(req, alice)
	if rec := srv.do(t, req); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+videoID, nil)
	withCookies(req, alice)
	if rec := srv.do(t, req); rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted video to be gone, got %d", rec.Code)
	}
}

func TestListVideos(t *testing.T) {
	srv := newTestServer(t, nil)
	aliceID := srv.register(t, "alice")
	srv.register(t, "bob")
	alice := srv.login(t, "alice")
	bob := srv.login(t, "bob")
	srv.publish(t, alice, "Cooking pasta")
	srv.publish(t, alice, "Fixing bikes")
	srv.publish(t, bob, "Bob vlog")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos?query=PASTA&userId="+aliceID+"&sortBy=title&sortType=asc", nil)
	withCookies(req, bob)
	rec := srv.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var page models.VideoPage
	decodeData(t, rec, &page)
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Title != "Cooking pasta" {
		t.Fatalf("unexpected page %+v", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos?limit=2&page=2", nil)
	withCookies(req, bob)
	rec = srv.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	decodeData(t, rec, &page)
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 1 || page.Page != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	for _, query := range []string{"page=abc", "limit=-1", "sortBy=secret", "sortType=up", "userId=42"} {
		req = httptest.NewRequest(http.MethodGet, "/api/v1/videos?"+query, nil)
		withCookies(req, bob)
		if rec := srv.do(t, req); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d got %d", query, http.StatusBadRequest, rec.Code)
		}
	}
}
