package bluesky

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/plunkbot/plunkbot/internal/config"
	"github.com/plunkbot/plunkbot/internal/models"
)

type recordedPost struct {
	record postRecord
	auth   string
}

type fakeServer struct {
	srv      *httptest.Server
	sessions int
	uploads  []string // mime types in upload order
	posts    []recordedPost
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		f.sessions++
		json.NewEncoder(w).Encode(sessionResponse{
			AccessJwt: "jwt-token",
			Did:       "did:plc:test",
			Handle:    "plunkbot.test",
		})
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.uploadBlob", func(w http.ResponseWriter, r *http.Request) {
		f.uploads = append(f.uploads, r.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(uploadBlobResponse{
			Blob: blobRef{
				Type:     "blob",
				Ref:      json.RawMessage(`{"$link":"bafytest"}`),
				MimeType: r.Header.Get("Content-Type"),
				Size:     5,
			},
		})
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad createRecord body: %v", err)
		}
		f.posts = append(f.posts, recordedPost{record: req.Record, auth: r.Header.Get("Authorization")})
		json.NewEncoder(w).Encode(createRecordResponse{
			URI: "at://did:plc:test/app.bsky.feed.post/1",
			CID: "bafycid",
		})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	return NewClient(config.BlueskyConfig{
		Host:        f.srv.URL,
		Identifier:  "plunkbot.test",
		AppPassword: "app-password",
	}, slog.New(slog.DiscardHandler))
}

func seedFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("failed to seed %s: %v", name, err)
	}
	return path
}

func TestPost_TextOnly(t *testing.T) {
	f := newFakeServer(t)
	c := newTestClient(t, f)

	uri, err := c.Post(context.Background(), "hello", models.Attachment{})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if uri == "" {
		t.Error("expected a post URI")
	}

	if f.sessions != 1 {
		t.Errorf("expected 1 session, got %d", f.sessions)
	}
	if len(f.uploads) != 0 {
		t.Errorf("text-only post must not upload blobs, got %d", len(f.uploads))
	}
	if len(f.posts) != 1 {
		t.Fatalf("expected 1 record, got %d", len(f.posts))
	}

	post := f.posts[0]
	if post.record.Text != "hello" {
		t.Errorf("record text = %q", post.record.Text)
	}
	if post.record.Embed != nil || post.record.Reply != nil {
		t.Error("text-only post must carry no embed or reply")
	}
	if post.auth != "Bearer jwt-token" {
		t.Errorf("unexpected auth header %q", post.auth)
	}
}

func TestPost_VideoAndImageReply(t *testing.T) {
	f := newFakeServer(t)
	c := newTestClient(t, f)

	att := models.Attachment{
		VideoPath: seedFile(t, "555555_abc.mp4"),
		Images: []models.ImageAttachment{
			{Path: seedFile(t, "555555_abc_2025.png"), Alt: "season plot"},
			{Path: seedFile(t, "555555_abc_batter.png"), Alt: "batter plot"},
		},
	}

	if _, err := c.Post(context.Background(), "somebody got hit", att); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	if len(f.uploads) != 3 {
		t.Fatalf("expected video plus 2 image uploads, got %d", len(f.uploads))
	}
	if f.uploads[0] != "video/mp4" {
		t.Errorf("first upload mime = %q, want video/mp4", f.uploads[0])
	}

	if len(f.posts) != 2 {
		t.Fatalf("expected root and reply records, got %d", len(f.posts))
	}

	root := f.posts[0].record
	if root.Embed == nil || root.Embed.Type != "app.bsky.embed.video" {
		t.Errorf("root embed = %+v, want video embed", root.Embed)
	}

	reply := f.posts[1].record
	if reply.Reply == nil || reply.Reply.Root.URI != "at://did:plc:test/app.bsky.feed.post/1" {
		t.Errorf("reply ref = %+v", reply.Reply)
	}
	if reply.Embed == nil || reply.Embed.Type != "app.bsky.embed.images" {
		t.Fatalf("reply embed = %+v, want images embed", reply.Embed)
	}
	if len(reply.Embed.Images) != 2 || reply.Embed.Images[0].Alt != "season plot" {
		t.Errorf("reply images = %+v", reply.Embed.Images)
	}
}

func TestPost_SessionReused(t *testing.T) {
	f := newFakeServer(t)
	c := newTestClient(t, f)

	for i := 0; i < 3; i++ {
		if _, err := c.Post(context.Background(), "hello", models.Attachment{}); err != nil {
			t.Fatalf("post %d failed: %v", i, err)
		}
	}
	if f.sessions != 1 {
		t.Errorf("session should be cached across posts, got %d", f.sessions)
	}
}

func TestPost_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"AuthenticationRequired"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.BlueskyConfig{Host: srv.URL, Identifier: "x", AppPassword: "y"},
		slog.New(slog.DiscardHandler))

	if _, err := c.Post(context.Background(), "hello", models.Attachment{}); err == nil {
		t.Error("expected error from failed session creation")
	}
}
