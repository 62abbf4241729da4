// Package bluesky posts to Bluesky over the XRPC HTTP API.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/plunkbot/plunkbot/internal/config"
	"github.com/plunkbot/plunkbot/internal/models"
)

// Client handles Bluesky XRPC interactions. A session is created lazily on
// the first post and reused for the rest of the run.
type Client struct {
	host        string
	identifier  string
	appPassword string
	httpClient  *http.Client
	logger      *slog.Logger

	accessJwt string
	did       string
}

// NewClient creates a new Bluesky client from configuration.
func NewClient(cfg config.BlueskyConfig, logger *slog.Logger) *Client {
	return &Client{
		host:        cfg.Host,
		identifier:  cfg.Identifier,
		appPassword: cfg.AppPassword,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type sessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

type blobRef struct {
	Type     string          `json:"$type"`
	Ref      json.RawMessage `json:"ref"`
	MimeType string          `json:"mimeType"`
	Size     int64           `json:"size"`
}

type uploadBlobResponse struct {
	Blob blobRef `json:"blob"`
}

type strongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type replyRef struct {
	Root   strongRef `json:"root"`
	Parent strongRef `json:"parent"`
}

type imageEmbed struct {
	Alt   string  `json:"alt"`
	Image blobRef `json:"image"`
}

type embed struct {
	Type   string       `json:"$type"`
	Video  *blobRef     `json:"video,omitempty"`
	Images []imageEmbed `json:"images,omitempty"`
}

type postRecord struct {
	Type      string    `json:"$type"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"createdAt"`
	Embed     *embed    `json:"embed,omitempty"`
	Reply     *replyRef `json:"reply,omitempty"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// Post publishes one root post with the attachment's video, then a reply
// carrying the analysis images when any are attached. It returns the root
// post URI.
func (c *Client) Post(ctx context.Context, text string, att models.Attachment) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}

	var rootEmbed *embed
	if att.VideoPath != "" {
		blob, err := c.uploadFile(ctx, att.VideoPath, "video/mp4")
		if err != nil {
			return "", fmt.Errorf("failed to upload video: %w", err)
		}
		rootEmbed = &embed{Type: "app.bsky.embed.video", Video: blob}
	}

	root, err := c.createPost(ctx, postRecord{
		Type:      "app.bsky.feed.post",
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Embed:     rootEmbed,
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("root post created", "uri", root.URI)

	if len(att.Images) > 0 {
		if err := c.postImageReply(ctx, root, att.Images); err != nil {
			return "", err
		}
	}

	return root.URI, nil
}

// postImageReply attaches the analysis images as a single reply under the
// root post.
func (c *Client) postImageReply(ctx context.Context, root createRecordResponse, images []models.ImageAttachment) error {
	imgEmbed := &embed{Type: "app.bsky.embed.images"}
	for _, img := range images {
		blob, err := c.uploadFile(ctx, img.Path, "image/png")
		if err != nil {
			return fmt.Errorf("failed to upload image %s: %w", filepath.Base(img.Path), err)
		}
		imgEmbed.Images = append(imgEmbed.Images, imageEmbed{Alt: img.Alt, Image: *blob})
	}

	ref := strongRef{URI: root.URI, CID: root.CID}
	reply, err := c.createPost(ctx, postRecord{
		Type:      "app.bsky.feed.post",
		Text:      "Where the pitch landed 📊",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Embed:     imgEmbed,
		Reply:     &replyRef{Root: ref, Parent: ref},
	})
	if err != nil {
		return fmt.Errorf("failed to post image reply: %w", err)
	}
	c.logger.Info("image reply created", "uri", reply.URI, "images", len(images))

	return nil
}

// ensureSession authenticates with the app password and caches the access
// token for the rest of the run.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.accessJwt != "" {
		return nil
	}

	var session sessionResponse
	err := c.doJSON(ctx, "com.atproto.server.createSession",
		sessionRequest{Identifier: c.identifier, Password: c.appPassword}, &session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	c.accessJwt = session.AccessJwt
	c.did = session.Did
	c.logger.Info("bluesky session created", "handle", session.Handle)
	return nil
}

func (c *Client) createPost(ctx context.Context, record postRecord) (createRecordResponse, error) {
	var created createRecordResponse
	err := c.doJSON(ctx, "com.atproto.repo.createRecord", createRecordRequest{
		Repo:       c.did,
		Collection: "app.bsky.feed.post",
		Record:     record,
	}, &created)
	if err != nil {
		return created, fmt.Errorf("failed to create post record: %w", err)
	}
	return created, nil
}

// uploadFile streams a local artifact to the blob store.
func (c *Client) uploadFile(ctx context.Context, path, mimeType string) (*blobRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/xrpc/com.atproto.repo.uploadBlob", f)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Authorization", "Bearer "+c.accessJwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob upload returned status %d: %s", resp.StatusCode, string(body))
	}

	var uploaded uploadBlobResponse
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	return &uploaded.Blob, nil
}

// doJSON posts a JSON body to an XRPC procedure and decodes the response.
func (c *Client) doJSON(ctx context.Context, procedure string, payload, out any) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/xrpc/"+procedure, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", procedure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", procedure, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse %s response: %w", procedure, err)
		}
	}
	return nil
}
