// Package transcribe uploads detected post videos to the local
// transcription service. The service is an opaque boundary: the response
// is logged and otherwise discarded.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client sends videos to the transcription endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
	log      *logrus.Entry
}

// New creates a transcription client for the given endpoint
// (e.g. http://localhost:8000/transcribe-video).
func New(endpoint string, log *logrus.Entry) *Client {
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 5 * time.Minute},
		log:      log,
	}
}

// Upload fetches the video at src and posts it to the transcription
// endpoint as a multipart file. Best-effort: every failure is logged and
// swallowed so a capture handler can never fail on it.
func (c *Client) Upload(ctx context.Context, src string) {
	if err := c.upload(ctx, src); err != nil {
		c.log.WithField("src", src).WithError(err).Warn("video transcription upload failed")
	}
}

func (c *Client) upload(ctx context.Context, src string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("invalid video source: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("video fetch returned %s", resp.Status)
	}

	// Stream the video straight into the multipart body.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		name := fmt.Sprintf("post-video-%d.mp4", time.Now().UnixMilli())
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, resp.Body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	post, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return fmt.Errorf("invalid transcription endpoint: %w", err)
	}
	post.Header.Set("Content-Type", mw.FormDataContentType())

	postResp, err := c.httpc.Do(post)
	if err != nil {
		return fmt.Errorf("transcription request failed: %w", err)
	}
	defer postResp.Body.Close()
	if postResp.StatusCode != http.StatusOK {
		return fmt.Errorf("transcription endpoint returned %s", postResp.Status)
	}

	var result map[string]any
	if err := json.NewDecoder(postResp.Body).Decode(&result); err != nil {
		c.log.WithField("src", src).Info("transcription accepted (non-JSON response)")
		return nil
	}
	c.log.WithFields(logrus.Fields{"src": src, "result": result}).Info("transcription result")
	return nil
}
