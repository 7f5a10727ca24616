package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	maxFrameBytes      = 16 << 20
)

// HTTPCamera reads frames from a network camera. Plain snapshot endpoints
// return one image per request; MJPEG streams (multipart/x-mixed-replace)
// are read up to the first complete part.
type HTTPCamera struct {
	url       string
	client    *http.Client
	connected atomic.Bool
	now       func() time.Time
}

// NewHTTPCamera builds a camera client with a per-read timeout.
func NewHTTPCamera(url string, timeout time.Duration) *HTTPCamera {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPCamera{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// ReadFrame implements Source.
func (c *HTTPCamera) ReadFrame(ctx context.Context) (Frame, error) {
	frame, err := c.read(ctx)
	c.connected.Store(err == nil)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return frame, nil
}

func (c *HTTPCamera) read(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Frame{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Frame{}, fmt.Errorf("request camera: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Frame{}, fmt.Errorf("camera returned %s", resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		return c.readFirstPart(resp.Body, params["boundary"])
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("camera returned an empty frame")
	}
	contentType, err := imageType(mediaType, data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: data, ContentType: contentType, ReadAt: c.now()}, nil
}

func (c *HTTPCamera) readFirstPart(body io.Reader, boundary string) (Frame, error) {
	if boundary == "" {
		return Frame{}, fmt.Errorf("mjpeg stream without boundary")
	}
	reader := multipart.NewReader(body, strings.TrimPrefix(boundary, "--"))
	part, err := reader.NextPart()
	if err != nil {
		return Frame{}, fmt.Errorf("read mjpeg part: %w", err)
	}
	defer part.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(part, maxFrameBytes)); err != nil {
		return Frame{}, fmt.Errorf("read mjpeg frame: %w", err)
	}
	if buf.Len() == 0 {
		return Frame{}, fmt.Errorf("mjpeg part was empty")
	}
	partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
	contentType, err := imageType(partType, buf.Bytes())
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: buf.Bytes(), ContentType: contentType, ReadAt: c.now()}, nil
}

// imageType accepts only image payloads. An undeclared type is sniffed, so
// proxies answering with an HTML error page never become frames.
func imageType(declared string, data []byte) (string, error) {
	if declared == "" {
		declared, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(declared, "image/") {
		return "", fmt.Errorf("camera returned %q instead of an image", declared)
	}
	return declared, nil
}

// Connected implements Source.
func (c *HTTPCamera) Connected() bool { return c.connected.Load() }

// Describe implements Source.
func (c *HTTPCamera) Describe() string { return "http " + c.url }
