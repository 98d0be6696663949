package igvf

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxReadSize bounds how much of a remote file GetZippedPreviewText pulls
// down, both through the Range header and a local read limit.
const maxReadSize = 50_000_000

// defaultMaxTextLines is the preview length when the caller passes no cap.
const defaultMaxTextLines = 100

// GetText requests the path as plain text. The body text comes back for any
// HTTP status, success or failure alike; the error object is non-nil only
// when the request never produced a response at all.
func (c *Client) GetText(ctx context.Context, path string) (string, *ErrorObject) {
	out := c.execute(ctx, http.MethodGet, c.pathURL(path, false), mimeText, "", nil)
	if out.err != nil {
		c.logWarn("network error", "url", path, "error", out.err.Error())
		return "", NetworkError()
	}
	return string(out.body), nil
}

// GetTextOrDefault is GetText with any failure, HTTP or transport, replaced
// by defaultText.
func (c *Client) GetTextOrDefault(ctx context.Context, path, defaultText string) string {
	out := c.execute(ctx, http.MethodGet, c.pathURL(path, false), mimeText, "", nil)
	if out.err != nil || out.status < 200 || out.status > 299 {
		return defaultText
	}
	return string(out.body)
}

// GetZippedPreviewText downloads the head of a gzip-compressed remote file
// and returns its first maxLines decompressed lines. A maxLines of zero or
// less means the default preview length. Only a bounded prefix of the file
// transfers, so a truncated gzip stream mid-read is expected; it only counts
// as a failure when no complete line was recovered.
func (c *Client) GetZippedPreviewText(ctx context.Context, fileURL string, maxLines int) (string, error) {
	if maxLines <= 0 {
		maxLines = defaultMaxTextLines
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", mimeText)
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", maxReadSize-1))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("preview request returned status %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(io.LimitReader(resp.Body, maxReadSize))
	if err != nil {
		return "", err
	}
	defer func() {
		_ = gz.Close()
	}()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lines := make([]string, 0, maxLines)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) >= maxLines {
			break
		}
	}
	if err := scanner.Err(); err != nil && len(lines) == 0 {
		return "", err
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
