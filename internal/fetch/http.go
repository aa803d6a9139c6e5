package fetch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/davekyte/docdock/internal/cache"
	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/metrics"
)

// HTTPFetcher is the network strategy. It streams the response to a temp
// file next to dest and promotes it with a rename only after the byte count
// matches the declared length, so a concurrent cache-path reader sees either
// no file or a fully written one. The temp file is removed on every exit
// path.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

var _ Strategy = (*HTTPFetcher)(nil)

func (f *HTTPFetcher) Fetch(ctx context.Context, src data.SourceDescriptor, dest string, progress ProgressFunc) (*data.ResolvedSource, error) {
	var body io.Reader
	if src.Body != "" {
		body = strings.NewReader(src.Body)
	}
	req, err := http.NewRequestWithContext(ctx, src.Method, src.URI, body)
	if err != nil {
		return nil, &NetworkError{URL: src.URI, Err: err}
	}
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{URL: src.URI, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetworkError{URL: src.URI, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	tmp := tempName(dest)
	out, err := os.Create(tmp)
	if err != nil {
		return nil, &FileSystemError{Op: "create", Path: tmp, Err: err}
	}
	// Cleanup is unconditional: after a successful rename this fails with
	// ENOENT, on every other exit path it discards the partial file.
	defer func() {
		_ = os.Remove(tmp)
	}()

	cw := &countingWriter{w: out, total: resp.ContentLength, progress: progress}
	n, copyErr := io.Copy(cw, resp.Body)
	closeErr := out.Close()

	if copyErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{URL: src.URI, Err: copyErr}
	}
	if closeErr != nil {
		return nil, &FileSystemError{Op: "close", Path: tmp, Err: closeErr}
	}
	if err := ctx.Err(); err != nil {
		// Cancelled between transfer completion and commit.
		return nil, err
	}

	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return nil, &SizeMismatchError{Want: resp.ContentLength, Got: n}
	}

	if err := os.Rename(tmp, dest); err != nil {
		return nil, &FileSystemError{Op: "rename", Path: dest, Err: err}
	}

	metrics.DownloadBytes.Add(float64(n))
	return &data.ResolvedSource{LocalPath: dest, FromCache: false}, nil
}

// tempName derives a per-attempt unique temp path so a superseding task
// never has to wait for the previous task's cleanup to finish on disk.
func tempName(dest string) string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return dest + "." + hex.EncodeToString(b[:]) + cache.TempSuffix
}

type countingWriter struct {
	w        io.Writer
	total    int64
	received int64
	progress ProgressFunc
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.received += int64(n)
		if c.progress != nil {
			c.progress(c.received, c.total)
		}
	}
	return n, err
}
