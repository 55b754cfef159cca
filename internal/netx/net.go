// Package netx holds small HTTP helpers shared by the upload backends.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultContentType is sent when the caller does not know the content type.
const DefaultContentType = "application/octet-stream"

// HTTPDoer is the subset of *http.Client used here.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// UploadToPresignedURL streams body to a presigned PUT url. header carries
// the headers that were signed along with the url; Host is taken from the url.
// size must be the exact body length since presigned S3 PUTs reject chunked
// transfer encoding.
func UploadToPresignedURL(ctx context.Context, client HTTPDoer, url string, header http.Header, body io.Reader, size int64) error {
	if client == nil {
		client = http.DefaultClient
	}

	if size == 0 {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	req.ContentLength = size
	for k, vs := range header {
		if http.CanonicalHeaderKey(k) == "Host" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", DefaultContentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
