package azblob

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/marisolvega/callinsights-backend/pkg/errors"
)

const (
	copyPollInterval = 500 * time.Millisecond
	copyPollTimeout  = 2 * time.Minute
)

// BlobInfo describes a single blob from a container listing.
type BlobInfo struct {
	Name         string
	SizeBytes    int64
	LastModified time.Time
	ContentType  string
}

type enumerationResults struct {
	XMLName    xml.Name     `xml:"EnumerationResults"`
	Blobs      []listedBlob `xml:"Blobs>Blob"`
	NextMarker string       `xml:"NextMarker"`
}

type listedBlob struct {
	Name       string `xml:"Name"`
	Properties struct {
		ContentLength int64  `xml:"Content-Length"`
		LastModified  string `xml:"Last-Modified"`
		ContentType   string `xml:"Content-Type"`
	} `xml:"Properties"`
}

// ListSourceBlobs enumerates every blob in the source container, following
// continuation markers until the listing is exhausted.
func (c *Client) ListSourceBlobs(ctx context.Context) ([]BlobInfo, error) {
	var blobs []BlobInfo
	marker := ""
	for {
		query := url.Values{}
		query.Set("restype", "container")
		query.Set("comp", "list")
		if marker != "" {
			query.Set("marker", marker)
		}

		resp, err := c.do(ctx, http.MethodGet, c.source, "", query, nil)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, classifyStatus(resp.StatusCode, "list blobs")
		}

		var page enumerationResults
		decodeErr := xml.NewDecoder(resp.Body).Decode(&page)
		_ = resp.Body.Close()
		if decodeErr != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, decodeErr, "decoding blob listing")
		}

		for _, blob := range page.Blobs {
			info := BlobInfo{
				Name:        blob.Name,
				SizeBytes:   blob.Properties.ContentLength,
				ContentType: blob.Properties.ContentType,
			}
			if ts, err := time.Parse(http.TimeFormat, blob.Properties.LastModified); err == nil {
				info.LastModified = ts
			}
			blobs = append(blobs, info)
		}

		if page.NextMarker == "" {
			return blobs, nil
		}
		marker = page.NextMarker
	}
}

// BlobSize returns the Content-Length of a blob in the given container.
func (c *Client) BlobSize(ctx context.Context, container, blob string) (int64, error) {
	resp, err := c.do(ctx, http.MethodHead, container, blob, nil, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, classifyStatus(resp.StatusCode, "blob properties")
	}

	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageUnavailable, err, "parsing blob content length")
	}
	return size, nil
}

// SourceBlobSize returns the size of a blob in the source container.
func (c *Client) SourceBlobSize(ctx context.Context, blob string) (int64, error) {
	return c.BlobSize(ctx, c.source, blob)
}

// DeleteBlob removes a blob from the given container.
func (c *Client) DeleteBlob(ctx context.Context, container, blob string) error {
	resp, err := c.do(ctx, http.MethodDelete, container, blob, nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		return classifyStatus(resp.StatusCode, "delete blob")
	}
	return nil
}

// copyBlob starts a server-side copy into the destination container and
// returns the reported copy status.
func (c *Client) copyBlob(ctx context.Context, blob string) (string, error) {
	sourceURL, err := c.SignedURL(c.source, blob, time.Hour)
	if err != nil {
		return "", err
	}

	headers := map[string]string{"x-ms-copy-source": sourceURL}
	resp, err := c.do(ctx, http.MethodPut, c.destination, blob, nil, headers)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return "", apperrors.New(apperrors.CodeStorageUnavailable, fmt.Sprintf("copy blob: %s: %s", resp.Status, string(b)))
		}
		return "", classifyStatus(resp.StatusCode, "copy blob")
	}
	return resp.Header.Get("x-ms-copy-status"), nil
}

// copyStatus reads the current copy status of the destination blob.
func (c *Client) copyStatus(ctx context.Context, blob string) (string, error) {
	resp, err := c.do(ctx, http.MethodHead, c.destination, blob, nil, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, "copy status")
	}
	return resp.Header.Get("x-ms-copy-status"), nil
}

// MoveToProcessed copies a blob from the source container to the destination
// container, verifies the copied size matches the source, and only then
// deletes the original. The source blob is left untouched when any step
// before the delete fails.
func (c *Client) MoveToProcessed(ctx context.Context, blob string) (string, error) {
	sourceSize, err := c.BlobSize(ctx, c.source, blob)
	if err != nil {
		return "", err
	}

	status, err := c.copyBlob(ctx, blob)
	if err != nil {
		return "", err
	}

	if status == "pending" {
		if err := c.waitForCopy(ctx, blob); err != nil {
			return "", err
		}
	} else if status != "" && status != "success" {
		return "", apperrors.New(apperrors.CodeStorageUnavailable, fmt.Sprintf("copy blob: unexpected copy status %q", status))
	}

	copiedSize, err := c.BlobSize(ctx, c.destination, blob)
	if err != nil {
		return "", err
	}
	if copiedSize != sourceSize {
		return "", apperrors.New(apperrors.CodeStorageUnavailable,
			fmt.Sprintf("copy verification failed: source %d bytes, destination %d bytes", sourceSize, copiedSize))
	}

	if err := c.DeleteBlob(ctx, c.source, blob); err != nil {
		return "", err
	}

	return c.destination + "/" + blob, nil
}

func (c *Client) waitForCopy(ctx context.Context, blob string) error {
	deadline := time.Now().Add(copyPollTimeout)
	for {
		status, err := c.copyStatus(ctx, blob)
		if err != nil {
			return err
		}
		switch status {
		case "success":
			return nil
		case "pending":
			if time.Now().After(deadline) {
				return apperrors.New(apperrors.CodeStorageUnavailable, "copy blob: timed out waiting for copy to complete")
			}
		default:
			return apperrors.New(apperrors.CodeStorageUnavailable, fmt.Sprintf("copy blob: copy ended with status %q", status))
		}

		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.CodeStorageUnavailable, ctx.Err(), "copy blob: context cancelled")
		case <-time.After(copyPollInterval):
		}
	}
}
