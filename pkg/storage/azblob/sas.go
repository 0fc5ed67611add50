package azblob

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const sasVersion = "2020-10-02"

// SignedURL builds a read-only service SAS URL for the named blob, valid for
// the given duration.
func (c *Client) SignedURL(container, blob string, expiry time.Duration) (string, error) {
	if c == nil || len(c.accountKey) == 0 {
		return "", errors.New("blob storage client not initialized")
	}
	if blob == "" {
		return "", errors.New("blob name is required")
	}

	start := time.Now().UTC().Add(-5 * time.Minute)
	end := start.Add(expiry + 5*time.Minute)
	startStr := start.Format("2006-01-02T15:04:05Z")
	endStr := end.Format("2006-01-02T15:04:05Z")

	canonicalized := "/blob/" + c.accountName + "/" + container + "/" + blob

	stringToSign := strings.Join([]string{
		"r", // signedPermissions
		startStr,
		endStr,
		canonicalized,
		"",      // signedIdentifier
		"",      // signedIP
		"https", // signedProtocol
		sasVersion,
		"b", // signedResource
		"",  // snapshot time
		"",  // rscc
		"",  // rscd
		"",  // rsce
		"",  // rscl
		"",  // rsct
	}, "\n")

	query := url.Values{}
	query.Set("sv", sasVersion)
	query.Set("sr", "b")
	query.Set("sp", "r")
	query.Set("st", startStr)
	query.Set("se", endStr)
	query.Set("spr", "https")
	query.Set("sig", c.sign(stringToSign))

	return c.endpoint + "/" + url.PathEscape(container) + "/" + escapeBlobPath(blob) + "?" + query.Encode(), nil
}

// SourceBlobURL returns a read SAS URL for a blob in the source container
// using the configured SAS expiry.
func (c *Client) SourceBlobURL(blob string) (string, error) {
	return c.SignedURL(c.source, blob, c.sasExpiry)
}
