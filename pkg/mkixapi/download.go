package mkixapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mkixbridge/bridge/pkg/fileutil"
	"github.com/mkixbridge/bridge/pkg/mkerr"
)

const downloadDir = "./downloads"

// GetFile is the shared authenticated-download primitive: it only attaches
// the bearer token when reqURL points at our own MkIX server.
func (c *Client) GetFile(ctx context.Context, reqURL string) ([]byte, error) {
	headers := map[string]string{}
	if strings.HasPrefix(reqURL, c.cfg.ServerURL) {
		headers["Authorization"] = c.authHeader()
	}

	res, err := c.do(ctx, "GET", reqURL, requestOpts{headers: headers, timeout: 0})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, mkerr.ClassifyStatus(res.StatusCode, fmt.Errorf("download failed with status %d", res.StatusCode))
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading downloaded body: %v", mkerr.ErrIO, err)
	}
	return body, nil
}

// Record downloads an audio file referenced by a MkIX download URL and
// saves it under ./downloads as "<basename>.mp3", returning the absolute
// path OneBot expects in get_record's "file" field.
func (c *Client) Record(ctx context.Context, fileURL string) (string, error) {
	if !strings.HasPrefix(fileURL, c.buildURL("v1", nil)[:len(c.buildURL("v1", nil))-1]) {
		return "", fmt.Errorf("%w: unknown download domain", mkerr.ErrUsage)
	}

	data, err := c.GetFile(ctx, fileURL)
	if err != nil {
		return "", err
	}

	name := filepath.Base(fileURL) + ".mp3"
	path := filepath.Join(downloadDir, name)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: saving record: %v", mkerr.ErrIO, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving record path: %v", mkerr.ErrIO, err)
	}
	return abs, nil
}

var imageMIMEPattern = regexp.MustCompile(`data:image/(\w+);base64`)

// Image decodes a base64://data:image/<ext>;base64,<...> payload and saves
// it under ./downloads, returning the absolute path.
func (c *Client) Image(file string) (string, error) {
	if !strings.HasPrefix(file, "base64://") {
		return "", fmt.Errorf("%w: image file must start with base64://", mkerr.ErrUsage)
	}

	parts := strings.SplitN(file, ",", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: malformed base64 image payload", mkerr.ErrUsage)
	}
	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64 image: %v", mkerr.ErrCrypto, err)
	}

	ext := "png"
	if m := imageMIMEPattern.FindStringSubmatch(file); m != nil {
		ext = m[1]
	}

	name := fmt.Sprintf("%s.%s", uuid.New().String(), ext)
	path := filepath.Join(downloadDir, name)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: saving image: %v", mkerr.ErrIO, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving image path: %v", mkerr.ErrIO, err)
	}
	return abs, nil
}
