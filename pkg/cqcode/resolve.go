package cqcode

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/h2non/filetype"

	"github.com/mkixbridge/bridge/pkg/mkerr"
)

// resolveFile fetches the bytes referenced by file (base64://, a local
// path, or an http(s):// URL) and, when b64Output is true, re-encodes
// them as a data:<mime>;base64,<...> URI.
func resolveFile(file string, b64Output bool) (string, error) {
	if strings.HasPrefix(file, "base64://") {
		raw := strings.TrimPrefix(file, "base64://")
		content, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return "", fmt.Errorf("%w: decoding base64 payload: %v", mkerr.ErrUsage, err)
		}
		if b64Output {
			return encodeDataURI(content, "application/octet-stream"), nil
		}
		return string(content), nil
	}

	parsed, err := url.Parse(file)
	if err != nil {
		return "", fmt.Errorf("%w: invalid file reference %q: %v", mkerr.ErrUsage, file, err)
	}

	switch parsed.Scheme {
	case "", "file":
		path := parsed.Path
		if path == "" {
			path = file
		}
		content, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: file not found: %s", mkerr.ErrNotFound, path)
			}
			return "", fmt.Errorf("%w: reading %s: %v", mkerr.ErrIO, path, err)
		}
		if b64Output {
			return encodeDataURI(content, sniffMIME(content)), nil
		}
		return string(content), nil

	case "http", "https":
		res, err := http.Get(file) //nolint:gosec,noctx
		if err != nil {
			return "", mkerr.ClassifyNetError(err)
		}
		defer res.Body.Close()
		content, err := io.ReadAll(res.Body)
		if err != nil {
			return "", fmt.Errorf("%w: reading download body: %v", mkerr.ErrIO, err)
		}
		if res.StatusCode >= 300 {
			return "", fmt.Errorf("%w: download failed with status %d", mkerr.ErrNotFound, res.StatusCode)
		}
		if b64Output {
			mime := res.Header.Get("Content-Type")
			if mime == "" {
				mime = sniffMIME(content)
			}
			return encodeDataURI(content, mime), nil
		}
		return string(content), nil

	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", mkerr.ErrUsage, parsed.Scheme)
	}
}

func sniffMIME(content []byte) string {
	kind, err := filetype.Match(content)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}

func encodeDataURI(content []byte, mime string) string {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(content))
}
