package mkixapi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
)

// PostFile uploads payload (image/file/audio bytes) to the given group or
// private peer and returns the server-assigned message time. payloadType is
// the MkIX logical frame type ("file" or "audio"), sent verbatim as the
// fileType form field.
func (c *Client) PostFile(ctx context.Context, group, groupType, payloadType string, payload []byte) (*PostFileResult, error) {
	kind := "user"
	if groupType == "group" {
		kind = "group"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "file")
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, fmt.Errorf("writing multipart body: %w", err)
	}
	_ = writer.WriteField("fileType", payloadType)
	_ = writer.WriteField("groupType", kind)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	reqURL := c.buildURL(fmt.Sprintf("v1/%s/%s/upload", kind, group), nil)
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, &body)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", c.authHeader())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	var out PostFileResult
	if err := decode(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
