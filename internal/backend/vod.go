package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/zanzhit/flameguard/internal/domain/constants"
	"github.com/zanzhit/flameguard/internal/domain/models"
)

// UploadVideo streams r to the backend as the multipart field "file". The call
// is bounded only by ctx since uploads may be large.
func (c *Client) UploadVideo(ctx context.Context, file models.FileInfo, r io.Reader) (models.UploadAck, error) {
	const op = "backend.UploadVideo"

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeFilePart(writer, file, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.links.URL(PathUploadVOD), pr)
	if err != nil {
		pr.Close()

		return models.UploadAck{}, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	var ack models.UploadAck
	if err := c.callJSON(ctx, op, req, false, &ack); err != nil {
		pr.CloseWithError(err)

		return models.UploadAck{}, err
	}

	return ack, nil
}

func writeFilePart(writer *multipart.Writer, file models.FileInfo, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		constants.UploadFieldName, escapeQuotes(file.Name)))
	h.Set("Content-Type", file.ContentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}

	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("write video data: %w", err)
	}

	return writer.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// DrainFeed reads an MJPEG stream until it ends and reports how many frames it
// carried. onFrame, if set, is called after every frame.
func (c *Client) DrainFeed(ctx context.Context, rawURL string, onFrame func(frames int)) (int, error) {
	const op = "backend.DrainFeed"

	resp, err := c.Open(ctx, rawURL)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		// Not a frame stream, e.g. the "No video uploaded yet." text reply.
		_, _ = io.Copy(io.Discard, resp.Body)

		return 0, nil
	}

	reader := multipart.NewReader(resp.Body, params["boundary"])

	frames := 0
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return frames, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			// The backend ends its generator without a closing boundary.
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return frames, nil
			}

			return frames, fmt.Errorf("%s: %w", op, err)
		}

		n, err := io.Copy(io.Discard, part)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return frames, fmt.Errorf("%s: %w", op, err)
		}

		// The last frame arrives without its closing boundary.
		if n > 0 {
			frames++
			if onFrame != nil {
				onFrame(frames)
			}
		}

		if err != nil {
			return frames, nil
		}
	}
}
