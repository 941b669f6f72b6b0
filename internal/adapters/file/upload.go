package file

import (
	"apexlens/internal/core/domain"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"
)

var ErrNoFile = errors.New("no file uploaded")

// FirstFile returns the first file posted under field. Any further files are ignored.
func FirstFile(form *multipart.Form, field string) (*multipart.FileHeader, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, ErrNoFile
	}

	if n := len(form.File[field]); n > 1 {
		log.Debug().Int("files", n).Msg("multiple files uploaded, reading the first")
	}

	return form.File[field][0], nil
}

// ReadUpload converts an uploaded file into an embeddable image string.
func ReadUpload(fh *multipart.FileHeader) (domain.DataURL, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("error opening upload: %w", err)
	}
	defer f.Close()

	return ReadImage(f, fh.Header.Get("Content-Type"))
}

// ReadImage reads r fully and encodes it as a data URL. The format tag comes from declaredType
// and falls back to sniffing the content. No validation is done: a file that is not an image
// still produces a data URL, which simply fails to render.
func ReadImage(r io.Reader, declaredType string) (domain.DataURL, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("error reading upload: %w", err)
	}

	mimeType := ""
	if declaredType != "" {
		if mediaType, _, err := mime.ParseMediaType(declaredType); err == nil {
			mimeType = mediaType
		}
	}

	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}

	log.Debug().Str("mimeType", mimeType).Int("bytes", len(data)).Msg("read upload")

	return domain.NewDataURL(mimeType, data), nil
}
