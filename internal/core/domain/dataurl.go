package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DataURL is an embeddable image string of the form data:<mime>;base64,<payload>.
type DataURL string

const base64Marker = ";base64"

func NewDataURL(mimeType string, data []byte) DataURL {
	return DataURL("data:" + mimeType + base64Marker + "," + base64.StdEncoding.EncodeToString(data))
}

// Payload strips the header if present. A string without a comma is taken as a bare payload.
func (d DataURL) Payload() string {
	s := string(d)
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}

	return s
}

// MIMEType returns the format tag of the header, or DefaultInputMIMEType when there is none.
func (d DataURL) MIMEType() string {
	s := string(d)
	i := strings.IndexByte(s, ',')
	if !strings.HasPrefix(s, "data:") || i < 0 {
		return DefaultInputMIMEType
	}

	mimeType := strings.TrimSuffix(s[len("data:"):i], base64Marker)
	if j := strings.IndexByte(mimeType, ';'); j >= 0 {
		mimeType = mimeType[:j]
	}

	if mimeType == "" {
		return DefaultInputMIMEType
	}

	return mimeType
}

// Decode returns the raw image bytes and their format tag.
func (d DataURL) Decode() ([]byte, string, error) {
	if d == "" {
		return nil, "", fmt.Errorf("%w: empty", ErrInvalidDataURL)
	}

	data, err := base64.StdEncoding.DecodeString(d.Payload())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}

	return data, d.MIMEType(), nil
}
