package generator

import (
	"apexlens/internal/core/domain"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Downloader fetches the bytes behind a URL returned by the remote service.
type Downloader func(ctx context.Context, url string) ([]byte, error)

// FAL provides a wrapper for the FAL image editing API.
type FAL struct {
	falAPIKey            string
	imageEditingEndpoint string
	download             Downloader
	httpClient           *http.Client
}

func NewFAL(imageEditingEndpoint, apiKey string, download Downloader) *FAL {
	return &FAL{
		falAPIKey:            apiKey,
		imageEditingEndpoint: imageEditingEndpoint,
		download:             download,
		httpClient:           &http.Client{},
	}
}

type imageEditRequest struct {
	Prompt              string `json:"prompt"`
	EnableSafetyChecker bool   `json:"enable_safety_checker"`
	InputImageURL       string `json:"image_url"`
}

type imageResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Prompt string `json:"prompt"`
}

func (f *FAL) Enhance(ctx context.Context, image domain.DataURL, instruction string) (domain.DataURL, error) {
	result, err := f.editImage(ctx, image, instruction)
	if err != nil {
		log.Error().Err(err).Str("endpoint", f.imageEditingEndpoint).Msg("editing error")
		return "", fmt.Errorf("failed to edit image: %w", err)
	}

	return result, nil
}

func (f *FAL) editImage(ctx context.Context, image domain.DataURL, instruction string) (domain.DataURL, error) {
	if len(image) == 0 {
		return "", domain.ErrNoOriginal
	}

	falRequest := imageEditRequest{
		Prompt:              instruction,
		InputImageURL:       string(image),
		EnableSafetyChecker: false,
	}

	payloadBuf := new(bytes.Buffer)
	err := json.NewEncoder(payloadBuf).Encode(falRequest)
	if err != nil {
		return "", fmt.Errorf("error encoding FAL request: %w", err)
	}

	body, err := f.postFALRequest(ctx, f.imageEditingEndpoint, payloadBuf)
	if err != nil {
		return "", fmt.Errorf("FAL request failed: %w", err)
	}

	var result imageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshalling FAL imageResponse: %w", err)
	}

	if len(result.Images) == 0 || result.Images[0].URL == "" {
		return "", domain.ErrNoImageReturned
	}

	url := result.Images[0].URL
	log.Debug().Bool("inline", strings.HasPrefix(url, "data:")).Msg("FAL imageResponse")

	if strings.HasPrefix(url, "data:") {
		data, _, err := domain.DataURL(url).Decode()
		if err != nil {
			return "", err
		}

		return domain.NewDataURL(domain.OutputMIMEType, data), nil
	}

	data, err := f.download(ctx, url)
	if err != nil {
		return "", fmt.Errorf("error downloading FAL result: %w", err)
	}

	return domain.NewDataURL(domain.OutputMIMEType, data), nil
}

func (f *FAL) postFALRequest(ctx context.Context, url string, payloadBuf *bytes.Buffer) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payloadBuf)
	if err != nil {
		log.Error().Err(err).Msg("error creating POST request for FAL")
		return nil, err
	}

	req.Header.Add("Authorization", "Key "+f.falAPIKey)
	req.Header.Add("Content-Type", "application/json")

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing FAL request: %w", err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading FAL response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from FAL: %d", res.StatusCode)
	}

	return body, nil
}
