package domain

import "errors"

var (
	ErrNoOriginal       = errors.New("no image uploaded")
	ErrEmptyInstruction = errors.New("empty instruction")
	ErrBusy             = errors.New("an enhancement is already in progress")
	ErrNoEdit           = errors.New("no enhanced image available")
	ErrNoImageReturned  = errors.New("the model did not return an image")
	ErrInvalidDataURL   = errors.New("invalid data url")
	ErrUnknownPreset    = errors.New("preset not found")
	ErrNoAnalyzer       = errors.New("image analysis is not configured")
	ErrStale            = errors.New("request superseded by a newer upload or reset")
)

const (
	// OutputMIMEType is the fixed format tag put on every enhanced image.
	OutputMIMEType = "image/png"
	// DefaultInputMIMEType is assumed when an image string carries no header.
	DefaultInputMIMEType = "image/jpeg"
	DownloadFilename     = "apexlens-enhanced.png"
)
