package handler

import (
	"apexlens/internal/core/domain"
	"html/template"
)

const (
	labelOriginal = "ORIGINAL"
	labelEnhanced = "✓ ENHANCED"
)

// PageView is everything the page template needs. It is derived from a snapshot and holds no
// state of its own.
type PageView struct {
	HasOriginal  bool
	HasEdit      bool
	IsProcessing bool
	Comparing    bool
	Displayed    template.URL
	Original     template.URL
	Edited       template.URL
	Label        string
	Error        string
	Analysis     string
	CanAnalyze   bool
	Presets      []domain.EditPreset
	DownloadName string
}

// NewPageView selects what to show for a session snapshot.
func NewPageView(s domain.Snapshot, presets []domain.EditPreset, canAnalyze bool) PageView {
	v := PageView{
		HasOriginal:  s.State.HasOriginal(),
		HasEdit:      s.State.HasEdit(),
		IsProcessing: s.State.IsProcessing,
		Comparing:    s.Comparing,
		Error:        s.State.Error,
		Analysis:     s.State.Analysis,
		CanAnalyze:   canAnalyze,
		Presets:      presets,
		DownloadName: domain.DownloadFilename,
		Label:        labelOriginal,
	}

	if !v.HasOriginal {
		return v
	}

	// Data URLs are built by this service from base64 output, so they are safe to embed.
	v.Original = template.URL(s.State.Original)
	v.Edited = template.URL(s.State.Edited)
	v.Displayed = template.URL(s.Displayed())

	if v.HasEdit && !v.Comparing {
		v.Label = labelEnhanced
	}

	return v
}

// stateResponse is the JSON form of a snapshot served by /api/state.
type stateResponse struct {
	Original     string `json:"original"`
	Edited       string `json:"edited"`
	Analysis     string `json:"analysis"`
	IsProcessing bool   `json:"isProcessing"`
	Error        string `json:"error"`
	Comparing    bool   `json:"comparing"`
	Displayed    string `json:"displayed"`
	Generation   uint64 `json:"generation"`
}

func newStateResponse(s domain.Snapshot) stateResponse {
	return stateResponse{
		Original:     string(s.State.Original),
		Edited:       string(s.State.Edited),
		Analysis:     s.State.Analysis,
		IsProcessing: s.State.IsProcessing,
		Error:        s.State.Error,
		Comparing:    s.Comparing,
		Displayed:    string(s.Displayed()),
		Generation:   s.Generation,
	}
}
