package domain

// ImageState is the record a session renders from. It is always replaced as a whole.
type ImageState struct {
	Original     DataURL
	Edited       DataURL
	Analysis     string
	IsProcessing bool
	Error        string
}

// HasOriginal reports whether an image has been uploaded.
func (s ImageState) HasOriginal() bool {
	return s.Original != ""
}

// HasEdit reports whether an enhancement result is available.
func (s ImageState) HasEdit() bool {
	return s.Edited != ""
}

type EditPreset struct {
	ID          string
	Label       string
	Instruction string
	Icon        string
}

// Snapshot is a consistent copy of a session as seen by the presentation layer.
type Snapshot struct {
	State      ImageState
	Comparing  bool
	Generation uint64
}

// Displayed returns the image the page should show: the edit unless the user is comparing.
func (s Snapshot) Displayed() DataURL {
	if s.Comparing || !s.State.HasEdit() {
		return s.State.Original
	}

	return s.State.Edited
}
