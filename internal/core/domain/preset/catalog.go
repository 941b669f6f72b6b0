package preset

import (
	"apexlens/internal/core/domain"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const SharpenID = "sharp"

// SharpenInstruction is sent verbatim when the user clicks "Super Sharpen".
const SharpenInstruction = "Sharpen all details and textures in this image to make it crystal clear. " +
	"Ensure edges are defined and noise is removed without introducing artifacts."

type Catalog struct {
	presets map[string]domain.EditPreset
	order   []string
}

// Default returns the catalog offered in the UI.
func Default() *Catalog {
	c := &Catalog{}
	c.Register(domain.EditPreset{
		ID:          SharpenID,
		Label:       "Super Sharpen",
		Instruction: SharpenInstruction,
		Icon:        "fa-expand",
	})

	return c
}

// Register adds a preset. Registering an existing id replaces its entry but keeps its position.
func (c *Catalog) Register(p domain.EditPreset) {
	if c.presets == nil {
		c.presets = make(map[string]domain.EditPreset)
	}

	log.Info().Str("preset", p.ID).Msg("adding preset to catalog")

	if _, ok := c.presets[p.ID]; !ok {
		c.order = append(c.order, p.ID)
	}
	c.presets[p.ID] = p
}

func (c *Catalog) Get(id string) (domain.EditPreset, error) {
	log.Debug().Str("preset", id).Msg("fetching preset from catalog")

	p, ok := c.presets[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return domain.EditPreset{}, fmt.Errorf("%w: %q", domain.ErrUnknownPreset, id)
	}

	return p, nil
}

// List returns the presets in registration order.
func (c *Catalog) List() []domain.EditPreset {
	list := make([]domain.EditPreset, len(c.order))
	for i, id := range c.order {
		list[i] = c.presets[id]
	}

	return list
}
