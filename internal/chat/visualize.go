package chat

import (
	"github.com/xperiencelabs/archat/internal/normalizer"
)

// Visualization accumulates the image references seen during a conversation so they
// can be handed to a 3D viewer.
type Visualization struct {
	Models3D []string `json:"models_3d" yaml:"models_3d"`
	Images2D []string `json:"images_2d" yaml:"images_2d"`
	Latest   string   `json:"latest,omitempty" yaml:"latest,omitempty"`
}

// Handoff is what a viewer receives. Either the collected lists or, when no 3D
// reference was collected, a single model derived from the latest 2D image.
type Handoff struct {
	Models3D []string `json:"models_3d,omitempty" yaml:"models_3d,omitempty"`
	Images2D []string `json:"images_2d,omitempty" yaml:"images_2d,omitempty"`
	Model    string   `json:"model,omitempty" yaml:"model,omitempty"`
}

func (v *Visualization) observe(e normalizer.Event) {
	if e.Image2D != "" {
		v.Images2D = append(v.Images2D, e.Image2D)
		v.Latest = e.Image2D
	}
	if e.Image3D != "" {
		v.Models3D = append(v.Models3D, e.Image3D)
	}
}

// Empty reports whether no image has been observed
func (v Visualization) Empty() bool {
	return len(v.Models3D) == 0 && len(v.Images2D) == 0
}

func (v Visualization) clone() Visualization {
	return Visualization{
		Models3D: append([]string(nil), v.Models3D...),
		Images2D: append([]string(nil), v.Images2D...),
		Latest:   v.Latest,
	}
}

// Handoff builds the viewer payload. ok is false when there is nothing to show.
func (v Visualization) Handoff() (h Handoff, ok bool) {
	if len(v.Models3D) > 0 {
		return Handoff{
			Models3D: append([]string(nil), v.Models3D...),
			Images2D: append([]string(nil), v.Images2D...),
		}, true
	}
	if v.Latest != "" {
		return Handoff{Model: normalizer.DeriveGLB(v.Latest)}, true
	}
	return Handoff{}, false
}
