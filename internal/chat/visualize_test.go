package chat

import (
	"reflect"
	"testing"

	"github.com/xperiencelabs/archat/internal/normalizer"
)

func TestVisualizationHandoff(t *testing.T) {
	tests := []struct {
		name   string
		events []normalizer.Event
		want   Handoff
		wantOK bool
	}{
		{
			name:   "nothing observed",
			wantOK: false,
		},
		{
			name: "collected models win",
			events: []normalizer.Event{
				normalizer.ImageReply("a.jpg", "a.glb", true),
				normalizer.ImageReply("b.jpg", "b.glb", false),
			},
			want:   Handoff{Models3D: []string{"a.glb", "b.glb"}, Images2D: []string{"a.jpg", "b.jpg"}},
			wantOK: true,
		},
		{
			name: "latest image derives a model",
			events: []normalizer.Event{
				normalizer.ImageReply("first.jpg", "", false),
				normalizer.ImageReply("second.jpg", "", false),
			},
			want:   Handoff{Model: "second.glb"},
			wantOK: true,
		},
		{
			name: "model only item",
			events: []normalizer.Event{
				normalizer.ImageReply("", "only.glb", false),
			},
			want:   Handoff{Models3D: []string{"only.glb"}},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Visualization
			for _, e := range tt.events {
				v.observe(e)
			}

			got, ok := v.Handoff()
			if ok != tt.wantOK {
				t.Fatalf("Handoff() ok = %v, want %v", ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Handoff() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVisualizationCloneIsIndependent(t *testing.T) {
	var v Visualization
	v.observe(normalizer.ImageReply("a.jpg", "a.glb", true))

	snapshot := v.clone()
	v.observe(normalizer.ImageReply("b.jpg", "b.glb", true))

	if len(snapshot.Images2D) != 1 || snapshot.Latest != "a.jpg" {
		t.Errorf("snapshot changed: %+v", snapshot)
	}
	if v.Empty() {
		t.Error("Empty() should be false after observing images")
	}
}

func TestStateString(t *testing.T) {
	if StateSending.String() != "sending" || State(99).String() != "unknown" {
		t.Error("unexpected state names")
	}
	if !StateFailed.Terminal() || StateReady.Terminal() {
		t.Error("Terminal() mismatch")
	}
}
