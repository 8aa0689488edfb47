package normalizer

import (
	"reflect"
	"testing"
)

func TestNormalizeSingleField(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Events
	}{
		{
			name: "assistant text",
			raw:  `{"assistant_response":"hi"}`,
			want: Events{TextReply("hi")},
		},
		{
			name: "internal images derive glb",
			raw:  `{"internal_data":{"images":["a/b.jpg"]}}`,
			want: Events{ImageReply("a/b.jpg", "a/b.glb", true)},
		},
		{
			name: "content taken verbatim",
			raw:  `{"content":[{"image_2d":"x.jpg","image_3d":"x.glb"}]}`,
			want: Events{ImageReply("x.jpg", "x.glb", false)},
		},
		{
			name: "content 3d is not derived",
			raw:  `{"content":[{"image_2d":"x.jpg","image_3d":"models/other.gltf"}]}`,
			want: Events{ImageReply("x.jpg", "models/other.gltf", false)},
		},
		{
			name: "scraped text without content",
			raw:  `{"content_scrapped":"no results"}`,
			want: Events{ScrapedTextReply("no results")},
		},
		{
			name: "scraped text with empty content",
			raw:  `{"content":[],"content_scrapped":"no results"}`,
			want: Events{ScrapedTextReply("no results")},
		},
		{
			name: "session rotation",
			raw:  `{"session_id":"s-2"}`,
			want: Events{SessionUpdated("s-2")},
		},
		{
			name: "empty object",
			raw:  `{}`,
			want: Events{},
		},
		{
			name: "server detail",
			raw:  `{"detail":"unknown session"}`,
			want: Events{ServerFailure("unknown session")},
		},
		{
			name: "server error string",
			raw:  `{"error":"overloaded"}`,
			want: Events{ServerFailure("overloaded")},
		},
		{
			name: "server error object",
			raw:  `{"error":{"message":"rate limited","code":429}}`,
			want: Events{ServerFailure("rate limited")},
		},
		{
			name: "structured detail is not a reason",
			raw:  `{"detail":[{"loc":["body","message"]}]}`,
			want: Events{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeMalformed(t *testing.T) {
	inputs := []string{
		``,
		`not json`,
		`{"assistant_response":`,
		`HTTP Error: 500`,
		`["a","b"]`,
		`"just a string"`,
		`42`,
	}

	for _, raw := range inputs {
		got := Normalize(raw)
		want := Events{Failure("malformed response")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Normalize(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNormalizeMixedPayloadKeepsFieldOrder(t *testing.T) {
	raw := `{
		"session_id": "s-9",
		"assistant_response": "Here are some chairs",
		"internal_data": {"images": ["static/c1.jpg", "static/c2.png"]},
		"content": [
			{"image_2d": "static/t1.jpg", "image_3d": "static/t1.glb"},
			{},
			{"image_3d": "static/only3d.glb"}
		],
		"content_scrapped": "ignored because content is present"
	}`

	want := Events{
		SessionUpdated("s-9"),
		TextReply("Here are some chairs"),
		ImageReply("static/c1.jpg", "static/c1.glb", true),
		ImageReply("static/c2.png", "static/c2.png", true),
		ImageReply("static/t1.jpg", "static/t1.glb", false),
		ImageReply("", "static/only3d.glb", false),
	}

	got := Normalize(raw)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize() =\n%v\nwant\n%v", got, want)
	}
}

func TestNormalizeNeverEmitsEmptySession(t *testing.T) {
	for _, raw := range []string{`{"session_id":""}`, `{"session_id":null}`, `{"other":1}`} {
		events := Normalize(raw)
		if n := events.Count(KindSessionUpdated); n != 0 {
			t.Errorf("Normalize(%s) emitted %d session updates", raw, n)
		}
	}
}

func TestNormalizeIgnoresWrongTypes(t *testing.T) {
	raw := `{"assistant_response":{"nested":true},"internal_data":{"images":"a.jpg"},"content":"x"}`
	if got := Normalize(raw); len(got) != 0 {
		t.Errorf("Normalize() = %v, want no events", got)
	}
}

func TestNormalizeRecommendation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Events
	}{
		{"recommendation", `{"recommendation":"try the oak table"}`, Events{TextReply("try the oak table")}},
		{"empty recommendation", `{"recommendation":""}`, Events{}},
		{"chat fields ignored", `{"assistant_response":"hi","session_id":"s"}`, Events{}},
		{"malformed", `<html>`, Events{Failure("malformed response")}},
		{"server detail", `{"detail":"file part is required"}`, Events{ServerFailure("file part is required")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRecommendation(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeRecommendation(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDeriveGLB(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a/b.jpg", "a/b.glb"},
		{"b.jpg.jpg", "b.jpg.glb"},
		{"a.jpg/b.png", "a.jpg/b.png"},
		{"photo.JPG", "photo.JPG"},
		{"photo.jpeg", "photo.jpeg"},
		{"", ""},
		{".jpg", ".glb"},
	}

	for _, tt := range tests {
		if got := DeriveGLB(tt.in); got != tt.want {
			t.Errorf("DeriveGLB(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEventsHelpers(t *testing.T) {
	events := Events{
		SessionUpdated("a"),
		TextReply("t"),
		Failure("x"),
		SessionUpdated("b"),
	}

	if got := events.SessionIDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("SessionIDs() = %v", got)
	}
	if got := events.Failures(); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("Failures() = %v", got)
	}
	rest := events.Without(KindSessionUpdated)
	if !reflect.DeepEqual(rest, Events{TextReply("t"), Failure("x")}) {
		t.Errorf("Without() = %v", rest)
	}
	if KindImageReply.String() != "image_reply" {
		t.Errorf("String() = %q", KindImageReply.String())
	}
}
