// Package normalizer turns the heterogeneous JSON bodies returned by the recommendation
// server into an ordered stream of events.
//
// A response is examined by a fixed list of independent field probes. Every probe
// that matches contributes events, so a payload mixing an assistant reply with
// image results yields both.
package normalizer

import (
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
)

const (
	fieldSessionID       = "session_id"
	fieldAssistant       = "assistant_response"
	fieldInternalImages  = "internal_data.images"
	fieldContent         = "content"
	fieldContentScrapped = "content_scrapped"
	fieldImage2D         = "image_2d"
	fieldImage3D         = "image_3d"
	fieldRecommendation  = "recommendation"
	fieldDetail          = "detail"
	fieldError           = "error"
	fieldErrorMessage    = "error.message"

	jpgExt = ".jpg"
	glbExt = ".glb"
)

type probe func(doc gjson.Result, events Events) Events

var chatProbes = []probe{
	probeServerError,
	probeSessionID,
	probeAssistantResponse,
	probeInternalImages,
	probeContent,
}

var recommendationProbes = []probe{
	probeServerError,
	probeRecommendation,
}

// Normalize interprets a /chat or /start response body
func Normalize(raw string) Events {
	return run(raw, chatProbes)
}

// NormalizeRecommendation interprets a /recommend/ upload response body, which only
// carries a recommendation text.
func NormalizeRecommendation(raw string) Events {
	return run(raw, recommendationProbes)
}

func run(raw string, probes []probe) Events {
	doc, ok := parseObject(raw)
	if !ok {
		return Events{Failure(apperrors.ReasonMalformedResponse)}
	}

	events := Events{}
	for _, p := range probes {
		events = p(doc, events)
	}
	return events
}

// parseObject accepts only a syntactically valid JSON object at the top level
func parseObject(raw string) (gjson.Result, bool) {
	if !gjson.Valid(raw) {
		return gjson.Result{}, false
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return gjson.Result{}, false
	}
	return doc, true
}

// DeriveGLB maps a 2D image reference to its 3D model counterpart by swapping a
// trailing ".jpg" for ".glb". Anything else is returned unchanged.
func DeriveGLB(ref string) string {
	if !strings.HasSuffix(ref, jpgExt) {
		return ref
	}
	return strings.TrimSuffix(ref, jpgExt) + glbExt
}

// probeServerError reports the error envelope of a rejected request, either
// {"detail": "..."} or {"error": "..."} / {"error": {"message": "..."}}.
func probeServerError(doc gjson.Result, events Events) Events {
	for _, path := range []string{fieldDetail, fieldError, fieldErrorMessage} {
		if reason := scalar(doc.Get(path)); reason != "" {
			return append(events, ServerFailure(reason))
		}
	}
	return events
}

func probeSessionID(doc gjson.Result, events Events) Events {
	if id := scalar(doc.Get(fieldSessionID)); id != "" {
		events = append(events, SessionUpdated(id))
	}
	return events
}

func probeAssistantResponse(doc gjson.Result, events Events) Events {
	if text := scalar(doc.Get(fieldAssistant)); text != "" {
		events = append(events, TextReply(text))
	}
	return events
}

func probeInternalImages(doc gjson.Result, events Events) Events {
	images := doc.Get(fieldInternalImages)
	if !images.IsArray() {
		return events
	}
	images.ForEach(func(_, value gjson.Result) bool {
		if url := scalar(value); url != "" {
			events = append(events, ImageReply(url, DeriveGLB(url), true))
		}
		return true
	})
	return events
}

// probeContent handles the structured envelope. content_scrapped is only a fallback
// when content is absent or empty.
func probeContent(doc gjson.Result, events Events) Events {
	content := doc.Get(fieldContent)
	if content.IsArray() && len(content.Array()) > 0 {
		content.ForEach(func(_, item gjson.Result) bool {
			image2D := scalar(item.Get(fieldImage2D))
			image3D := scalar(item.Get(fieldImage3D))
			if image2D == "" && image3D == "" {
				return true
			}
			events = append(events, ImageReply(image2D, image3D, false))
			return true
		})
		return events
	}

	if text := scalar(doc.Get(fieldContentScrapped)); text != "" {
		events = append(events, ScrapedTextReply(text))
	}
	return events
}

func probeRecommendation(doc gjson.Result, events Events) Events {
	if text := scalar(doc.Get(fieldRecommendation)); text != "" {
		events = append(events, TextReply(text))
	}
	return events
}

// scalar returns the textual value of a string or number field. Objects, arrays,
// booleans and null count as absent.
func scalar(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number:
		return r.String()
	default:
		return ""
	}
}
