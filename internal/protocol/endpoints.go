package protocol

import (
	"strings"

	"github.com/xperiencelabs/archat/internal/interfaces"
)

// Endpoints holds the absolute URLs the session client talks to
type Endpoints struct {
	Start     string
	Chat      string
	Recommend string
	Static    string
}

// EndpointsFor resolves the endpoint set of a profile. An explicit upload URL wins over
// the host-relative /recommend/ path; the static base always ends with a slash.
func EndpointsFor(profile *interfaces.Profile) Endpoints {
	endpoints := Endpoints{
		Start:     BuildURL(profile.Scheme, profile.Host, EndpointStart),
		Chat:      BuildURL(profile.Scheme, profile.Host, EndpointChat),
		Recommend: BuildURL(profile.Scheme, profile.Host, EndpointRecommend),
	}
	if profile.UploadURL != "" {
		endpoints.Recommend = profile.UploadURL
	}

	staticPath := profile.StaticPath
	if staticPath == "" {
		staticPath = StaticPath
	}
	if !strings.HasSuffix(staticPath, "/") {
		staticPath += "/"
	}
	endpoints.Static = BuildURL(profile.Scheme, profile.Host, staticPath)

	return endpoints
}

// ResolveAsset turns an image reference from a chat reply into a displayable URL.
// Absolute references are returned untouched.
func (e Endpoints) ResolveAsset(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(e.Static, "/") + "/" + strings.TrimLeft(ref, "/")
}
