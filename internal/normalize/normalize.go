package normalize

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Endpoint is the normalized view of an operation endpoint. Raw is kept
// verbatim; Path is the cleaned form used for shape comparisons.
type Endpoint struct {
	Raw           string
	Path          string
	Segments      []string
	TrailingSlash bool
	Host          string
	Query         string

	// Malformed is set when the raw endpoint was empty or contained empty
	// path segments ("//"). Normalization still produces a usable Path.
	Malformed bool

	// Hidden lists invisible or look-alike characters removed from Path.
	Hidden []HiddenChar
}

// NormalizeEndpoint cleans an endpoint for comparison: absolute URLs are
// reduced to their path, the query string is split off, repeated slashes
// are collapsed and a leading slash is enforced. Hidden characters are
// stripped, compatibility forms (fullwidth letters and the like) are folded
// with NFKC and homoglyphs are mapped to Latin, so "rec\u200Bords" compares
// equal to "records".
func NormalizeEndpoint(raw string) Endpoint {
	ep := Endpoint{Raw: raw}
	scan := ScanHidden(raw)
	ep.Hidden = scan.Found
	s := strings.TrimSpace(norm.NFKC.String(scan.Sanitized))
	if s == "" {
		ep.Malformed = true
		ep.Path = "/"
		ep.Segments = []string{}
		return ep
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil {
			ep.Host = u.Host
			s = u.Path
			ep.Query = u.RawQuery
		}
	} else if i := strings.IndexByte(s, '?'); i >= 0 {
		ep.Query = s[i+1:]
		s = s[:i]
	}

	ep.TrailingSlash = strings.HasSuffix(s, "/")

	parts := strings.Split(s, "/")
	segments := make([]string, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			// leading and trailing empties are expected; interior ones are not
			if i != 0 && i != len(parts)-1 {
				ep.Malformed = true
			}
			continue
		}
		segments = append(segments, p)
	}
	ep.Segments = segments

	ep.Path = "/" + strings.Join(segments, "/")
	if ep.TrailingSlash && len(segments) > 0 {
		ep.Path += "/"
	}
	return ep
}

// HasSegment reports whether any path segment equals name.
func (e Endpoint) HasSegment(name string) bool {
	for _, s := range e.Segments {
		if s == name {
			return true
		}
	}
	return false
}

// Last returns the final path segment, or "" for the root.
func (e Endpoint) Last() string {
	if len(e.Segments) == 0 {
		return ""
	}
	return e.Segments[len(e.Segments)-1]
}

// MatchShape reports whether the endpoint has exactly the shape of the
// template. Template segments "*" and "{name}" match any single segment;
// "**" matches zero or more trailing segments. Trailing slashes are ignored.
//
//	/applications/*/records/         matches /applications/123/records
//	/applications/{app}/records/**   matches /applications/1/records/bulk/
func (e Endpoint) MatchShape(template string) bool {
	tmpl := NormalizeEndpoint(template)
	return matchSegments(e.Segments, tmpl.Segments)
}

func matchSegments(value, pattern []string) bool {
	for i, p := range pattern {
		if p == "**" {
			return i == len(pattern)-1
		}
		if i >= len(value) {
			return false
		}
		if p == "*" || (strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}")) {
			continue
		}
		if p != value[i] {
			return false
		}
	}
	return len(value) == len(pattern)
}
