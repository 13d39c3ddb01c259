package network

import (
	"net/url"
	"path"
	"strings"
)

// ResolveImageURL resolves an image link to an absolute URL based on the
// provided gallery page URL. Links that cannot be resolved to an http or
// https URL are rejected.
func ResolveImageURL(href, base string) (string, bool) {
	candidate := strings.TrimSpace(href)
	if candidate == "" {
		return "", false
	}

	ref, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}

	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "", false
		}
		return ref.String(), true
	}

	if strings.HasPrefix(candidate, "//") {
		return "https:" + candidate, true
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	if baseURL.Scheme == "" {
		baseURL.Scheme = "https"
	}

	// Relative resolution needs the base to represent a directory.
	if baseURL.Path != "" && !strings.HasSuffix(baseURL.Path, "/") {
		dir := path.Dir(baseURL.Path)
		if dir == "." {
			dir = "/"
		}
		if !strings.HasSuffix(dir, "/") {
			dir += "/"
		}
		baseURL.Path = dir
	}

	resolved := baseURL.ResolveReference(ref)
	if resolved == nil || resolved.Host == "" || (resolved.Scheme != "http" && resolved.Scheme != "https") {
		return "", false
	}

	return resolved.String(), true
}
