package registry

import (
	"net/url"
	"regexp"
	"strings"
)

var tempPath = regexp.MustCompile(`/temp/.+`)

// Resolver turns storage-relative URLs into absolute ones.
// Base is the API root with a trailing /api removed.
type Resolver struct {
	Base string
}

// NewResolver derives the storage base from the API root
func NewResolver(apiRoot string) Resolver {
	base := strings.TrimRight(apiRoot, "/")
	base = strings.TrimSuffix(base, "/api")
	return Resolver{Base: strings.TrimRight(base, "/")}
}

// Resolve prefixes relative URLs with Base. URLs starting with http pass through.
func (r Resolver) Resolve(storageURL string) string {
	if storageURL == "" {
		return ""
	}
	if strings.HasPrefix(storageURL, "http") {
		return storageURL
	}
	return r.Base + storageURL
}

// Refresh recomputes the derived URL fields of f in place
func (r Resolver) Refresh(f *FileDescriptor) {
	f.ResolvedURL = r.Resolve(f.StorageURL)
	f.Path = ExtractPath(f.ResolvedURL)
}

// ExtractPath returns the storage path of a resolved URL: /temp/ paths as-is,
// the path of an absolute URL, or the /temp/ suffix of anything else.
func ExtractPath(fullURL string) string {
	if fullURL == "" {
		return ""
	}
	if strings.HasPrefix(fullURL, "/temp/") {
		return fullURL
	}
	if u, err := url.Parse(fullURL); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Path
	}
	return tempPath.FindString(fullURL)
}
