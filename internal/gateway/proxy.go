// Package gateway passes stored uploads through to the browser. Storage
// needs the operator's API session, which only the console holds.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/pkg/errors"
	pkghttp "github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/logger"
)

// StorageProxy reverse proxies /temp/ paths to backend storage
type StorageProxy struct {
	backend *backend.Client
	proxy   *httputil.ReverseProxy
	log     *logger.Logger
}

// NewStorageProxy proxies to the storage base derived from the API root
func NewStorageProxy(b *backend.Client, log *logger.Logger) (*StorageProxy, error) {
	base := registry.NewResolver(b.APIURL()).Base
	target, err := url.Parse(base)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("invalid storage base %q", base)
	}

	p := &StorageProxy{
		backend: b,
		log:     log.WithComponent("storage-proxy"),
	}
	p.proxy = p.createProxy(target)
	return p, nil
}

func (p *StorageProxy) createProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = target.Host

		// the browser's cookies belong to the console, not the API
		req.Header.Del("Cookie")
		req.Header.Del("Authorization")
		for _, c := range p.backend.SessionCookies(req.URL) {
			req.AddCookie(c)
		}
	}

	proxy.ModifyResponse = func(resp *http.Response) error {
		resp.Header.Del("Set-Cookie")
		return nil
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		p.log.Error().Err(err).Str("path", r.URL.Path).Msg("proxy error")
		pkghttp.Error(w, errors.Network("storage unavailable", err))
	}

	return proxy
}

// ServeHTTP forwards the wildcard part of the route. Only paths under /temp/
// are served.
func (p *StorageProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := chi.URLParam(r, "*")
	if strings.Contains(rest, "..") {
		pkghttp.Error(w, errors.BadRequest("invalid storage path"))
		return
	}
	cleaned := path.Clean("/" + rest)
	if !strings.HasPrefix(cleaned, "/temp/") {
		pkghttp.Error(w, errors.BadRequest("invalid storage path"))
		return
	}

	u := *r.URL
	u.Path = cleaned
	u.RawPath = ""

	out := r.Clone(r.Context())
	out.URL = &u
	p.proxy.ServeHTTP(w, out)
}
