package lookup

import (
	"errors"
	"net/http"
	"strings"
)

// Mux is satisfied by *http.ServeMux and chi.Router.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Path is the endpoint the component answers under basePath. Remote bindings
// and in-process fetchers use the same path.
func (c *Component) Path(basePath string) string {
	return joinPath(basePath, c.opts.RoutePath)
}

// RegisterRoutes mounts the listing handler under basePath and returns the
// registered pattern.
func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	if mux == nil {
		return "", errors.New("lookup: missing mux")
	}
	if c.src == nil {
		return "", errors.New("lookup: missing source")
	}
	pattern := c.Path(basePath)
	mux.Handle(pattern, c.Handler())
	return pattern, nil
}

// joinPath joins slash separated segments into a rooted path, dropping empty
// segments and stray slashes.
func joinPath(parts ...string) string {
	var segments []string
	for _, part := range parts {
		for _, seg := range strings.Split(part, "/") {
			if seg = strings.TrimSpace(seg); seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	return "/" + strings.Join(segments, "/")
}
