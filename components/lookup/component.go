package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-crudgrid/pkg/options"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Component bundles a collection, its handler configuration and routing
// helpers.
type Component struct {
	src  Source
	opts Options
}

// New constructs a component over src with default options plus overrides.
func New(src Source, fns ...OptionFn) *Component {
	return &Component{src: src, opts: NewOptions(fns...)}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Handler returns the listing handler.
func (c *Component) Handler() http.Handler {
	return HandlerWithOptions(c.src, c.opts)
}

// Binding returns a remote binding that reads this component mounted under
// basePath. dependsOn names the form fields whose values scope the listing;
// each must match a record key.
func (c *Component) Binding(basePath string, dependsOn ...string) *schema.RemoteBinding {
	return &schema.RemoteBinding{
		Endpoint:    c.Path(basePath),
		LabelKey:    c.opts.LabelKey,
		ValueKey:    c.opts.ValueKey,
		ResultsPath: "data",
		DependsOn:   append([]string(nil), dependsOn...),
		Params:      map[string]string{c.opts.LimitParam: fmt.Sprint(c.opts.DefaultLimit)},
	}
}

// Fetcher answers requests for this component's endpoint in process, without
// HTTP. Requests for other endpoints are passed to next, or fail when next is
// nil.
func (c *Component) Fetcher(basePath string, next options.Fetcher) options.Fetcher {
	endpoint := c.Path(basePath)
	return options.FetcherFunc(func(ctx context.Context, req options.Request) ([]map[string]any, error) {
		if strings.TrimRight(req.Endpoint, "/") != endpoint {
			if next == nil {
				return nil, fmt.Errorf("lookup: no collection mounted at %q", req.Endpoint)
			}
			return next.Fetch(ctx, req)
		}
		records, err := c.src.Records(ctx)
		if err != nil {
			return nil, err
		}
		results := Search(records, req.Query, c.opts)
		out := make([]map[string]any, len(results))
		for i, row := range results {
			out[i] = row
		}
		return out, nil
	})
}
