package lookup

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

type listing struct {
	Data []schema.Row `json:"data"`
}

// NewHandler serves src with default options plus overrides.
func NewHandler(src Source, fns ...OptionFn) http.Handler {
	return HandlerWithOptions(src, NewOptions(fns...))
}

// HandlerWithOptions serves src with opts. Cleared fields take their defaults.
func HandlerWithOptions(src Source, opts Options) http.Handler {
	return &handler{src: src, opts: opts.withDefaults()}
}

type handler struct {
	src  Source
	opts Options
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
		fail(w, http.StatusMethodNotAllowed)
		return
	}
	if h.opts.Guard != nil {
		if err := h.opts.Guard(r); err != nil {
			fail(w, statusOf(err, http.StatusForbidden))
			return
		}
	}
	if h.src == nil {
		fail(w, http.StatusNotFound)
		return
	}

	records, err := h.src.Records(r.Context())
	if err != nil {
		fail(w, statusOf(err, http.StatusInternalServerError))
		return
	}
	body := listing{Data: Search(records, r.URL.Query(), h.opts)}
	if body.Data == nil {
		body.Data = []schema.Row{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// statusOf is the status carried by a StatusError in err's chain, else
// fallback.
func statusOf(err error, fallback int) int {
	var se StatusError
	if errors.As(err, &se) {
		return se.StatusCode()
	}
	return fallback
}

func fail(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}
