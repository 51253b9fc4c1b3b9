package lookup

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudgrid/pkg/options"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

func TestComponentBinding(t *testing.T) {
	component := New(employees(), WithRoutePath("/api/employees"), WithDefaultLimit(20))

	want := &schema.RemoteBinding{
		Endpoint:    "/admin/api/employees",
		LabelKey:    "name",
		ValueKey:    "id",
		ResultsPath: "data",
		DependsOn:   []string{"company_id"},
		Params:      map[string]string{"limit": "20"},
	}
	if diff := cmp.Diff(want, component.Binding("/admin", "company_id")); diff != "" {
		t.Fatalf("binding mismatch (-want +got):\n%s", diff)
	}
}

func TestComponentFetcherResolvesOptions(t *testing.T) {
	component := New(employees(), WithRoutePath("/api/employees"))
	binding := component.Binding("/", "company_id")

	resolver := options.NewResolver(options.WithFetcher(component.Fetcher("/", nil)))
	field := schema.Field{Name: "manager_id", Kind: schema.KindSelect, Remote: binding}

	res := resolver.Resolve(context.Background(), field, map[string]any{"company_id": "c2"})
	if res.Err != nil {
		t.Fatalf("resolve: %v", res.Err)
	}
	want := []schema.Option{{Label: "Cy Young", Value: "e3"}, {Label: "Adrian Cole", Value: "e4"}}
	if diff := cmp.Diff(want, res.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestComponentFetcherDelegatesOtherEndpoints(t *testing.T) {
	component := New(employees(), WithRoutePath("/api/employees"))

	called := false
	next := options.FetcherFunc(func(_ context.Context, req options.Request) ([]map[string]any, error) {
		called = req.Endpoint == "/api/companies"
		return nil, nil
	})
	if _, err := component.Fetcher("/", next).Fetch(context.Background(), options.Request{Endpoint: "/api/companies"}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !called {
		t.Fatalf("expected request to reach the next fetcher")
	}

	if _, err := component.Fetcher("/", nil).Fetch(context.Background(), options.Request{Endpoint: "/api/companies"}); err == nil {
		t.Fatalf("expected error without a next fetcher")
	}
}

func TestSearchOptions(t *testing.T) {
	opts := NewOptions()
	got := SearchOptions(employees(), url.Values{"q": {"young"}}, opts)
	if diff := cmp.Diff([]schema.Option{{Label: "Cy Young", Value: "e3"}}, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if got := SearchOptions(employees(), url.Values{"q": {"zzz"}}, opts); got != nil {
		t.Fatalf("expected no options, got %v", got)
	}
}

func TestLoadRecords(t *testing.T) {
	records, err := LoadRecords(strings.NewReader(`{"data": [{"id": 1, "name": "Acme"}, "skip", {"id": 2, "name": "Globex"}]}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Static{{"id": float64(1), "name": "Acme"}, {"id": float64(2), "name": "Globex"}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadRecords(strings.NewReader(`"nope"`)); err == nil {
		t.Fatalf("expected error for a scalar payload")
	}
	if _, err := LoadRecords(strings.NewReader(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
