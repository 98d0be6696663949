package igvf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestClient(t *testing.T, baseURL string, extra ...Option) *Client {
	t.Helper()

	options := append([]Option{
		WithRuntime(RuntimeServer),
		WithBaseURL(baseURL),
		WithConfig(Config{MaxURLLength: defaultMaxURLLength}),
	}, extra...)
	client, err := New(AuthContext{Cookie: "session=abc"}, options...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return client
}

func TestGetObjectSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/labs/lab-x/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Cookie"); got != "session=abc" {
			t.Errorf("expected the cookie forwarded, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("expected Accept application/json, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"@id":"/labs/lab-x/","@type":["Lab","Item"],"title":"Lab X"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result := client.GetObject(context.Background(), "/labs/lab-x/")
	if !result.IsOk() {
		t.Fatalf("expected Ok, got error %v", result.UnwrapErr())
	}
	obj := result.Unwrap()
	if obj["title"] != "Lab X" {
		t.Errorf("expected title \"Lab X\", got %v", obj["title"])
	}
}

func TestGetObjectUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"@type":["HTTPNotFound"],"status":"error","code":404,"title":"Not Found","description":"missing"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result := client.GetObject(context.Background(), "/labs/nope/")
	if !result.IsErr() {
		t.Fatal("expected Err for a 404 response")
	}
	errObj := result.UnwrapErr()
	if errObj.Code != 404 || !errObj.IsError {
		t.Errorf("expected a tagged 404 error object, got %+v", errObj)
	}
	if !containsString(errObj.Type, "Error") {
		t.Errorf("expected @type to contain Error, got %v", errObj.Type)
	}
}

func TestGetObjectNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)

	result := client.GetObject(context.Background(), "/labs/lab-x/")
	if !result.IsErr() {
		t.Fatal("expected Err for an unreachable server")
	}
	if got := result.UnwrapErr().Code; got != 503 {
		t.Errorf("expected the synthesized 503, got %d", got)
	}
}

func TestGetObjectUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result := client.GetObject(context.Background(), "/labs/lab-x/")
	if !result.IsErr() {
		t.Fatal("expected Err for an undecodable 2xx body")
	}
	if got := result.UnwrapErr().Code; got != 503 {
		t.Errorf("expected the synthesized 503, got %d", got)
	}
}

func TestDBRequestQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	client.GetObject(context.Background(), "/labs/lab-x/", DBRequest())
	if gotQuery != "datastore=database" {
		t.Errorf("expected datastore=database, got %q", gotQuery)
	}

	client.GetObject(context.Background(), "/search/?type=Lab", DBRequest())
	if gotQuery != "type=Lab&datastore=database" {
		t.Errorf("expected the datastore parameter appended, got %q", gotQuery)
	}
}

func TestGetObjectByURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, "http://unused.invalid")

	result := client.GetObjectByURL(context.Background(), server.URL+"/external/thing")
	if !result.IsOk() {
		t.Fatalf("expected Ok, got %v", result.UnwrapErr())
	}
}

func TestGetCollectionPath(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		_, _ = w.Write([]byte(`{"@graph":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	client.GetCollection(context.Background(), "labs")
	if gotURL != "/labs/?limit=all" {
		t.Errorf("expected /labs/?limit=all, got %q", gotURL)
	}
}

func TestPostObjectRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "echo": payload["name"]})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	response := client.PostObject(context.Background(), "/labs/", map[string]any{"name": "lab-y"})
	if response["echo"] != "lab-y" {
		t.Errorf("expected the payload echoed back, got %v", response)
	}
	if !IsResponseSuccess(response) {
		t.Error("expected a success response")
	}
}

func TestWriteReturnsErrorBodyVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"@type":["ValidationFailure","Error"],"status":"error","code":422,"title":"Unprocessable Entity","description":"bad field"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	response := client.PatchObject(context.Background(), "/labs/lab-x/", map[string]any{"title": 1})
	if IsResponseSuccess(response) {
		t.Error("expected the error body to read as a failure")
	}
	if got, ok := response["code"].(float64); !ok || got != 422 {
		t.Errorf("expected the upstream 422 body passed through, got %v", response)
	}
}

func TestWriteNetworkFailureShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)

	response := client.PutObject(context.Background(), "/labs/lab-x/", map[string]any{"title": "x"})
	if IsResponseSuccess(response) {
		t.Error("expected the network error object to read as a failure")
	}
	if got, ok := response["code"].(float64); !ok || got != 503 {
		t.Errorf("expected the synthesized 503 shape, got %v", response)
	}
}

func TestIsResponseSuccess(t *testing.T) {
	tests := []struct {
		name     string
		response DataObject
		want     bool
	}{
		{"plain object", DataObject{"@id": "/labs/x/"}, true},
		{"isError flag", DataObject{"isError": true}, false},
		{"error type tag", DataObject{"@type": []any{"HTTPNotFound", "Error"}}, false},
		{"non-error type tag", DataObject{"@type": []any{"Lab", "Item"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsResponseSuccess(tt.response); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClientMetricsIsolatedRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry(registry)
	client := newTestClient(t, server.URL, WithMetricsCollector(collector))

	client.GetObject(context.Background(), "/labs/lab-x/")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "igvf_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected igvf_requests_total to be registered and populated")
	}
}

func TestEndpointFromURL(t *testing.T) {
	if got := endpointFromURL("https://api.example.org/labs/lab-x/?frame=object"); got != "api.example.org/labs/lab-x/" {
		t.Errorf("unexpected endpoint %q", got)
	}
	if got := endpointFromURL("https://api.example.org"); got != "api.example.org/" {
		t.Errorf("unexpected endpoint %q", got)
	}
}
