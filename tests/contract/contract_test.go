// Package contract validates API responses against the OpenAPI document.
//
// By default the router is served in-process over an embedded store. Set
// API_BASE_URL to run the same checks against a deployed instance.
package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/eventide/rsvp/internal/handler"
	"github.com/eventide/rsvp/internal/metrics"
	"github.com/eventide/rsvp/internal/repository"
	"github.com/eventide/rsvp/internal/service"
)

// testConfig holds test configuration.
type testConfig struct {
	BaseURL  string
	SpecPath string
}

// getConfig returns test configuration, starting an in-process server when
// API_BASE_URL is not set.
func getConfig(t *testing.T) *testConfig {
	t.Helper()

	specPath := os.Getenv("OPENAPI_SPEC_PATH")
	if specPath == "" {
		wd, _ := os.Getwd()
		specPath = filepath.Join(wd, "..", "..", "docs", "api", "openapi.yaml")
	}

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = startLocalServer(t)
	}

	return &testConfig{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		SpecPath: specPath,
	}
}

func startLocalServer(t *testing.T) string {
	t.Helper()

	store, err := repository.NewBoltRepository(filepath.Join(t.TempDir(), "contract.db"))
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()
	svc := service.NewRSVPService(store, nil, nil, recorder, logger)

	srv := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
		Logger:        logger,
		RSVP:          handler.NewRSVPHandler(svc, logger),
		Health:        handler.NewHealthHandler("bolt", store, nil),
		Metrics:       handler.NewMetricsHandler(recorder),
		MaxBodySize:   4096,
		IsDevelopment: true,
	}))
	t.Cleanup(srv.Close)

	return srv.URL
}

// loadSpec loads and validates the OpenAPI spec.
func loadSpec(t *testing.T, path string) (*openapi3.T, routers.Router) {
	t.Helper()

	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load OpenAPI document from %s: %v", path, err)
	}

	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI document validation failed: %v", err)
	}

	router, err := gorillamux.NewRouter(spec)
	if err != nil {
		t.Fatalf("Failed to create router from OpenAPI document: %v", err)
	}

	return spec, router
}

// exchange performs a request, validates request and response against the
// spec, and returns the status and body.
func exchange(t *testing.T, router routers.Router, method, target string, body []byte) (int, []byte) {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	route, pathParams, err := router.FindRoute(req)
	if err != nil {
		t.Fatalf("Could not find documented route for %s %s: %v", method, target, err)
	}

	requestInput := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options:    &openapi3filter.Options{IncludeResponseStatus: true},
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Skipf("Server not available: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: requestInput,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(respBody)),
		Options:                &openapi3filter.Options{IncludeResponseStatus: true},
	})
	if err != nil {
		t.Errorf("Response validation failed for %s %s (%d): %v\nBody: %s", method, target, resp.StatusCode, err, respBody)
	}

	return resp.StatusCode, respBody
}

// TestOpenAPISpecValid ensures the OpenAPI document is valid.
func TestOpenAPISpecValid(t *testing.T) {
	wd, _ := os.Getwd()
	_, _ = loadSpec(t, filepath.Join(wd, "..", "..", "docs", "api", "openapi.yaml"))
}

// TestDocumentedPaths verifies the document covers every served route.
func TestDocumentedPaths(t *testing.T) {
	cfg := getConfig(t)
	spec, _ := loadSpec(t, cfg.SpecPath)

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics", "/api/v1/rsvps"} {
		if spec.Paths.Find(path) == nil {
			t.Errorf("Expected path %s not documented", path)
		}
	}
}

// TestOpsEndpoints validates the operational endpoints.
func TestOpsEndpoints(t *testing.T) {
	cfg := getConfig(t)
	_, router := loadSpec(t, cfg.SpecPath)

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			status, _ := exchange(t, router, http.MethodGet, cfg.BaseURL+path, nil)
			if status == http.StatusNotFound {
				t.Errorf("GET %s returned 404", path)
			}
		})
	}
}

// TestRSVPLifecycle submits an RSVP, looks it up and checks every documented
// failure response.
func TestRSVPLifecycle(t *testing.T) {
	cfg := getConfig(t)
	_, router := loadSpec(t, cfg.SpecPath)

	email := fmt.Sprintf("contract-%d@example.com", time.Now().UnixNano())
	rsvpURL := cfg.BaseURL + "/api/v1/rsvps"
	lookupURL := func(e string) string { return rsvpURL + "?email=" + url.QueryEscape(e) }

	t.Run("create", func(t *testing.T) {
		status, body := exchange(t, router, http.MethodPost, rsvpURL,
			[]byte(`{"name":"Contract Guest","email":"`+email+`","special_requests":null}`))
		if status != http.StatusCreated {
			t.Fatalf("status = %d, want 201; body %s", status, body)
		}

		var resp struct {
			Success bool `json:"success"`
			RSVP    struct {
				ID string `json:"id"`
			} `json:"rsvp"`
		}
		if err := json.Unmarshal(body, &resp); err != nil || !resp.Success || resp.RSVP.ID == "" {
			t.Errorf("unexpected body %s (err %v)", body, err)
		}
	})

	t.Run("lookup", func(t *testing.T) {
		status, body := exchange(t, router, http.MethodGet, lookupURL(email), nil)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", status, body)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		status, _ := exchange(t, router, http.MethodPost, rsvpURL,
			[]byte(`{"name":"Someone Else","email":"`+email+`"}`))
		if status != http.StatusConflict {
			t.Errorf("status = %d, want 409", status)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		status, _ := exchange(t, router, http.MethodPost, rsvpURL, []byte(`{"name":"J","email":"nope"}`))
		if status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		status, _ := exchange(t, router, http.MethodPost, rsvpURL, []byte(`{"name":`))
		if status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("not found", func(t *testing.T) {
		status, _ := exchange(t, router, http.MethodGet, lookupURL("nobody@nowhere.com"), nil)
		if status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", status)
		}
	})

	t.Run("case sensitive", func(t *testing.T) {
		status, _ := exchange(t, router, http.MethodGet, lookupURL(strings.ToUpper(email)), nil)
		if status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", status)
		}
	})
}
