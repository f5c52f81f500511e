//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8082")

type itemsPage struct {
	Data       []map[string]any `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		PageSize   int `json:"pageSize"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

type statsBody struct {
	Total        int     `json:"total"`
	AveragePrice float64 `json:"averagePrice"`
	FromCache    bool    `json:"fromCache"`
}

func TestSystem_E2E_Catalog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var before itemsPage
	doJSON(t, http.MethodGet, baseURL+"/api/items?pageSize=1000", nil, &before, 200)

	name := fmt.Sprintf("e2e item %d-%d", time.Now().Unix(), rand.Intn(100000))

	var created map[string]any
	doJSON(t, http.MethodPost, baseURL+"/api/items", map[string]any{
		"name":     name,
		"price":    12.5,
		"category": "E2E",
	}, &created, 201)

	id, ok := created["id"].(float64)
	if !ok {
		t.Fatalf("id missing in response: %#v", created)
	}
	itemURL := baseURL + "/api/items/" + strconv.FormatInt(int64(id), 10)

	var got map[string]any
	doJSON(t, http.MethodGet, itemURL, nil, &got, 200)
	if got["name"] != name {
		t.Fatalf("name=%v want %q", got["name"], name)
	}

	var found itemsPage
	doJSON(t, http.MethodGet, baseURL+"/api/items?q="+url.QueryEscape(name), nil, &found, 200)
	if found.Pagination.Total != 1 {
		t.Fatalf("search for %q: total=%d want 1", name, found.Pagination.Total)
	}

	doJSON(t, http.MethodPost, baseURL+"/api/items", map[string]any{"price": 1}, nil, 400)
	doJSON(t, http.MethodGet, baseURL+"/api/items/abc", nil, nil, 404)

	var s1, s2 statsBody
	doJSON(t, http.MethodGet, baseURL+"/api/stats", nil, &s1, 200)
	doJSON(t, http.MethodGet, baseURL+"/api/stats", nil, &s2, 200)
	if !s2.FromCache {
		t.Fatalf("second stats call was not served from cache")
	}
	if s1.Total != before.Pagination.Total+1 {
		t.Fatalf("stats total=%d want %d", s1.Total, before.Pagination.Total+1)
	}

	if os.Getenv("E2E_RESTART_CATALOG") == "1" {
		restartCatalogContainer(t, ctx)
		waitReady(t, ctx, baseURL+"/readyz")
		doJSON(t, http.MethodGet, itemURL, nil, &got, 200)

		var s3 statsBody
		doJSON(t, http.MethodGet, baseURL+"/api/stats", nil, &s3, 200)
		if s3.FromCache {
			t.Fatalf("stats cache survived a restart")
		}
	}
}

func waitReady(t *testing.T, ctx context.Context, target string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", target)
}

func doJSON(t *testing.T, method, target string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, target, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, target, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
