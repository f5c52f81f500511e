package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"MiniCatalog/internal/catalog"
)

const testDoc = `[
  {"id": 1, "name": "Item One", "price": 10, "category": "Tools"},
  {"id": 2, "name": "Item Two", "price": 20},
  {"id": 3, "name": "Test Product", "price": 30, "sku": "TP-3"}
]`

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(testDoc), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "catalogctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"list", "get", "add", "stats"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "Command %s should exist", name)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	t.Setenv("DATA_PATH", "/srv/catalog/items.json")
	cmd := NewRootCommand()

	dataFlag := cmd.PersistentFlags().Lookup("data")
	require.NotNil(t, dataFlag)
	assert.Equal(t, "/srv/catalog/items.json", dataFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestListCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	listCmd, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)

	for flag, def := range map[string]string{"q": "", "page": "1", "page-size": "50", "limit": ""} {
		f := listCmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, def, f.DefValue, flag)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, "--data", writeDoc(t), "--format", "xml", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestList_Text(t *testing.T) {
	out, err := run(t, "--data", writeDoc(t), "list", "--page-size", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Item One")
	assert.Contains(t, out, "Item Two")
	assert.NotContains(t, out, "Test Product")
	assert.Contains(t, out, "page 1/2 (3 items, 2 per page)")
}

func TestList_JSONSearch(t *testing.T) {
	out, err := run(t, "--data", writeDoc(t), "--format", "json", "list", "-q", "test")
	require.NoError(t, err)

	var res struct {
		Data       []map[string]any `json:"data"`
		Pagination map[string]int   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Test Product", res.Data[0]["name"])
	assert.Equal(t, "TP-3", res.Data[0]["sku"])
	assert.Equal(t, 1, res.Pagination["total"])
}

func TestList_Limit(t *testing.T) {
	out, err := run(t, "--data", writeDoc(t), "--format", "json", "list", "--limit", "1")
	require.NoError(t, err)

	var res struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Data, 1)
}

func TestGet(t *testing.T) {
	path := writeDoc(t)

	out, err := run(t, "--data", path, "get", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Product")
	assert.Contains(t, out, `sku:`)

	_, err = run(t, "--data", path, "get", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item not found")
}

func TestGet_YAML(t *testing.T) {
	out, err := run(t, "--data", writeDoc(t), "--format", "yaml", "get", "1")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Item One", got["name"])
	assert.Equal(t, "Tools", got["category"])
	assert.Equal(t, 10, got["price"])
}

func TestAdd(t *testing.T) {
	path := writeDoc(t)

	out, err := run(t, "--data", path, "--format", "json", "add", "--name", "Lamp", "--price", "12.5", "--category", "Lighting")
	require.NoError(t, err)

	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "Lamp", created["name"])
	assert.Equal(t, 12.5, created["price"])
	assert.Greater(t, created["id"].(float64), 3.0)

	out, err = run(t, "--data", path, "--format", "json", "stats")
	require.NoError(t, err)
	var snap map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 4.0, snap["total"])
}

func TestAdd_Validation(t *testing.T) {
	path := writeDoc(t)

	_, err := run(t, "--data", path, "add", "--price", "5")
	require.Error(t, err)
	assert.Equal(t, "Invalid item: name is required", err.Error())

	_, err = run(t, "--data", path, "add", "--name", "Lamp", "--price", "cheap")
	require.Error(t, err)
	assert.Equal(t, "Invalid item: price must be a number", err.Error())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testDoc, string(raw), "rejected items must not touch the document")
}

func TestStats_Text(t *testing.T) {
	out, err := run(t, "--data", writeDoc(t), "stats")
	require.NoError(t, err)
	assert.Equal(t, "total: 3\naverage price: 20.00\n", out)
}

func TestStats_MissingDocument(t *testing.T) {
	out, err := run(t, "--data", filepath.Join(t.TempDir(), "none.json"), "stats")
	require.NoError(t, err)
	assert.Equal(t, "total: 0\naverage price: 0.00\n", out)
}

func TestRemoteServer(t *testing.T) {
	path := writeDoc(t)
	s := &catalog.Server{Store: catalog.NewFileStore(path)}
	ts := httptest.NewServer(catalog.NewHandler(s, catalog.HTTPDeps{Log: zap.NewNop(), Service: "catalog"}))
	defer ts.Close()

	out, err := run(t, "--server", ts.URL, "--format", "json", "add", "--name", "Remote Lamp", "--price", "4")
	require.NoError(t, err)
	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "Remote Lamp", created["name"])

	// the service wrote the document the local backend reads
	out, err = run(t, "--data", path, "list", "-q", "remote")
	require.NoError(t, err)
	assert.Contains(t, out, "Remote Lamp")

	_, err = run(t, "--server", ts.URL, "add", "--price", "4")
	require.Error(t, err)
	assert.Equal(t, "Invalid item: name is required", err.Error())

	_, err = run(t, "--server", ts.URL, "get", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrItemNotFound)

	out, err = run(t, "--server", ts.URL, "--format", "yaml", "stats")
	require.NoError(t, err)
	var snap map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 4, snap["total"])
	assert.Equal(t, false, snap["fromCache"])
}
