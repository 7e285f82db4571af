package remote

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherReturnsResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"sierra_program":["0x1"],"abi":"[]","entry_points_by_type":{}}}`))
	}))
	defer server.Close()

	f := &HTTPFetcher{Endpoints: map[Network]string{NetworkMainnet: server.URL}}
	data, err := f.Fetch(context.Background(), "0xdeadbeef", NetworkMainnet)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sierra_program")
}

func TestHTTPFetcherSurfacesRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":24,"message":"Class hash not found"}}`))
	}))
	defer server.Close()

	f := &HTTPFetcher{Endpoints: map[Network]string{NetworkMainnet: server.URL}}
	_, err := f.Fetch(context.Background(), "0xnotfound", NetworkMainnet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Class hash not found")
}

func TestHTTPFetcherRequiresEndpoint(t *testing.T) {
	os.Unsetenv(EnvRPCURL)
	f := NewHTTPFetcher()
	_, err := f.Fetch(context.Background(), "0x1", NetworkSepolia)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvRPCURL)
}

func TestHTTPFetcherPrefersEnvOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`))
	}))
	defer server.Close()

	require.NoError(t, os.Setenv(EnvRPCURL, server.URL))
	defer os.Unsetenv(EnvRPCURL)

	f := &HTTPFetcher{Endpoints: map[Network]string{NetworkMainnet: "http://unused.invalid"}}
	data, err := f.Fetch(context.Background(), "0x1", NetworkMainnet)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ok")
}

func TestLocateScarbArtifactFindsSingleFile(t *testing.T) {
	dir := t.TempDir()
	devDir := filepath.Join(dir, "target", "dev")
	require.NoError(t, os.MkdirAll(devDir, 0o755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(devDir, "my_contract.sierra"), []byte("// sierra"), 0o644))

	path, err := LocateScarbArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(devDir, "my_contract.sierra"), path)
}

func TestLocateScarbArtifactRejectsAmbiguity(t *testing.T) {
	dir := t.TempDir()
	devDir := filepath.Join(dir, "target", "dev")
	require.NoError(t, os.MkdirAll(devDir, 0o755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(devDir, "a.sierra"), []byte("// a"), 0o644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(devDir, "b.sierra"), []byte("// b"), 0o644))

	_, err := LocateScarbArtifact(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple")
}

func TestLocateScarbArtifactReportsMissingDir(t *testing.T) {
	dir := t.TempDir()
	_, err := LocateScarbArtifact(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no compiled Sierra file")
}

func TestReadScarbArtifactReadsFile(t *testing.T) {
	dir := t.TempDir()
	devDir := filepath.Join(dir, "target", "dev")
	require.NoError(t, os.MkdirAll(devDir, 0o755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(devDir, "c.sierra"), []byte("// hi"), 0o644))

	data, err := ReadScarbArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, "// hi", string(data))
}
