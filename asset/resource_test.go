package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := NewResource(thisFile, nil)
	require.NoError(t, err)
	defer res.Close()

	assert.False(t, res.IsRemote())
	assert.Equal(t, res.Path(), res.RemotePath())
}

func TestStdinResource(t *testing.T) {
	res, err := NewResource(StdinName, nil)
	require.NoError(t, err)
	assert.Equal(t, StdinName, res.Path())
	assert.False(t, res.IsRemote())
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := NewResource(fetchUrl, nil)
	require.NoError(t, err)
	defer res.Close()
	assert.True(t, res.IsRemote())
	assert.Equal(t, filepath.Base(thisFile), res.RemotePath())

	fetchUrl = server.URL + "/file-not-found.foo"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = NewResource(fetchUrl, nil)
	assert.EqualError(t, err, expError)
}

func TestHttpResourceCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResourceContext(ctx, server.URL+"/scene.obj", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestRelativeResources(t *testing.T) {
	serverHits := 0
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		if r.URL.Path == "/foo/file1.go" {
			w.Write([]byte("OK"))
		} else if r.URL.Path == "/foo/file2.go" {
			w.Write([]byte("OK"))
		} else {
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res1, err := NewResource(server.URL+"/foo/file1.go", nil)
	require.NoError(t, err)
	defer res1.Close()
	res2, err := NewResource("file2.go", res1)
	require.NoError(t, err)
	defer res2.Close()

	assert.Equal(t, 2, serverHits)
}

func TestUnsupportedResourceScheme(t *testing.T) {
	_, err := NewResource("gopher://digging.go", nil)
	assert.EqualError(t, err, "resource: unsupported scheme 'gopher'")
}

func TestResourceConnectionRefusedError(t *testing.T) {
	_, err := NewResource("http://localhost:12345/foo.go", nil)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected to get 'connection refused error'; got %v", err)
	}
}

func TestResourceFromStream(t *testing.T) {
	res := NewResourceFromStream("embedded", strings.NewReader("payload"))
	data, err := io.ReadAll(res)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, "embedded", res.Path())
}
