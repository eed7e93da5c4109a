package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestFetchMetadataSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/left-pad", req.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"left-pad","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"version":"1.0.0","tarball":"t","hash":"h"}}}`))
	}))
	defer ts.Close()

	c := New(Opts{BaseURL: ts.URL, Timeout: 5 * time.Second}, hclog.NewNullLogger())
	md, err := c.FetchMetadata(context.Background(), "left-pad")
	assert.NoError(t, err)
	assert.Equal(t, "left-pad", md.Name)
	assert.Equal(t, "1.0.0", md.Versions["1.0.0"].Version)
}

func TestFetchMetadataDoesNotRetryOn404(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := New(Opts{BaseURL: ts.URL, Timeout: 5 * time.Second}, hclog.NewNullLogger())
	_, err := c.FetchMetadata(context.Background(), "missing-package")
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestFetchMetadataRetriesOn500(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"name":"flaky","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"version":"1.0.0","tarball":"t","hash":"h"}}}`))
	}))
	defer ts.Close()

	c := New(Opts{BaseURL: ts.URL, Timeout: 5 * time.Second}, hclog.NewNullLogger())
	md, err := c.FetchMetadata(context.Background(), "flaky")
	assert.NoError(t, err)
	assert.Equal(t, "flaky", md.Name)
	assert.Equal(t, true, attempts >= 2)
}

func TestFetchArchiveReturnsRawBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("fake tarball bytes"))
	}))
	defer ts.Close()

	c := New(Opts{BaseURL: ts.URL, Timeout: 5 * time.Second}, hclog.NewNullLogger())
	data, err := c.FetchArchive(context.Background(), "left-pad", ts.URL+"/left-pad-1.0.0.tgz")
	assert.NoError(t, err)
	assert.Equal(t, "fake tarball bytes", string(data))
}

func TestMetadataLatestMissingTagIsError(t *testing.T) {
	md := &Metadata{Name: "x", Versions: map[string]VersionRecord{}}
	_, err := md.Latest()
	assert.Equal(t, ErrNoLatestTag, err)
}
