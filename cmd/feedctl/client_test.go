package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFeed_SendsPagingAndSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/u1/feed", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "s1", r.Header.Get("X-Session-Id"))
		_, _ = w.Write([]byte(`{"items":[],"page":2}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, runFeed(newClient(srv.URL), "u1", 2, 5, "s1", &out))
	assert.Contains(t, out.String(), `"page": 2`)
}

func TestRunFeed_RequiresUser(t *testing.T) {
	err := runFeed(newClient("http://unused"), "", 1, 0, "", &bytes.Buffer{})
	require.Error(t, err)
}

func TestRunTrack_PostsInteraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/u1/interactions", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"contentId": "c1", "kind": "like", "sessionId": "s9"}, body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, runTrack(newClient(srv.URL), "u1", "c1", "like", "s9", &out))
	assert.Contains(t, out.String(), "accepted")
}

func TestRunTrack_RejectsUnknownKindLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	err := runTrack(newClient(srv.URL), "u1", "c1", "poke", "", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reshare")
	assert.False(t, called)
}

func TestRunProfile_RebuildAndErrors(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/users/missing/profile" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"userId":"u1"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	require.NoError(t, runProfile(c, "u1", true, &bytes.Buffer{}))
	require.NoError(t, runProfile(c, "u1", false, &bytes.Buffer{}))

	err := runProfile(c, "missing", false, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 404")

	assert.Equal(t, []string{
		"POST /api/users/u1/profile/rebuild",
		"GET /api/users/u1/profile",
		"GET /api/users/missing/profile",
	}, paths)
}
