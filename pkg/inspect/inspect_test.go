package inspect

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-loom/loom/pkg/core"
)

func testSources() Sources {
	return Sources{
		RootID: func() string { return "root-1" },
		Snapshot: func() core.NodeSnapshot {
			return core.NodeSnapshot{
				Kind: "root",
				Children: []core.NodeSnapshot{
					{Kind: "element", Tag: "panel"},
				},
			}
		},
		Stats: func() core.Stats { return core.Stats{Flushes: 3, Rebuilds: 7} },
	}
}

func startServer(t *testing.T, src Sources) (*Server, string) {
	t.Helper()
	srv := New(src)
	addr, err := srv.Start("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, addr
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthEndpoint(t *testing.T) {
	_, addr := startServer(t, testSources())

	status, body := get(t, "http://"+addr+"/health")
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		Status string `json:"status"`
		Root   string `json:"root"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, "root-1", payload.Root)
}

func TestTreeEndpointReturnsSnapshot(t *testing.T) {
	_, addr := startServer(t, testSources())

	status, body := get(t, "http://"+addr+"/tree")
	require.Equal(t, http.StatusOK, status)

	var snap core.NodeSnapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	require.Len(t, snap.Children, 1)
	assert.Equal(t, "panel", snap.Children[0].Tag)
}

func TestStatsEndpoint(t *testing.T) {
	_, addr := startServer(t, testSources())

	status, body := get(t, "http://"+addr+"/stats")
	require.Equal(t, http.StatusOK, status)

	var stats core.Stats
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	assert.Equal(t, 3, stats.Flushes)
	assert.Equal(t, 7, stats.Rebuilds)
}

func TestMethodNotAllowed(t *testing.T) {
	_, addr := startServer(t, testSources())

	resp, err := http.Post("http://"+addr+"/tree", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMissingSourcesAreServiceUnavailable(t *testing.T) {
	_, addr := startServer(t, Sources{})

	status, _ := get(t, "http://"+addr+"/tree")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = get(t, "http://"+addr+"/stats")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestStartTwiceKeepsAddress(t *testing.T) {
	srv, addr := startServer(t, testSources())

	again, err := srv.Start("127.0.0.1:0")
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Equal(t, addr, srv.Addr())
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, addr := startServer(t, testSources())

	srv.Close()
	srv.Close()
	assert.Empty(t, srv.Addr())

	_, err := http.Get("http://" + addr + "/health")
	assert.Error(t, err)
}
