package net

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"CrayonBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sceneOf(t *testing.T, n int) *state.Scene {
	t.Helper()
	s := state.NewScene()
	for i := range n {
		s.Add(state.NewText(fmt.Sprintf("note %d", i), "#000000"))
	}
	return s
}

func snapshot(t *testing.T, s *state.Scene) state.Snapshot {
	t.Helper()
	snap, err := s.Snapshot()
	require.NoError(t, err)
	return snap
}

func serve(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)
	return hub, srv.URL
}

func socket(url string) string { return "ws" + strings.TrimPrefix(url, "http") + "/ws" }

func TestShareLink(t *testing.T) {
	link := ShareLink("10.0.0.2", DefaultPort)
	assert.Equal(t, "crayonboard://10.0.0.2:8888", link)
	addr, err := ParseShareLink(link + "/")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:8888", addr)
	assert.Equal(t, "ws://10.0.0.2:8888/ws", SocketURL(addr))
	assert.Equal(t, link, Board{Addr: addr}.Link())

	for _, bad := range []string{"http://10.0.0.2:8888", "crayonboard://10.0.0.2", "crayonboard://:80", "crayonboard://h:99999"} {
		_, err := ParseShareLink(bad)
		assert.ErrorIs(t, err, ErrBadLink, bad)
	}
}

func TestMirrorFollowsNewerSnapshots(t *testing.T) {
	hub, url := serve(t)
	host := sceneOf(t, 3)
	require.NoError(t, hub.Broadcast(snapshot(t, host)))

	viewer := state.NewScene()
	var updates atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- Follow(ctx, socket(url), viewer, func(uint64) { updates.Add(1) })
	}()

	require.Eventually(t, func() bool { return viewer.Len() == 3 }, 2*time.Second, 10*time.Millisecond)

	stale := sceneOf(t, 1)
	require.NoError(t, hub.Broadcast(snapshot(t, stale)))
	host.Add(state.NewText("late", "#000000"))
	require.NoError(t, hub.Broadcast(snapshot(t, host)))

	require.Eventually(t, func() bool { return viewer.Len() == 4 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), updates.Load())
	assert.Equal(t, host.Revision(), viewer.Revision())

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not return after cancel")
	}
	assert.Eventually(t, func() bool { return hub.Viewers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubClose(t *testing.T) {
	hub, url := serve(t)
	viewer := state.NewScene()
	errc := make(chan error, 1)
	go func() { errc <- Follow(context.Background(), socket(url), viewer, nil) }()
	require.Eventually(t, func() bool { return hub.Viewers() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not return after host closed")
	}
	assert.ErrorIs(t, hub.Broadcast(snapshot(t, viewer)), ErrHubClosed)
}

func TestHubSceneEndpoint(t *testing.T) {
	hub, url := serve(t)

	resp, err := http.Get(url + "/scene")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	snap := snapshot(t, sceneOf(t, 2))
	require.NoError(t, hub.Broadcast(snap))
	resp, err = http.Get(url + "/scene")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, string(snap), string(body))
}

func TestBroadcastRejectsCorruptSnapshot(t *testing.T) {
	hub := NewHub()
	assert.ErrorIs(t, hub.Broadcast(state.Snapshot("{")), state.ErrCorruptSnapshot)
}

func TestFollowUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := Follow(ctx, "ws://127.0.0.1:1/ws", state.NewScene(), nil)
	assert.Error(t, err)
}
