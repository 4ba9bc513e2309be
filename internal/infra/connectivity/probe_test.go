package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProbeReportsReachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	probe := NewProbe(server.URL, 0, 0)
	require.True(t, probe.Online(context.Background()))
}

func TestProbeReportsUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	probe := NewProbe(server.URL, 0, 0)
	require.False(t, probe.Online(context.Background()))
}

func TestProbeDoesNotBlockCallersDuringCheck(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
	}))
	defer server.Close()

	probe := NewProbe(server.URL, time.Minute, time.Minute)

	done := make(chan bool, 1)
	go func() { done <- probe.Online(context.Background()) }()
	<-entered

	// While the first check is in flight, callers get the last known state
	// instead of waiting on the network.
	require.False(t, probe.Online(context.Background()))

	close(release)
	require.True(t, <-done)
	require.True(t, probe.Online(context.Background()))
}

func TestProbeCachesResultWithinTTL(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe := NewProbe(server.URL, 0, time.Minute)
	frozen := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	probe.now = func() time.Time { return frozen }

	require.True(t, probe.Online(context.Background()))
	require.True(t, probe.Online(context.Background()))
	require.Equal(t, int32(1), hits.Load())

	// Past the TTL the probe goes to the network again.
	probe.now = func() time.Time { return frozen.Add(2 * time.Minute) }
	require.True(t, probe.Online(context.Background()))
	require.Equal(t, int32(2), hits.Load())
}
