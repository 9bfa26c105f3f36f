package feed

import (
	"testing"

	"github.com/stretchr/testify/require"

	"topfeed/internal/infrastructure/websocket"
)

func TestBuiltinKindsRegistered(t *testing.T) {
	require.Equal(t, []string{"holders", "traders"}, Kinds())

	factory, ok := Get("traders")
	require.True(t, ok)

	f := factory("ws://127.0.0.1:1/", websocket.DefaultOptions())
	defer f.Close()
	require.Equal(t, "traders", f.Name())

	snap := f.Snapshot()
	require.Equal(t, "idle", snap.Status)
	require.False(t, snap.IsConnected)
	require.Empty(t, snap.Items)
}

func TestGetUnknownKind(t *testing.T) {
	_, ok := Get("whales")
	require.False(t, ok)
}

func TestEndpoint(t *testing.T) {
	require.Equal(t, "ws://34.107.31.9/ws/new/top-holders", Endpoint("ws://34.107.31.9/", "/ws/new/top-holders"))
	require.Equal(t, "wss://feed.example/ws/new/top-traders", Endpoint(" wss://feed.example ", "/ws/new/top-traders"))
}
