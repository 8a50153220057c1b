package transport

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"converse/errors"
)

func testClient(id, userID string) *Client {
	return &Client{ID: id, UserID: userID, send: make(chan []byte, 4), log: slog.Default()}
}

func drainFrame(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case data := <-c.send:
		var frame Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	default:
		t.Fatal("no frame queued")
		return Frame{}
	}
}

func TestUnicast_DeliversToOneConnection(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default())
	alice := testClient("conn-a", "alice")
	bob := testClient("conn-b", "bob")
	hub.Register(alice)
	hub.Register(bob)

	req.NoError(hub.Unicast("conn-a", EventReceiveMessage, map[string]string{"content": "hi"}))

	frame := drainFrame(t, alice)
	req.Equal(EventReceiveMessage, frame.Event)
	req.Empty(bob.send)
}

func TestUnicast_UnknownConnection(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default())

	err := hub.Unicast("ghost", EventReceiveMessage, nil)

	req.ErrorIs(err, errors.ErrConnectionGone)
}

func TestUnicast_FullBufferDropsSilently(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default())
	slow := &Client{ID: "conn-s", UserID: "slow", send: make(chan []byte), log: slog.Default()}
	hub.Register(slow)

	// Unbuffered channel with no reader: the push is dropped, not an error
	req.NoError(hub.Unicast("conn-s", EventReceiveMessage, nil))
}

func TestBroadcast_ReachesOnlySubscribers(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default())
	alice := testClient("conn-a", "alice")
	bob := testClient("conn-b", "bob")
	carol := testClient("conn-c", "carol")
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)
	hub.AddSubscriber("conn-a", "g1")
	hub.AddSubscriber("conn-b", "g1")

	req.NoError(hub.Broadcast("g1", EventReceiveGroupMessage, map[string]string{"content": "yo"}))

	req.Equal(EventReceiveGroupMessage, drainFrame(t, alice).Event)
	req.Equal(EventReceiveGroupMessage, drainFrame(t, bob).Event)
	req.Empty(carol.send)
}

func TestUnregister_RemovesChannelSubscriptions(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default())
	alice := testClient("conn-a", "alice")
	hub.Register(alice)
	hub.AddSubscriber("conn-a", "g1")

	hub.Unregister("conn-a")

	req.NoError(hub.Broadcast("g1", EventReceiveGroupMessage, nil))
	req.Empty(alice.send)
	req.ErrorIs(hub.Unicast("conn-a", EventReceiveMessage, nil), errors.ErrConnectionGone)
}

func TestRemoveSubscriber_LastLeaverDropsChannel(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default())
	alice := testClient("conn-a", "alice")
	hub.Register(alice)
	hub.AddSubscriber("conn-a", "g1")

	hub.RemoveSubscriber("conn-a", "g1")

	hub.mu.RLock()
	_, ok := hub.channels["g1"]
	hub.mu.RUnlock()
	req.False(ok)
}
