package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Connect_Later_Connection_Overwrites(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()

	// Given a connected user
	registry.Connect(userID, "c1")
	req.Equal("c1", registry.ConnectionFor(userID))

	// When the same user connects again
	registry.Connect(userID, "c2")

	// Then the later connection wins
	req.Equal("c2", registry.ConnectionFor(userID))
	req.True(registry.IsOnline(userID))

	// And the stale connection no longer resolves to the user
	req.Empty(registry.Disconnect("c1"))
	req.True(registry.IsOnline(userID))
}

func TestRegistry_Disconnect_Returns_Owning_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()

	registry.Connect(userID, "c1")

	// When the connection goes away
	req.Equal(userID, registry.Disconnect("c1"))

	// Then the user is offline
	req.False(registry.IsOnline(userID))
	req.Empty(registry.ConnectionFor(userID))
	req.Empty(registry.OnlineUsers())
}

func TestRegistry_Disconnect_Unknown_Connection_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Connect("alice", "c1")

	// When an unknown connection disconnects
	req.Empty(registry.Disconnect("no-such-connection"))

	// Then registry state is unchanged
	req.True(registry.IsOnline("alice"))

	// And a second disconnect of the same connection returns empty
	req.Equal("alice", registry.Disconnect("c1"))
	req.Empty(registry.Disconnect("c1"))
}

func TestRegistry_JoinChannel_And_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.JoinChannel("g1", "alice")
	registry.JoinChannel("g1", "bob")
	registry.JoinChannel("g1", "alice") // idempotent

	req.ElementsMatch([]string{"alice", "bob"}, registry.Subscribers("g1"))
	req.Nil(registry.Subscribers("g2"))
}

func TestRegistry_LeaveChannel_Last_Subscriber_Drops_The_Set(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.JoinChannel("g1", "alice")
	registry.LeaveChannel("g1", "alice")
	registry.LeaveChannel("g1", "alice") // idempotent no-op

	req.Nil(registry.Subscribers("g1"))

	// Leaving a channel that never existed is fine too
	registry.LeaveChannel("g2", "alice")
}

func TestRegistry_Concurrent_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	const sessions = 100

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			connID := fmt.Sprintf("conn-%d", i)
			registry.Connect(userID, connID)
			registry.JoinChannel("g1", userID)
			if i%2 == 0 {
				registry.LeaveChannel("g1", userID)
				registry.Disconnect(connID)
			}
		}(i)
	}
	wg.Wait()

	req.Len(registry.OnlineUsers(), sessions/2)
	req.Len(registry.Subscribers("g1"), sessions/2)
}
