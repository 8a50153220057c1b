package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"converse/auth"
	"converse/domain"
	"converse/errors"
	"converse/presence"
	"converse/repositories"
)

type sendCall struct {
	senderID    string
	target      string
	content     string
	contentType domain.ContentType
}

type fakeChat struct {
	mu          sync.Mutex
	directCalls []sendCall
	groupCalls  []sendCall
	groupResult bool
	censor      func(string) string
}

func (f *fakeChat) SendDirect(ctx context.Context, senderID, receiverID, content string, contentType domain.ContentType) (domain.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directCalls = append(f.directCalls, sendCall{senderID: senderID, target: receiverID, content: content, contentType: contentType})
	return domain.NewDirectMessage(senderID, receiverID, content, contentType), true
}

// SendGroup hands back what a real pipeline would have persisted: the
// content after censoring, not the caller's raw input.
func (f *fakeChat) SendGroup(ctx context.Context, senderID, groupID, content string, contentType domain.ContentType) (domain.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCalls = append(f.groupCalls, sendCall{senderID: senderID, target: groupID, content: content, contentType: contentType})
	if !f.groupResult {
		return domain.Message{}, false
	}
	if f.censor != nil {
		content = f.censor(content)
	}
	return domain.NewGroupMessage(senderID, groupID, content, contentType), true
}

func (f *fakeChat) MarkRead(receiverID, senderID string) bool { return true }

func (f *fakeChat) History(userA, userB string) ([]domain.Message, error) { return nil, nil }
func (f *fakeChat) GroupHistory(groupID string) ([]domain.Message, error) { return nil, nil }
func (f *fakeChat) Unread(receiverID string) ([]domain.Message, error) { return nil, nil }

func (f *fakeChat) Search(ctx context.Context, callerID, rawQuery string) ([]repositories.SearchHit, error) {
	return nil, nil
}

func (f *fakeChat) groupCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.groupCalls)
}

func (f *fakeChat) lastGroupCall() sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groupCalls[len(f.groupCalls)-1]
}

type fakeGroups struct {
	groups map[string]domain.Group
	byUser map[string][]string
}

func (f *fakeGroups) CreateGroup(name, creatorID string) (domain.Group, error) {
	return domain.Group{}, nil
}
func (f *fakeGroups) DeleteGroup(groupID, callerID string) error            { return nil }
func (f *fakeGroups) AddMember(groupID, callerID, userID string) error { return nil }
func (f *fakeGroups) RemoveMember(groupID, callerID, userID string) error { return nil }
func (f *fakeGroups) PromoteAdmin(groupID, callerID, userID string) error { return nil }

func (f *fakeGroups) GetGroup(groupID string) (domain.Group, error) {
	group, ok := f.groups[groupID]
	if !ok {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	return group, nil
}

func (f *fakeGroups) UserGroups(userID string) ([]domain.Group, error) {
	var out []domain.Group
	for _, id := range f.byUser[userID] {
		if group, ok := f.groups[id]; ok {
			out = append(out, group)
		}
	}
	return out, nil
}

type sessionFixture struct {
	server   *httptest.Server
	registry *presence.Registry
	chat     *fakeChat
	groups   *fakeGroups
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		registry: presence.NewRegistry(),
		chat:     &fakeChat{groupResult: true},
		groups:   &fakeGroups{groups: map[string]domain.Group{}, byUser: map[string][]string{}},
	}
	log := slog.Default()
	session := NewSession(log, f.registry, NewHub(log), f.chat, f.groups)
	f.server = httptest.NewServer(session)
	t.Cleanup(f.server.Close)
	return f
}

func (f *sessionFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := auth.GenerateToken(userID, []string{"user"}, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Data: data}))
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestSession_RejectsMissingToken(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)

	resp, err := http.Get(f.server.URL)
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestSession_ConnectRegistersPresenceAndRejoinsGroups(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	group := domain.NewGroup("team", "alice")
	f.groups.groups[group.ID] = group
	f.groups.byUser["alice"] = []string{group.ID}

	conn := f.dial(t, "alice")

	req.Eventually(func() bool {
		return f.registry.IsOnline("alice") && len(f.registry.Subscribers(group.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Disconnect clears presence and channel membership
	conn.Close()
	req.Eventually(func() bool {
		return !f.registry.IsOnline("alice") && len(f.registry.Subscribers(group.ID)) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_GroupSendFansOutToSubscribers(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	group := domain.NewGroup("team", "alice")
	group.AddMember("bob")
	f.groups.groups[group.ID] = group
	f.groups.byUser["alice"] = []string{group.ID}
	f.groups.byUser["bob"] = []string{group.ID}

	alice := f.dial(t, "alice")
	bob := f.dial(t, "bob")
	req.Eventually(func() bool {
		return len(f.registry.Subscribers(group.ID)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	sendFrame(t, alice, EventSendToGroup, SendToGroupRequest{GroupID: group.ID, Content: "standup in 5"})

	// Both channel subscribers get the broadcast, sender included
	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		req.Equal(EventReceiveGroupMessage, frame.Event)
		req.Contains(string(frame.Data), "standup in 5")
	}
	req.Equal(1, f.chat.groupCallCount())
}

func TestSession_GroupBroadcastCarriesPersistedContent(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	f.chat.censor = func(content string) string {
		return strings.ReplaceAll(content, "badword", "*******")
	}
	group := domain.NewGroup("team", "alice")
	group.AddMember("bob")
	f.groups.groups[group.ID] = group
	f.groups.byUser["alice"] = []string{group.ID}
	f.groups.byUser["bob"] = []string{group.ID}

	alice := f.dial(t, "alice")
	bob := f.dial(t, "bob")
	req.Eventually(func() bool {
		return len(f.registry.Subscribers(group.ID)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// When the pipeline censors the message on the way to the store
	sendFrame(t, alice, EventSendToGroup, SendToGroupRequest{GroupID: group.ID, Content: "this is badword here"})

	// Then subscribers get the stored content, never the raw input
	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		req.Equal(EventReceiveGroupMessage, frame.Event)
		req.Contains(string(frame.Data), "this is ******* here")
		req.NotContains(string(frame.Data), "badword")
	}
}

func TestSession_JoinAndLeaveNotifyTheChannel(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	group := domain.NewGroup("team", "bob")
	group.AddMember("alice")
	f.groups.groups[group.ID] = group
	f.groups.byUser["bob"] = []string{group.ID}

	bob := f.dial(t, "bob")
	alice := f.dial(t, "alice")
	req.Eventually(func() bool {
		return f.registry.IsOnline("alice") && len(f.registry.Subscribers(group.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// When alice joins the channel, the others see an Info message that
	// also went through the persistence pipeline
	sendFrame(t, alice, EventJoinGroup, GroupRequest{GroupID: group.ID})

	frame := readFrame(t, bob)
	req.Equal(EventReceiveGroupMessage, frame.Event)
	req.Contains(string(frame.Data), "alice joined the conversation")
	req.Contains(string(frame.Data), string(domain.ContentInfo))
	req.Equal(1, f.chat.groupCallCount())
	req.Equal(domain.ContentInfo, f.chat.lastGroupCall().contentType)

	// And leaving announces itself the same way
	sendFrame(t, alice, EventLeaveGroup, GroupRequest{GroupID: group.ID})

	frame = readFrame(t, bob)
	req.Contains(string(frame.Data), "alice left the conversation")
	req.Equal(2, f.chat.groupCallCount())
	req.Eventually(func() bool {
		return len(f.registry.Subscribers(group.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_GroupSendRejectedMeansNoBroadcast(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	group := domain.NewGroup("team", "alice")
	f.groups.groups[group.ID] = group
	f.groups.byUser["alice"] = []string{group.ID}
	f.chat.groupResult = false

	alice := f.dial(t, "alice")
	req.Eventually(func() bool { return f.registry.IsOnline("alice") }, 2*time.Second, 10*time.Millisecond)

	sendFrame(t, alice, EventSendToGroup, SendToGroupRequest{GroupID: group.ID, Content: "dropped"})

	// The pipeline said no; nothing reaches the channel
	req.NoError(alice.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	var frame Frame
	req.Error(alice.ReadJSON(&frame))
}

func TestSession_OnlineUsersRoundTrip(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)

	alice := f.dial(t, "alice")
	req.Eventually(func() bool { return f.registry.IsOnline("alice") }, 2*time.Second, 10*time.Millisecond)

	sendFrame(t, alice, EventOnlineUsers, struct{}{})

	frame := readFrame(t, alice)
	req.Equal(EventOnlineUsers, frame.Event)
	req.Contains(string(frame.Data), "alice")
}

func TestSession_JoinRefusedForNonMember(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	group := domain.NewGroup("team", "bob")
	f.groups.groups[group.ID] = group

	alice := f.dial(t, "alice")
	req.Eventually(func() bool { return f.registry.IsOnline("alice") }, 2*time.Second, 10*time.Millisecond)

	sendFrame(t, alice, EventJoinGroup, GroupRequest{GroupID: group.ID})

	// Membership gate holds: alice never shows up as a subscriber
	time.Sleep(200 * time.Millisecond)
	req.Empty(f.registry.Subscribers(group.ID))
}
