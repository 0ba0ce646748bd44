package chathub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campuschat/internal/chathub"
	"campuschat/internal/models"
)

// MockClient stands in for a websocket connection. Frames sent to the user
// land in Recv for the test to inspect.
type MockClient struct {
	userID string
	Recv   chan models.Envelope
	Closed bool
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID: userID,
		Recv:   make(chan models.Envelope, 16),
	}
}

func (c *MockClient) GetUserID() string {
	return c.userID
}

func (c *MockClient) GetSendChannel() chan<- models.Envelope {
	return c.Recv
}

func (c *MockClient) Run() {}

func (c *MockClient) Close() {
	c.Closed = true
}

// nextFrame pops the client's next frame, failing the test after a short
// wait so a missing frame does not hang the suite.
func nextFrame(t *testing.T, c *MockClient) models.Envelope {
	t.Helper()
	select {
	case env := <-c.Recv:
		return env
	case <-time.After(time.Second):
		require.FailNow(t, "no frame received for "+c.userID)
		return models.Envelope{}
	}
}

// noFrame asserts the client's inbox is empty.
func noFrame(t *testing.T, c *MockClient) {
	t.Helper()
	select {
	case env := <-c.Recv:
		require.FailNow(t, "unexpected frame for "+c.userID+": "+env.Type)
	default:
	}
}

// joinFrame builds a join envelope for HandleFrame.
func joinFrame(t *testing.T, nickname, department string) models.Envelope {
	t.Helper()
	env, err := models.NewEnvelope(models.TypeJoin, models.JoinPayload{
		Nickname:   nickname,
		Department: department,
	})
	require.NoError(t, err)
	return env
}

// joinTwo registers and joins two users and consumes both partnerInfo
// frames, returning the decoded payloads keyed by recipient.
func joinTwo(t *testing.T, hub *chathub.Hub, a, b *MockClient) (infoA, infoB models.PartnerInfoPayload) {
	t.Helper()
	hub.Register(a)
	hub.Register(b)
	hub.HandleFrame(a.GetUserID(), joinFrame(t, "A", "Math"))
	hub.HandleFrame(b.GetUserID(), joinFrame(t, "B", "Physics"))

	envA := nextFrame(t, a)
	require.Equal(t, models.TypePartnerInfo, envA.Type)
	require.NoError(t, envA.Decode(&infoA))

	envB := nextFrame(t, b)
	require.Equal(t, models.TypePartnerInfo, envB.Type)
	require.NoError(t, envB.Decode(&infoB))
	return infoA, infoB
}

// MockRecorder captures session lifecycle records on channels so tests can
// wait for the hub's asynchronous writes.
type MockRecorder struct {
	Opened chan *models.ChatRoom
	Ended  chan string
}

func newMockRecorder() *MockRecorder {
	return &MockRecorder{
		Opened: make(chan *models.ChatRoom, 16),
		Ended:  make(chan string, 16),
	}
}

func (r *MockRecorder) RoomOpened(room *models.ChatRoom) error {
	r.Opened <- room
	return nil
}

func (r *MockRecorder) RoomClosed(roomID string) error {
	r.Ended <- roomID
	return nil
}
