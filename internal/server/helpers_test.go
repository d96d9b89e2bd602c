package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Hana-Lee/translate-chat/internal/config"
	"github.com/Hana-Lee/translate-chat/internal/database"
	"github.com/Hana-Lee/translate-chat/internal/stats"
	"github.com/Hana-Lee/translate-chat/internal/testutil"
)

// fakeTranslator tags every translation with its target language so
// tests can assert the exact hops taken.
type fakeTranslator struct {
	mu             sync.Mutex
	translateCalls []string
	detectCalls    int
	detectLang     string
	detectErr      error
	translateErr   error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.translateCalls = append(f.translateCalls, from+"->"+to)
	if f.translateErr != nil {
		return "", f.translateErr
	}
	return text + "|" + to, nil
}

func (f *fakeTranslator) Detect(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detectCalls++
	if f.detectErr != nil {
		return "", f.detectErr
	}
	if f.detectLang == "" {
		return "en", nil
	}
	return f.detectLang, nil
}

func (f *fakeTranslator) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.translateCalls...)
}

type notifyCall struct {
	recipientId string
	senderName  string
	text        string
	msgType     string
	roomId      string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (f *fakeNotifier) Dispatch(recipientId, senderName, text, msgType, roomId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{recipientId, senderName, text, msgType, roomId})
}

func (f *fakeNotifier) dispatched() []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifyCall(nil), f.calls...)
}

func newTestServer(t *testing.T, repo database.ChatRepository, translator *fakeTranslator) (*ChatServer, *fakeNotifier) {
	t.Helper()

	if translator == nil {
		translator = &fakeTranslator{}
	}

	sp := &stats.MockStatsUpdater{}
	sp.On("Incr", mock.Anything).Maybe()
	sp.On("Decr", mock.Anything).Maybe()

	cfg, err := config.NewConfig("localhost:8080", "sqlite3", ":memory:", nil)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	cs, err := NewChatServer(testutil.TestLogger(t), repo, translator, notifier, sp, cfg)
	require.NoError(t, err)

	return cs, notifier
}

func newTestClient(t *testing.T, cs *ChatServer, userId, userName string) *Client {
	t.Helper()

	c := &Client{
		id:         uuid.NewString(),
		chatServer: cs,
		log:        testutil.TestLogger(t),
		send:       make(chan *ServerMessage, 256),
		stop:       make(chan struct{}),
	}
	if userId != "" {
		c.session.SetUser(userId, userName)
	}
	cs.addClient(c)

	return c
}

func dispatch(cs *ChatServer, c *Client, id int, event, payload string) {
	msg := &ClientMessage{
		Id:        id,
		Event:     event,
		Timestamp: Now(),
		client:    c,
	}
	if payload != "" {
		msg.Payload = json.RawMessage(payload)
	}
	cs.dispatch(msg)
}

func recv(t *testing.T, c *Client) *ServerMessage {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server message")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %q", msg.Event)
	default:
	}
}
