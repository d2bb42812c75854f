package socketio_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"nhooyr.io/websocket"

	"github.com/omochice/story-chat/internal/socketio"
)

// newServer starts a scripted Socket.IO server. It performs the handshake,
// answers the client's CONNECT with connectReply and then runs script.
func newServer(t *testing.T, open socketio.OpenInfo, connectReply string, script func(ctx context.Context, c *websocket.Conn)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		payload, err := open.Encode()
		if err != nil {
			return
		}
		if err := c.Write(ctx, websocket.MessageText, socketio.EngineFrame(socketio.EngineOpen, payload)); err != nil {
			return
		}
		_, data, err := c.Read(ctx)
		if err != nil || string(data) != "40" {
			return
		}
		if err := c.Write(ctx, websocket.MessageText, []byte(connectReply)); err != nil {
			return
		}
		if script != nil {
			script(ctx, c)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func defaultOpen() socketio.OpenInfo {
	return socketio.OpenInfo{SID: "engine-sid", PingInterval: 25 * time.Second, PingTimeout: 20 * time.Second}
}

// drain reads until the client goes away.
func drain(ctx context.Context, c *websocket.Conn) {
	for {
		if _, _, err := c.Read(ctx); err != nil {
			return
		}
	}
}

func TestClient_ConnectAndClose(t *testing.T) {
	server := newServer(t, defaultOpen(), `40{"sid":"abc"}`, drain)

	client := socketio.NewClient(server.URL)
	connected := make(chan struct{}, 1)
	reasons := make(chan string, 1)
	client.OnConnect(func() { connected <- struct{}{} })
	client.OnDisconnect(func(reason string) { reasons <- reason })

	assert.False(t, client.Connected())

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.Connected())
	assert.Equal(t, "abc", client.SID())

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for connect callback")
	}

	require.NoError(t, client.Close())
	assert.False(t, client.Connected())

	select {
	case reason := <-reasons:
		assert.Equal(t, "io client disconnect", reason)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for disconnect callback")
	}

	select {
	case <-client.Done():
	default:
		t.Error("Done() should be closed after Close()")
	}
}

func TestClient_ConnectError(t *testing.T) {
	server := newServer(t, defaultOpen(), `44{"message":"story not found"}`, nil)

	client := socketio.NewClient(server.URL)
	errs := make(chan error, 1)
	client.OnConnectError(func(err error) { errs <- err })

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "story not found")
	assert.False(t, client.Connected())

	select {
	case got := <-errs:
		assert.Equal(t, err, got)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for connect error callback")
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	address := server.URL
	server.Close()

	client := socketio.NewClient(address)
	called := false
	client.OnConnectError(func(err error) { called = true })

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, called)
}

func TestClient_EventDispatch(t *testing.T) {
	server := newServer(t, defaultOpen(), `40{"sid":"abc"}`, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`42["messageReply",{"answers":[{"name":"guide","message":"hello"}]}]`))
		drain(ctx, c)
	})

	client := socketio.NewClient(server.URL)
	got := make(chan []*structpb.Value, 1)
	client.On("messageReply", func(args []*structpb.Value) { got <- args })

	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case args := <-got:
		require.Len(t, args, 1)
		answers := args[0].GetStructValue().GetFields()["answers"].GetListValue().GetValues()
		require.Len(t, answers, 1)
		assert.Equal(t, "hello", answers[0].GetStructValue().GetFields()["message"].GetStringValue())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestClient_Emit(t *testing.T) {
	received := make(chan []byte, 1)
	server := newServer(t, defaultOpen(), `40{"sid":"abc"}`, func(ctx context.Context, c *websocket.Conn) {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		received <- data
		drain(ctx, c)
	})

	client := socketio.NewClient(server.URL)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	arg := structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"storyId": structpb.NewStringValue("STRY1"),
		"message": structpb.NewStringValue("hi"),
	}})
	require.NoError(t, client.Emit(context.Background(), "createChat", arg))

	select {
	case data := <-received:
		typ, payload, err := socketio.DecodeEngine(data)
		require.NoError(t, err)
		assert.Equal(t, socketio.EngineMessage, typ)
		p, err := socketio.DecodePacket(payload)
		require.NoError(t, err)
		name, args, err := p.Event()
		require.NoError(t, err)
		assert.Equal(t, "createChat", name)
		require.Len(t, args, 1)
		assert.Equal(t, "hi", args[0].GetStructValue().GetFields()["message"].GetStringValue())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for emitted event")
	}
}

func TestClient_EmitNotConnected(t *testing.T) {
	client := socketio.NewClient("http://localhost:1")

	err := client.Emit(context.Background(), "createChat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestClient_AnswersPing(t *testing.T) {
	pong := make(chan string, 1)
	server := newServer(t, defaultOpen(), `40{"sid":"abc"}`, func(ctx context.Context, c *websocket.Conn) {
		if err := c.Write(ctx, websocket.MessageText, []byte("2")); err != nil {
			return
		}
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		pong <- string(data)
		drain(ctx, c)
	})

	client := socketio.NewClient(server.URL)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case got := <-pong:
		assert.Equal(t, "3", got)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pong")
	}
}

func TestClient_ServerDisconnect(t *testing.T) {
	server := newServer(t, defaultOpen(), `40{"sid":"abc"}`, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte("41"))
		drain(ctx, c)
	})

	client := socketio.NewClient(server.URL)
	reasons := make(chan string, 1)
	client.OnDisconnect(func(reason string) { reasons <- reason })

	require.NoError(t, client.Connect(context.Background()))

	select {
	case reason := <-reasons:
		assert.Equal(t, "io server disconnect", reason)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for disconnect")
	}
	assert.False(t, client.Connected())
	require.NoError(t, client.Close())
}

func TestClient_DoneFollowsDisconnectCallback(t *testing.T) {
	server := newServer(t, defaultOpen(), `40{"sid":"abc"}`, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte("41"))
		drain(ctx, c)
	})

	client := socketio.NewClient(server.URL)
	var called atomic.Bool
	client.OnDisconnect(func(string) {
		time.Sleep(20 * time.Millisecond)
		called.Store(true)
	})

	require.NoError(t, client.Connect(context.Background()))

	select {
	case <-client.Done():
		assert.True(t, called.Load(), "Done should close after the disconnect callback returns")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for disconnect")
	}
	require.NoError(t, client.Close())
}

func TestClient_PingTimeout(t *testing.T) {
	open := socketio.OpenInfo{SID: "engine-sid", PingInterval: 50 * time.Millisecond, PingTimeout: 50 * time.Millisecond}
	server := newServer(t, open, `40{"sid":"abc"}`, drain)

	client := socketio.NewClient(server.URL)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client should disconnect when the server stops pinging")
	}
	assert.False(t, client.Connected())
}
