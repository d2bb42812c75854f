package socketio_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/story-chat/internal/socketio"
)

func TestDecodeEngine(t *testing.T) {
	tests := []struct {
		name        string
		frame       string
		wantType    socketio.EngineType
		wantPayload string
		wantErr     bool
	}{
		{name: "ping", frame: "2", wantType: socketio.EnginePing},
		{name: "ping with probe", frame: "2probe", wantType: socketio.EnginePing, wantPayload: "probe"},
		{name: "message", frame: `42["a"]`, wantType: socketio.EngineMessage, wantPayload: `2["a"]`},
		{name: "empty", frame: "", wantErr: true},
		{name: "unknown type", frame: "9", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, payload, err := socketio.DecodeEngine([]byte(tt.frame))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, socketio.ErrBadPacket))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantPayload, string(payload))
		})
	}
}

func TestOpenInfo_EncodeDecode(t *testing.T) {
	open := socketio.OpenInfo{
		SID:          "abc",
		PingInterval: 25 * time.Second,
		PingTimeout:  20 * time.Second,
		MaxPayload:   1000000,
	}

	data, err := open.Encode()
	require.NoError(t, err)

	decoded, err := socketio.DecodeOpen(data)
	require.NoError(t, err)
	assert.Equal(t, open, decoded)
}

func TestDecodeOpen_NoSID(t *testing.T) {
	_, err := socketio.DecodeOpen([]byte(`{"pingInterval":25000}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, socketio.ErrBadPacket))
}

func TestDecodePacket(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    socketio.Packet
		wantErr bool
	}{
		{
			name:    "connect",
			payload: "0",
			want:    socketio.Packet{Type: socketio.PacketConnect, ID: -1, Data: []byte{}},
		},
		{
			name:    "connect with sid",
			payload: `0{"sid":"x"}`,
			want:    socketio.Packet{Type: socketio.PacketConnect, ID: -1, Data: []byte(`{"sid":"x"}`)},
		},
		{
			name:    "event with namespace and ack id",
			payload: `2/admin,12["hi"]`,
			want:    socketio.Packet{Type: socketio.PacketEvent, Namespace: "/admin", ID: 12, Data: []byte(`["hi"]`)},
		},
		{
			name:    "event with ack id",
			payload: `27["hi"]`,
			want:    socketio.Packet{Type: socketio.PacketEvent, ID: 7, Data: []byte(`["hi"]`)},
		},
		{
			name:    "disconnect",
			payload: "1",
			want:    socketio.Packet{Type: socketio.PacketDisconnect, ID: -1, Data: []byte{}},
		},
		{name: "empty", payload: "", wantErr: true},
		{name: "unknown type", payload: "8", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := socketio.DecodePacket([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.Namespace, got.Namespace)
			assert.Equal(t, tt.want.ID, got.ID)
			assert.Equal(t, string(tt.want.Data), string(got.Data))
		})
	}
}

func TestPacket_Encode(t *testing.T) {
	assert.Equal(t, "40", string(socketio.Packet{Type: socketio.PacketConnect, ID: -1}.Frame()))
	assert.Equal(t, "41", string(socketio.Packet{Type: socketio.PacketDisconnect, ID: -1}.Frame()))
	assert.Equal(t, `2/chat,3[]`, string(socketio.Packet{Type: socketio.PacketEvent, Namespace: "/chat", ID: 3, Data: []byte("[]")}.Encode()))
}

func TestEventPacket_RoundTrip(t *testing.T) {
	arg := structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"message": structpb.NewStringValue("hello"),
	}})

	p, err := socketio.EventPacket("createChat", arg)
	require.NoError(t, err)

	_, payload, err := socketio.DecodeEngine(p.Frame())
	require.NoError(t, err)
	decoded, err := socketio.DecodePacket(payload)
	require.NoError(t, err)

	name, args, err := decoded.Event()
	require.NoError(t, err)
	assert.Equal(t, "createChat", name)
	require.Len(t, args, 1)
	assert.Equal(t, "hello", args[0].GetStructValue().GetFields()["message"].GetStringValue())
}

func TestPacket_Event_Errors(t *testing.T) {
	tests := []struct {
		name   string
		packet socketio.Packet
	}{
		{name: "not an event", packet: socketio.Packet{Type: socketio.PacketConnect, ID: -1}},
		{name: "not a list", packet: socketio.Packet{Type: socketio.PacketEvent, ID: -1, Data: []byte(`{}`)}},
		{name: "no name", packet: socketio.Packet{Type: socketio.PacketEvent, ID: -1, Data: []byte(`[]`)}},
		{name: "name not a string", packet: socketio.Packet{Type: socketio.PacketEvent, ID: -1, Data: []byte(`[1]`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.packet.Event()
			require.Error(t, err)
			assert.True(t, errors.Is(err, socketio.ErrBadPacket))
		})
	}
}

func TestConnectErrorPacket(t *testing.T) {
	p, err := socketio.ConnectErrorPacket("unauthorized")
	require.NoError(t, err)
	assert.Equal(t, socketio.PacketConnectError, p.Type)

	obj, err := p.Object()
	require.NoError(t, err)
	assert.Equal(t, "unauthorized", obj.GetFields()["message"].GetStringValue())
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "http", address: "http://localhost:3001", want: "ws://localhost:3001/socket.io/?EIO=4&transport=websocket"},
		{name: "https", address: "https://chat.example.com", want: "wss://chat.example.com/socket.io/?EIO=4&transport=websocket"},
		{name: "no scheme", address: "localhost:3001", want: "ws://localhost:3001/socket.io/?EIO=4&transport=websocket"},
		{name: "custom path", address: "ws://localhost:3001/realtime/", want: "ws://localhost:3001/realtime/?EIO=4&transport=websocket"},
		{name: "unsupported scheme", address: "ftp://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := socketio.EndpointURL(tt.address)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
