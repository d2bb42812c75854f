// Package socketio implements the subset of Engine.IO v4 / Socket.IO v5 the
// chat front-end needs: a websocket-only client for the default namespace
// with events, and the packet codec shared with the local stub backend.
package socketio

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// EngineType is the Engine.IO packet type, the first byte of every frame.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

// PacketType is the Socket.IO packet type carried inside an Engine.IO message.
type PacketType byte

const (
	PacketConnect      PacketType = '0'
	PacketDisconnect   PacketType = '1'
	PacketEvent        PacketType = '2'
	PacketAck          PacketType = '3'
	PacketConnectError PacketType = '4'
	PacketBinaryEvent  PacketType = '5'
	PacketBinaryAck    PacketType = '6'
)

// ErrBadPacket is returned for frames that cannot be decoded.
var ErrBadPacket = errors.New("bad packet")

// EngineFrame builds an Engine.IO frame.
func EngineFrame(t EngineType, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, byte(t))
	return append(frame, payload...)
}

// DecodeEngine splits an Engine.IO frame into its type and payload.
func DecodeEngine(frame []byte) (EngineType, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, errors.Wrap(ErrBadPacket, "empty frame")
	}
	t := EngineType(frame[0])
	if t < EngineOpen || t > EngineNoop {
		return 0, nil, errors.Wrapf(ErrBadPacket, "unknown engine packet type %q", frame[0])
	}
	return t, frame[1:], nil
}

// OpenInfo is the payload of the Engine.IO OPEN packet.
type OpenInfo struct {
	SID          string
	PingInterval time.Duration
	PingTimeout  time.Duration
	MaxPayload   int64
}

// Encode encodes the OPEN payload as JSON.
func (o OpenInfo) Encode() ([]byte, error) {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"sid":          structpb.NewStringValue(o.SID),
		"upgrades":     structpb.NewListValue(&structpb.ListValue{}),
		"pingInterval": structpb.NewNumberValue(float64(o.PingInterval.Milliseconds())),
		"pingTimeout":  structpb.NewNumberValue(float64(o.PingTimeout.Milliseconds())),
		"maxPayload":   structpb.NewNumberValue(float64(o.MaxPayload)),
	}}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode open packet")
	}
	return data, nil
}

// DecodeOpen decodes the OPEN payload.
func DecodeOpen(data []byte) (OpenInfo, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return OpenInfo{}, errors.Wrapf(ErrBadPacket, "open payload: %v", err)
	}
	f := s.GetFields()
	sid := f["sid"].GetStringValue()
	if sid == "" {
		return OpenInfo{}, errors.Wrap(ErrBadPacket, "open payload has no sid")
	}
	return OpenInfo{
		SID:          sid,
		PingInterval: time.Duration(f["pingInterval"].GetNumberValue()) * time.Millisecond,
		PingTimeout:  time.Duration(f["pingTimeout"].GetNumberValue()) * time.Millisecond,
		MaxPayload:   int64(f["maxPayload"].GetNumberValue()),
	}, nil
}

// Packet is a Socket.IO packet.
type Packet struct {
	Type PacketType
	// Namespace is empty for the default namespace "/".
	Namespace string
	// ID is the acknowledgement id, or -1 when absent.
	ID   int
	Data []byte
}

// Encode encodes the packet as the payload of an Engine.IO MESSAGE frame.
func (p Packet) Encode() []byte {
	buf := []byte{byte(p.Type)}
	if p.Namespace != "" && p.Namespace != "/" {
		buf = append(buf, p.Namespace...)
		buf = append(buf, ',')
	}
	if p.ID >= 0 {
		buf = strconv.AppendInt(buf, int64(p.ID), 10)
	}
	return append(buf, p.Data...)
}

// Frame encodes the packet as a complete Engine.IO MESSAGE frame.
func (p Packet) Frame() []byte {
	return EngineFrame(EngineMessage, p.Encode())
}

// DecodePacket decodes the payload of an Engine.IO MESSAGE frame.
func DecodePacket(payload []byte) (Packet, error) {
	if len(payload) == 0 {
		return Packet{}, errors.Wrap(ErrBadPacket, "empty socket.io packet")
	}
	p := Packet{Type: PacketType(payload[0]), ID: -1}
	if p.Type < PacketConnect || p.Type > PacketBinaryAck {
		return Packet{}, errors.Wrapf(ErrBadPacket, "unknown socket.io packet type %q", payload[0])
	}
	rest := payload[1:]

	if len(rest) > 0 && rest[0] == '/' {
		i := 0
		for i < len(rest) && rest[i] != ',' {
			i++
		}
		p.Namespace = string(rest[:i])
		if i < len(rest) {
			i++
		}
		rest = rest[i:]
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > 0 {
		id, err := strconv.Atoi(string(rest[:i]))
		if err != nil {
			return Packet{}, errors.Wrapf(ErrBadPacket, "ack id: %v", err)
		}
		p.ID = id
		rest = rest[i:]
	}

	p.Data = rest
	return p, nil
}

// ConnectPacket builds a CONNECT packet for the default namespace.
func ConnectPacket(data *structpb.Struct) (Packet, error) {
	p := Packet{Type: PacketConnect, ID: -1}
	if data != nil {
		raw, err := protojson.Marshal(data)
		if err != nil {
			return Packet{}, errors.Wrap(err, "failed to encode connect payload")
		}
		p.Data = raw
	}
	return p, nil
}

// ConnectErrorPacket builds a CONNECT_ERROR packet carrying {"message": ...}.
func ConnectErrorPacket(message string) (Packet, error) {
	raw, err := protojson.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"message": structpb.NewStringValue(message),
	}})
	if err != nil {
		return Packet{}, errors.Wrap(err, "failed to encode connect error payload")
	}
	return Packet{Type: PacketConnectError, ID: -1, Data: raw}, nil
}

// EventPacket builds an EVENT packet: ["event", args...].
func EventPacket(event string, args ...*structpb.Value) (Packet, error) {
	values := make([]*structpb.Value, 0, len(args)+1)
	values = append(values, structpb.NewStringValue(event))
	values = append(values, args...)
	raw, err := protojson.Marshal(&structpb.ListValue{Values: values})
	if err != nil {
		return Packet{}, errors.Wrapf(err, "failed to encode event %q", event)
	}
	return Packet{Type: PacketEvent, ID: -1, Data: raw}, nil
}

// Event decodes the name and arguments of an EVENT packet.
func (p Packet) Event() (string, []*structpb.Value, error) {
	if p.Type != PacketEvent {
		return "", nil, errors.Wrapf(ErrBadPacket, "packet type %q is not an event", p.Type)
	}
	list := &structpb.ListValue{}
	if err := protojson.Unmarshal(p.Data, list); err != nil {
		return "", nil, errors.Wrapf(ErrBadPacket, "event payload: %v", err)
	}
	values := list.GetValues()
	if len(values) == 0 {
		return "", nil, errors.Wrap(ErrBadPacket, "event without a name")
	}
	name, ok := values[0].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", nil, errors.Wrap(ErrBadPacket, "event name is not a string")
	}
	return name.StringValue, values[1:], nil
}

// Object decodes the JSON object carried by CONNECT and CONNECT_ERROR packets.
// An empty payload decodes to an empty object.
func (p Packet) Object() (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if len(p.Data) == 0 {
		return s, nil
	}
	if err := protojson.Unmarshal(p.Data, s); err != nil {
		return nil, errors.Wrapf(ErrBadPacket, "object payload: %v", err)
	}
	return s, nil
}
