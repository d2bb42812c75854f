// Package protocol defines the payloads exchanged with the story chat backend.
//
// Payloads are JSON documents whose shape is only loosely fixed by the backend
// (for example "answers" may be a single object or an array), so they are
// decoded into protobuf's well-known Struct types and walked by hand.
package protocol

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event names used on the push transport.
const (
	EventCreateChat   = "createChat"
	EventMessageReply = "messageReply"
	EventMessageChunk = "messageChunk"
)

// DefaultStoryID is the story the demo front-ends talk about.
const DefaultStoryID = "STRY1"

// ChatRequest is the outbound chat payload: {"storyId": ..., "message": ...}.
type ChatRequest struct {
	StoryID string
	Message string
}

// Struct converts the request to its JSON object form.
func (r ChatRequest) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"storyId": structpb.NewStringValue(r.StoryID),
		"message": structpb.NewStringValue(r.Message),
	}}
}

// Value wraps Struct in a Value, as needed for event argument lists.
func (r ChatRequest) Value() *structpb.Value {
	return structpb.NewStructValue(r.Struct())
}

// Encode encodes the request as JSON.
func (r ChatRequest) Encode() ([]byte, error) {
	data, err := protojson.Marshal(r.Struct())
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode chat request")
	}
	return data, nil
}

// DecodeChatRequest decodes a JSON chat request.
func DecodeChatRequest(data []byte) (ChatRequest, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return ChatRequest{}, errors.Wrap(err, "failed to decode chat request")
	}
	return ChatRequestFromStruct(s)
}

// ChatRequestFromValue extracts a chat request from an event argument.
func ChatRequestFromValue(v *structpb.Value) (ChatRequest, error) {
	s := v.GetStructValue()
	if s == nil {
		return ChatRequest{}, errors.Wrap(ErrMalformedPayload, "chat request is not an object")
	}
	return ChatRequestFromStruct(s)
}

// ChatRequestFromStruct extracts a chat request from a JSON object.
// storyId may be absent; message is required.
func ChatRequestFromStruct(s *structpb.Struct) (ChatRequest, error) {
	message, ok := stringField(s, "message")
	if !ok {
		return ChatRequest{}, errors.Wrap(ErrMalformedPayload, "chat request has no message")
	}
	storyID, _ := stringField(s, "storyId")
	return ChatRequest{StoryID: storyID, Message: message}, nil
}

func stringField(s *structpb.Struct, name string) (string, bool) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", false
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return sv.StringValue, true
}
