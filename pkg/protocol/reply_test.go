package protocol_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/story-chat/pkg/protocol"
)

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantAnswers []protocol.Answer
		wantOptions []string
		wantSkipped int
	}{
		{
			name:        "answers as array",
			data:        `{"answers":[{"name":"assistant","message":"hi"},{"name":"narrator","message":"once upon a time"}]}`,
			wantAnswers: []protocol.Answer{{Name: "assistant", Message: "hi"}, {Name: "narrator", Message: "once upon a time"}},
		},
		{
			name:        "single answer object is normalized",
			data:        `{"answers":{"name":"assistant","message":"hi"}}`,
			wantAnswers: []protocol.Answer{{Name: "assistant", Message: "hi"}},
		},
		{
			name:        "malformed entries are skipped",
			data:        `{"answers":[{"name":"assistant"},"oops",{"name":"assistant","message":"ok"}]}`,
			wantAnswers: []protocol.Answer{{Name: "assistant", Message: "ok"}},
			wantSkipped: 2,
		},
		{
			name:        "single object missing message is skipped",
			data:        `{"answers":{"name":"assistant"}}`,
			wantSkipped: 1,
		},
		{
			name:        "needed options are surfaced in order",
			data:        `{"answerOptions":{"isNeeded":true,"options":["A","B"]}}`,
			wantOptions: []string{"A", "B"},
		},
		{
			name: "options not needed",
			data: `{"answerOptions":{"isNeeded":false,"options":["A","B"]}}`,
		},
		{
			name: "empty options",
			data: `{"answerOptions":{"isNeeded":true,"options":[]}}`,
		},
		{
			name:        "non-string option rejects the block",
			data:        `{"answers":[{"name":"a","message":"m"}],"answerOptions":{"isNeeded":true,"options":["A",1]}}`,
			wantAnswers: []protocol.Answer{{Name: "a", Message: "m"}},
			wantSkipped: 1,
		},
		{
			name: "null parts are ignored",
			data: `{"answers":null,"answerOptions":null}`,
		},
		{
			name:        "answers of the wrong type",
			data:        `{"answers":"hello"}`,
			wantSkipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, skipped, err := protocol.DecodeReply([]byte(tt.data))
			require.NoError(t, err)

			assert.Equal(t, tt.wantAnswers, reply.Answers)
			assert.Equal(t, tt.wantOptions, reply.Options())
			assert.Len(t, skipped, tt.wantSkipped)
			for _, e := range skipped {
				assert.True(t, errors.Is(e, protocol.ErrMalformedPayload), "skipped error %v should be ErrMalformedPayload", e)
			}
		})
	}
}

func TestDecodeReply_NotAnObject(t *testing.T) {
	_, _, err := protocol.DecodeReply([]byte(`[1,2,3]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrMalformedPayload))
}

func TestReply_EncodeDecode(t *testing.T) {
	reply := protocol.Reply{
		Answers: []protocol.Answer{{Name: "guide", Message: "Pick a door"}},
		AnswerOptions: &protocol.AnswerOptions{
			IsNeeded: true,
			Options:  []string{"Left", "Right"},
		},
	}

	data, err := reply.Encode()
	require.NoError(t, err)

	decoded, skipped, err := protocol.DecodeReply(data)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, reply.Answers, decoded.Answers)
	assert.Equal(t, []string{"Left", "Right"}, decoded.Options())
}

func TestReplyFromValue_NotAnObject(t *testing.T) {
	_, skipped := protocol.ReplyFromValue(structpb.NewStringValue("hi"))
	require.Len(t, skipped, 1)
}

func TestChatRequest_Encode(t *testing.T) {
	req := protocol.ChatRequest{StoryID: protocol.DefaultStoryID, Message: "hello"}

	data, err := req.Encode()
	require.NoError(t, err)

	decoded, err := protocol.DecodeChatRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestChatRequestFromValue(t *testing.T) {
	tests := []struct {
		name    string
		value   *structpb.Value
		want    protocol.ChatRequest
		wantErr bool
	}{
		{
			name:  "full request",
			value: protocol.ChatRequest{StoryID: "S", Message: "m"}.Value(),
			want:  protocol.ChatRequest{StoryID: "S", Message: "m"},
		},
		{
			name:    "not an object",
			value:   structpb.NewNumberValue(3),
			wantErr: true,
		},
		{
			name: "missing message",
			value: structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
				"storyId": structpb.NewStringValue("S"),
			}}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.ChatRequestFromValue(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunkFromValue(t *testing.T) {
	v := structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"name":    structpb.NewStringValue("narrator"),
		"message": structpb.NewStringValue("Once"),
	}})

	chunk, err := protocol.ChunkFromValue(v)
	require.NoError(t, err)
	assert.Equal(t, protocol.Answer{Name: "narrator", Message: "Once"}, chunk)
}
