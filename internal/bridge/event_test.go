package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/pkg/protocol"
)

func TestReplyEvents(t *testing.T) {
	reply := protocol.Reply{
		Answers: []protocol.Answer{
			{Name: "narrator", Message: "The door creaks."},
			{Name: "assistant", Message: "What now?"},
		},
		AnswerOptions: &protocol.AnswerOptions{IsNeeded: true, Options: []string{"Enter", "Leave"}},
	}

	events := bridge.ReplyEvents(reply)
	require.Len(t, events, 3)

	assert.Equal(t, bridge.FinalResponse("narrator", "The door creaks."), events[0])
	assert.Equal(t, bridge.FinalResponse("assistant", "What now?"), events[1])
	assert.Equal(t, bridge.EventAnswerOptions, events[2].Kind)
	assert.Equal(t, []string{"Enter", "Leave"}, events[2].Options)
}

func TestReplyEvents_OptionsNotNeeded(t *testing.T) {
	reply := protocol.Reply{
		AnswerOptions: &protocol.AnswerOptions{IsNeeded: false, Options: []string{"A"}},
	}

	assert.Empty(t, bridge.ReplyEvents(reply))
}

func TestEventKind_String(t *testing.T) {
	tests := []struct {
		kind bridge.EventKind
		want string
	}{
		{bridge.EventStatus, "status"},
		{bridge.EventConnectionReady, "connection-ready"},
		{bridge.EventConnectionCleared, "connection-cleared"},
		{bridge.EventFinalResponse, "final-response"},
		{bridge.EventAnswerOptions, "answer-options"},
		{bridge.EventPartialResponse, "partial-response"},
		{bridge.EventKind(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}
