package graphql_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/story-chat/internal/backend"
	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/internal/transport/graphql"
	"github.com/omochice/story-chat/pkg/protocol"
)

func TestClient_Exchange(t *testing.T) {
	ts := httptest.NewServer(backend.New().Handler())
	defer ts.Close()

	client := graphql.NewClient(ts.URL, time.Second)
	assert.Equal(t, ts.URL+"/graphql", client.URL())

	reply, err := client.Exchange(context.Background(), protocol.ChatRequest{StoryID: "STRY1", Message: "hello"})
	require.NoError(t, err)
	require.Len(t, reply.Answers, 1)
	assert.Equal(t, "You said: hello", reply.Answers[0].Message)
	assert.Empty(t, reply.Options())
}

func TestClient_Exchange_SendsMutation(t *testing.T) {
	received := make(chan *structpb.Struct, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		doc := &structpb.Struct{}
		if err := protojson.Unmarshal(body, doc); err == nil {
			received <- doc
		}
		w.Write([]byte(`{"data":{"createChat":{"answers":{"name":"guide","message":"ok"},"answerOptions":{"isNeeded":true,"options":["A"]}}}}`))
	}))
	defer ts.Close()

	reply, err := graphql.NewClient(ts.URL, time.Second).Exchange(context.Background(), protocol.ChatRequest{StoryID: "S9", Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, []protocol.Answer{{Name: "guide", Message: "ok"}}, reply.Answers)
	assert.Equal(t, []string{"A"}, reply.Options())

	doc := <-received
	assert.True(t, strings.Contains(doc.GetFields()["query"].GetStringValue(), "createChat"))
	vars := doc.GetFields()["variables"].GetStructValue().GetFields()
	assert.Equal(t, "S9", vars["storyId"].GetStringValue())
	assert.Equal(t, "m", vars["message"].GetStringValue())
}

func TestClient_Exchange_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind bridge.Kind
		wantText string
	}{
		{
			name:     "graphql errors",
			body:     `{"data":null,"errors":[{"message":"story not found"}]}`,
			wantKind: bridge.KindSend,
			wantText: "GraphQL request failed: story not found",
		},
		{
			name:     "no data",
			body:     `{"data":{}}`,
			wantKind: bridge.KindMalformedPayload,
		},
		{
			name:     "not json",
			body:     `<html>`,
			wantKind: bridge.KindMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := graphql.NewClient(ts.URL, time.Second).Exchange(context.Background(), protocol.ChatRequest{Message: "hi"})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, bridge.KindOf(err))
			if tt.wantText != "" {
				assert.Contains(t, err.Error(), tt.wantText)
			}
		})
	}
}
