package backend

import (
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/story-chat/pkg/protocol"
)

const maxBodySize = 1 << 20

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	req, err := protocol.DecodeChatRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().Str("component", "backend").Str("story", req.StoryID).Str("message", req.Message).Msg("REST chat request")

	reply, err := s.responder.Respond(r.Context(), req)
	if err != nil {
		log.Error().Str("component", "backend").Err(err).Msg("Responder failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reply.Struct())
}

// handleGraphQL serves the single createChat mutation. Variables carry the
// chat request; the selection set is not interpreted.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeGraphQLError(w, "failed to read body")
		return
	}

	doc := &structpb.Struct{}
	if err := protojson.Unmarshal(body, doc); err != nil {
		writeGraphQLError(w, "request body is not a JSON object")
		return
	}

	query := doc.GetFields()["query"].GetStringValue()
	if !strings.Contains(query, "createChat") {
		writeGraphQLError(w, "unsupported operation")
		return
	}

	vars := doc.GetFields()["variables"].GetStructValue()
	if vars == nil {
		writeGraphQLError(w, "missing variables")
		return
	}
	req, err := protocol.ChatRequestFromStruct(vars)
	if err != nil {
		writeGraphQLError(w, err.Error())
		return
	}

	log.Info().Str("component", "backend").Str("story", req.StoryID).Str("message", req.Message).Msg("GraphQL chat request")

	reply, err := s.responder.Respond(r.Context(), req)
	if err != nil {
		log.Error().Str("component", "backend").Err(err).Msg("Responder failed")
		writeGraphQLError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &structpb.Struct{Fields: map[string]*structpb.Value{
		"data": structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"createChat": structpb.NewStructValue(reply.Struct()),
		}}),
	}})
}

func writeJSON(w http.ResponseWriter, status int, body *structpb.Struct) {
	data, err := protojson.Marshal(body)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, &structpb.Struct{Fields: map[string]*structpb.Value{
		"error": structpb.NewStringValue(message),
	}})
}

func writeGraphQLError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, &structpb.Struct{Fields: map[string]*structpb.Value{
		"data": structpb.NewNullValue(),
		"errors": structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
			structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
				"message": structpb.NewStringValue(message),
			}}),
		}}),
	}})
}
