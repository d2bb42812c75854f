package protocol

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformedPayload marks an answer entry or options block that failed its
// shape checks. Such parts are skipped; the rest of the payload is still used.
var ErrMalformedPayload = errors.New("malformed payload")

// DefaultAnswerName is the sender name used when nothing better is known.
const DefaultAnswerName = "assistant"

// Answer is a single chat answer from the backend.
type Answer struct {
	Name    string
	Message string
}

// AnswerOptions is the quick-reply block of a reply.
type AnswerOptions struct {
	IsNeeded bool
	Options  []string
}

// Reply is the backend response to a chat request, for all transports:
//
//	{"answers": [{"name": ..., "message": ...}] | {...}, "answerOptions": {"isNeeded": ..., "options": [...]}}
type Reply struct {
	Answers       []Answer
	AnswerOptions *AnswerOptions
}

// Options returns the answer options that should be offered to the user.
// It is empty unless the block is present, marked needed and non-empty.
func (r Reply) Options() []string {
	if r.AnswerOptions == nil || !r.AnswerOptions.IsNeeded || len(r.AnswerOptions.Options) == 0 {
		return nil
	}
	return append([]string(nil), r.AnswerOptions.Options...)
}

// DecodeReply decodes a JSON reply. The returned error is set only when data
// is not a JSON object; problems with individual parts are returned in skipped.
func DecodeReply(data []byte) (reply Reply, skipped []error, err error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return Reply{}, nil, errors.Wrapf(ErrMalformedPayload, "reply is not a JSON object: %v", err)
	}
	reply, skipped = ReplyFromStruct(s)
	return reply, skipped, nil
}

// ReplyFromValue extracts a reply from an event argument.
func ReplyFromValue(v *structpb.Value) (Reply, []error) {
	s := v.GetStructValue()
	if s == nil {
		return Reply{}, []error{errors.Wrap(ErrMalformedPayload, "reply is not an object")}
	}
	return ReplyFromStruct(s)
}

// ReplyFromStruct extracts a reply from a JSON object. A single answer object
// is normalized to a one-element sequence.
func ReplyFromStruct(s *structpb.Struct) (Reply, []error) {
	var (
		reply   Reply
		skipped []error
	)

	switch answers := s.GetFields()["answers"].GetKind().(type) {
	case nil, *structpb.Value_NullValue:
	case *structpb.Value_ListValue:
		for i, item := range answers.ListValue.GetValues() {
			answer, err := answerFromValue(item)
			if err != nil {
				skipped = append(skipped, errors.Wrapf(err, "answers[%d]", i))
				continue
			}
			reply.Answers = append(reply.Answers, answer)
		}
	case *structpb.Value_StructValue:
		answer, err := answerFromValue(s.GetFields()["answers"])
		if err != nil {
			skipped = append(skipped, errors.Wrap(err, "answers"))
		} else {
			reply.Answers = append(reply.Answers, answer)
		}
	default:
		skipped = append(skipped, errors.Wrap(ErrMalformedPayload, "answers is neither an object nor an array"))
	}

	if v, ok := s.GetFields()["answerOptions"]; ok {
		opts, err := answerOptionsFromValue(v)
		if err != nil {
			skipped = append(skipped, errors.Wrap(err, "answerOptions"))
		} else {
			reply.AnswerOptions = opts
		}
	}

	return reply, skipped
}

func answerFromValue(v *structpb.Value) (Answer, error) {
	s := v.GetStructValue()
	if s == nil {
		return Answer{}, errors.Wrap(ErrMalformedPayload, "answer is not an object")
	}
	name, ok := stringField(s, "name")
	if !ok {
		return Answer{}, errors.Wrap(ErrMalformedPayload, "answer has no name")
	}
	message, ok := stringField(s, "message")
	if !ok {
		return Answer{}, errors.Wrap(ErrMalformedPayload, "answer has no message")
	}
	return Answer{Name: name, Message: message}, nil
}

func answerOptionsFromValue(v *structpb.Value) (*AnswerOptions, error) {
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	s := v.GetStructValue()
	if s == nil {
		return nil, errors.Wrap(ErrMalformedPayload, "not an object")
	}

	opts := &AnswerOptions{}
	if needed, ok := s.GetFields()["isNeeded"]; ok {
		b, isBool := needed.GetKind().(*structpb.Value_BoolValue)
		if !isBool {
			return nil, errors.Wrap(ErrMalformedPayload, "isNeeded is not a boolean")
		}
		opts.IsNeeded = b.BoolValue
	}

	if list, ok := s.GetFields()["options"]; ok {
		if _, isNull := list.GetKind().(*structpb.Value_NullValue); !isNull {
			lv := list.GetListValue()
			if lv == nil {
				return nil, errors.Wrap(ErrMalformedPayload, "options is not an array")
			}
			for i, item := range lv.GetValues() {
				sv, isString := item.GetKind().(*structpb.Value_StringValue)
				if !isString {
					return nil, errors.Wrapf(ErrMalformedPayload, "options[%d] is not a string", i)
				}
				opts.Options = append(opts.Options, sv.StringValue)
			}
		}
	}

	return opts, nil
}

// Struct converts the reply to its JSON object form. Answers are always
// written as an array.
func (r Reply) Struct() *structpb.Struct {
	answers := make([]*structpb.Value, 0, len(r.Answers))
	for _, a := range r.Answers {
		answers = append(answers, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name":    structpb.NewStringValue(a.Name),
			"message": structpb.NewStringValue(a.Message),
		}}))
	}

	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"answers": structpb.NewListValue(&structpb.ListValue{Values: answers}),
	}}

	if r.AnswerOptions != nil {
		options := make([]*structpb.Value, 0, len(r.AnswerOptions.Options))
		for _, o := range r.AnswerOptions.Options {
			options = append(options, structpb.NewStringValue(o))
		}
		s.Fields["answerOptions"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"isNeeded": structpb.NewBoolValue(r.AnswerOptions.IsNeeded),
			"options":  structpb.NewListValue(&structpb.ListValue{Values: options}),
		}})
	}

	return s
}

// Encode encodes the reply as JSON.
func (r Reply) Encode() ([]byte, error) {
	data, err := protojson.Marshal(r.Struct())
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode reply")
	}
	return data, nil
}

// ChunkFromValue extracts a partial answer pushed ahead of the final reply.
// Chunks share the answer shape: {"name": ..., "message": ...}.
func ChunkFromValue(v *structpb.Value) (Answer, error) {
	return answerFromValue(v)
}
