package grpcclient

import (
	"encoding/base64"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

// Messages travel as google.protobuf.Struct. Field names are snake_case, bytes are
// base64 strings and timestamps are RFC 3339 strings.

func (r *RecognizeRequest) toProto() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"image":    structpb.NewStringValue(base64.StdEncoding.EncodeToString(r.Image)),
		"engine":   structpb.NewStringValue(r.Engine),
		"language": structpb.NewStringValue(r.Language),
	}}
}

func recognizeRequestFromProto(s *structpb.Struct) (*RecognizeRequest, error) {
	img, err := base64.StdEncoding.DecodeString(stringField(s, "image"))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode image field")
	}
	return &RecognizeRequest{
		Image:    img,
		Engine:   stringField(s, "engine"),
		Language: stringField(s, "language"),
	}, nil
}

func (r *RecognizeResponse) toProto() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"text": structpb.NewStringValue(r.Text),
	}}
}

func recognizeResponseFromProto(s *structpb.Struct) *RecognizeResponse {
	return &RecognizeResponse{Text: stringField(s, "text")}
}

func (it *IndexItem) toProto() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":          structpb.NewStringValue(it.ID),
		"session_id":  structpb.NewStringValue(it.SessionID),
		"frame":       structpb.NewNumberValue(float64(it.Frame)),
		"monitor":     structpb.NewStringValue(it.Monitor),
		"text":        structpb.NewStringValue(it.Text),
		"lines":       stringList(it.Lines),
		"new_lines":   stringList(it.NewLines),
		"score":       structpb.NewNumberValue(it.Score),
		"captured_at": structpb.NewStringValue(it.CapturedAt.UTC().Format(time.RFC3339Nano)),
	}}
}

func indexItemFromProto(s *structpb.Struct) (IndexItem, error) {
	it := IndexItem{
		ID:        stringField(s, "id"),
		SessionID: stringField(s, "session_id"),
		Frame:     uint64(s.GetFields()["frame"].GetNumberValue()),
		Monitor:   stringField(s, "monitor"),
		Text:      stringField(s, "text"),
		Lines:     stringsFrom(s.GetFields()["lines"]),
		NewLines:  stringsFrom(s.GetFields()["new_lines"]),
		Score:     s.GetFields()["score"].GetNumberValue(),
	}
	if v := stringField(s, "captured_at"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return IndexItem{}, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode captured_at field")
		}
		it.CapturedAt = t
	}
	return it, nil
}

func (r *IndexBatchRequest) toProto() *structpb.Struct {
	items := make([]*structpb.Value, len(r.Items))
	for i := range r.Items {
		items[i] = structpb.NewStructValue(r.Items[i].toProto())
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"items": structpb.NewListValue(&structpb.ListValue{Values: items}),
	}}
}

func indexBatchRequestFromProto(s *structpb.Struct) (*IndexBatchRequest, error) {
	values := s.GetFields()["items"].GetListValue().GetValues()
	req := &IndexBatchRequest{Items: make([]IndexItem, 0, len(values))}
	for _, v := range values {
		it, err := indexItemFromProto(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		req.Items = append(req.Items, it)
	}
	return req, nil
}

func (r *IndexBatchResponse) toProto() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"accepted": structpb.NewNumberValue(float64(r.Accepted)),
	}}
}

func indexBatchResponseFromProto(s *structpb.Struct) *IndexBatchResponse {
	return &IndexBatchResponse{Accepted: int(s.GetFields()["accepted"].GetNumberValue())}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func stringList(ss []string) *structpb.Value {
	values := make([]*structpb.Value, len(ss))
	for i, s := range ss {
		values[i] = structpb.NewStringValue(s)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func stringsFrom(v *structpb.Value) []string {
	values := v.GetListValue().GetValues()
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, s := range values {
		out[i] = s.GetStringValue()
	}
	return out
}
