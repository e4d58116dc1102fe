package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// RecognizeRequest asks the sidecar for the full text of an image.
type RecognizeRequest struct {
	Image    []byte // PNG
	Engine   string
	Language string
}

// RecognizeResponse is the sidecar's full-text result.
type RecognizeResponse struct {
	Text string
}

// IndexItem is one frame's extracted text handed to the downstream indexer.
type IndexItem struct {
	ID         string
	SessionID  string
	Frame      uint64
	Monitor    string
	Text       string
	Lines      []string
	NewLines   []string
	Score      float64
	CapturedAt time.Time
}

// IndexBatchRequest carries a batch of items.
type IndexBatchRequest struct {
	Items []IndexItem
}

// IndexBatchResponse reports how many items were accepted.
type IndexBatchResponse struct {
	Accepted int
}

// RecognitionServer is implemented by recognition sidecars.
type RecognitionServer interface {
	Recognize(context.Context, *RecognizeRequest) (*RecognizeResponse, error)
	IndexBatch(context.Context, *IndexBatchRequest) (*IndexBatchResponse, error)
}

// RegisterRecognitionServer registers srv on s.
func RegisterRecognitionServer(s grpc.ServiceRegistrar, srv RecognitionServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecognitionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Recognize", Handler: recognizeHandler},
		{MethodName: "IndexBatch", Handler: indexBatchHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vision/v1/recognition.proto",
}

func recognizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		r, err := recognizeRequestFromProto(req.(*structpb.Struct))
		if err != nil {
			return nil, err
		}
		resp, err := srv.(RecognitionServer).Recognize(ctx, r)
		if err != nil {
			return nil, err
		}
		return resp.toProto(), nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRecognize}
	return interceptor(ctx, in, info, handler)
}

func indexBatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		r, err := indexBatchRequestFromProto(req.(*structpb.Struct))
		if err != nil {
			return nil, err
		}
		resp, err := srv.(RecognitionServer).IndexBatch(ctx, r)
		if err != nil {
			return nil, err
		}
		return resp.toProto(), nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodIndexBatch}
	return interceptor(ctx, in, info, handler)
}
