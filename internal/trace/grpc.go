package trace

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientInterceptor injects trace context into outgoing gRPC calls.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(injectMetadata(ctx), method, req, reply, cc, opts...)
	}
}

// UnaryServerInterceptor continues the caller's trace, or starts one.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(WithContext(ctx, extractMetadata(ctx)), req)
	}
}

func injectMetadata(ctx context.Context) context.Context {
	ctx, tc := EnsureContext(ctx)

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	md.Set(TraceparentKey, tc.Traceparent())
	md.Set(TraceIDKey, tc.TraceID)
	md.Set(SpanIDKey, tc.SpanID)

	return metadata.NewOutgoingContext(ctx, md)
}

func extractMetadata(ctx context.Context) Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return New()
	}
	if v := md.Get(TraceparentKey); len(v) > 0 {
		if tc, ok := ParseTraceparent(v[0]); ok {
			return tc
		}
	}
	if v := md.Get(TraceIDKey); len(v) > 0 && v[0] != "" {
		tc := Context{TraceID: v[0], SpanID: generateSpanID()}
		if s := md.Get(SpanIDKey); len(s) > 0 {
			tc.ParentSpanID = s[0]
		}
		return tc
	}
	return New()
}
