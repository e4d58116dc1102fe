// Package grpcclient talks to the recognition sidecar: remote OCR and the downstream text indexer.
package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/resilience"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/trace"
)

// Options configures a Client.
type Options struct {
	RecognizeBreaker resilience.Config
	IndexBreaker     resilience.Config
	RecognizeRetry   resilience.RetryConfig
	IndexRetry       resilience.RetryConfig
	DialOptions      []grpc.DialOption
}

// DefaultOptions returns production settings.
func DefaultOptions() Options {
	return Options{
		RecognizeBreaker: resilience.DefaultConfig(),
		IndexBreaker:     resilience.IndexConfig(),
		RecognizeRetry:   resilience.DefaultRetryConfig(),
		IndexRetry:       resilience.IndexRetryConfig(),
	}
}

// Client wraps the recognition connection. Each method has its own breaker so a failing
// indexer does not stop OCR.
type Client struct {
	conn      *grpc.ClientConn
	opts      Options
	recognize *resilience.Breaker
	index     *resilience.Breaker
}

// New creates a client for addr. The connection is established lazily.
func New(addr string, opts Options) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                DefaultKeepaliveTime,
			Timeout:             DefaultKeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	}
	conn, err := grpc.NewClient(addr, append(dialOpts, opts.DialOptions...)...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "create recognition client").
			WithMetadata("addr", addr)
	}

	return &Client{
		conn:      conn,
		opts:      opts,
		recognize: resilience.New(opts.RecognizeBreaker),
		index:     resilience.New(opts.IndexBreaker),
	}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// BreakerStates reports the recognize and index breaker states.
func (c *Client) BreakerStates() (recognize, index resilience.State) {
	return c.recognize.State(), c.index.State()
}

// Recognize returns the full text of a PNG image. It satisfies ocr.Recognizer.
func (c *Client) Recognize(ctx context.Context, png []byte, engine, language string) (string, error) {
	if len(png) == 0 {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "empty image")
	}
	ctx, span := trace.StartSpan(ctx, "grpc.recognize")
	defer span.End()
	span.SetAttr("engine", engine)
	span.SetAttr("bytes", len(png))

	req := &RecognizeRequest{Image: png, Engine: engine, Language: language}
	resp, err := call(ctx, c, c.recognize, c.opts.RecognizeRetry, DefaultRecognizeTimeout, methodRecognize, req.toProto())
	if err != nil {
		return "", err
	}
	return recognizeResponseFromProto(resp).Text, nil
}

// IndexBatch sends items to the downstream indexer and returns how many it accepted.
func (c *Client) IndexBatch(ctx context.Context, items []IndexItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	ctx, span := trace.StartSpan(ctx, "grpc.index_batch")
	defer span.End()
	span.SetAttr("items", len(items))

	req := &IndexBatchRequest{Items: items}
	resp, err := call(ctx, c, c.index, c.opts.IndexRetry, DefaultIndexTimeout, methodIndexBatch, req.toProto())
	if err != nil {
		trace.Logger(ctx).Warn("failed to index batch", "items", len(items), "error", err)
		return 0, err
	}
	return indexBatchResponseFromProto(resp).Accepted, nil
}

// call runs one unary RPC behind breaker b, retrying transient failures per cfg.
func call(ctx context.Context, c *Client, b *resilience.Breaker, cfg resilience.RetryConfig, timeout time.Duration, method string, req *structpb.Struct) (*structpb.Struct, error) {
	return resilience.ExecuteWithResult(b, func() (*structpb.Struct, error) {
		resp := new(structpb.Struct)
		err := resilience.Retry(ctx, cfg, func() error {
			callCtx, cancel := withDefaultTimeout(ctx, timeout)
			defer cancel()
			if err := c.conn.Invoke(callCtx, method, req, resp); err != nil {
				return apperrors.FromGRPCError(err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
