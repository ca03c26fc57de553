package recognizer

import (
	"context"
	"image"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
	"github.com/GriffinCanCode/platescan/internal/resilience"
	"github.com/GriffinCanCode/platescan/internal/trace"
)

// Wire names of the OCR service. Requests carry a PNG in a BytesValue and
// responses the recognized text in a StringValue.
const (
	ServiceName     = "platescan.ocr.v1.OCRService"
	RecognizeMethod = "/" + ServiceName + "/Recognize"
)

// GRPCClient calls a remote OCR service.
type GRPCClient struct {
	conn    *grpc.ClientConn
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// Dial creates a client for addr. The connection is established lazily.
func Dial(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.OCRInitFailed, "dial recognizer").WithMetadata("addr", addr)
	}
	return &GRPCClient{
		conn:    conn,
		breaker: resilience.NewBreaker("recognizer", resilience.DefaultConfig()),
		retry:   resilience.DefaultRetryConfig(),
	}, nil
}

// Breaker exposes the client's circuit breaker for hooks and metrics.
func (c *GRPCClient) Breaker() *resilience.Breaker { return c.breaker }

// Recognize sends img to the service.
func (c *GRPCClient) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	text, err := resilience.Call(c.breaker, func() (string, error) {
		resp := &wrapperspb.StringValue{}
		err := resilience.Retry(ctx, c.retry, func() error {
			return c.conn.Invoke(ctx, RecognizeMethod, wrapperspb.Bytes(data), resp)
		})
		return resp.GetValue(), err
	})
	if err != nil {
		if err == resilience.ErrOpen {
			return "", apperrors.Wrap(err, apperrors.Unavailable, "recognizer unavailable")
		}
		return "", apperrors.Wrap(apperrors.FromGRPCError(err), apperrors.RecognitionFailed, "remote recognize")
	}
	return normalize(text), nil
}

// Close closes the gRPC connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}
