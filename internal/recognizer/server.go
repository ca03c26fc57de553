package recognizer

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
	"github.com/GriffinCanCode/platescan/internal/trace"
)

type ocrServer interface {
	recognize(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
}

type engineServer struct {
	engine Engine
}

func (s *engineServer) recognize(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	img, _, err := image.Decode(bytes.NewReader(in.GetValue()))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidArgument, "decode region").GRPCStatus().Err()
	}
	text, err := s.engine.Recognize(ctx, img)
	if err != nil {
		trace.Logger(ctx).Debug("recognize failed", "error", err)
		var appErr *apperrors.AppError
		if stderrors.As(err, &appErr) {
			return nil, appErr.GRPCStatus().Err()
		}
		return nil, apperrors.Wrap(err, apperrors.RecognitionFailed, "recognize").GRPCStatus().Err()
	}
	return wrapperspb.String(text), nil
}

func recognizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ocrServer).recognize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RecognizeMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ocrServer).recognize(ctx, req.(*wrapperspb.BytesValue))
	})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ocrServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Recognize", Handler: recognizeHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// Register exposes engine as the OCR service on s.
func Register(s *grpc.Server, engine Engine) {
	s.RegisterService(&serviceDesc, &engineServer{engine: engine})
}
