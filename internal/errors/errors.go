// Package errors provides unified error handling with structured error codes.
// Codes travel across the recognizer gRPC boundary as a structpb detail.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Code classifies an AppError.
type Code int

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	InvalidDimension
	FrameAcquisitionFailed
	RecognitionFailed
	OCRInitFailed
	CatalogLoadFailed
	ConfigInvalid
	Unavailable
	Timeout
	Cancelled
)

var codeNames = map[Code]string{
	Unknown:                "UNKNOWN",
	Internal:               "INTERNAL",
	InvalidArgument:        "INVALID_ARGUMENT",
	InvalidDimension:       "INVALID_DIMENSION",
	FrameAcquisitionFailed: "FRAME_ACQUISITION_FAILED",
	RecognitionFailed:      "RECOGNITION_FAILED",
	OCRInitFailed:          "OCR_INIT_FAILED",
	CatalogLoadFailed:      "CATALOG_LOAD_FAILED",
	ConfigInvalid:          "CONFIG_INVALID",
	Unavailable:            "UNAVAILABLE",
	Timeout:                "TIMEOUT",
	Cancelled:              "CANCELLED",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseCode is the inverse of Code.String.
func ParseCode(s string) Code {
	for c, n := range codeNames {
		if n == s {
			return c
		}
	}
	return Unknown
}

// grpcCodeMap maps Code to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	Unknown:                codes.Unknown,
	Internal:               codes.Internal,
	InvalidArgument:        codes.InvalidArgument,
	InvalidDimension:       codes.InvalidArgument,
	FrameAcquisitionFailed: codes.Unavailable,
	RecognitionFailed:      codes.Internal,
	OCRInitFailed:          codes.Unavailable,
	CatalogLoadFailed:      codes.FailedPrecondition,
	ConfigInvalid:          codes.InvalidArgument,
	Unavailable:            codes.Unavailable,
	Timeout:                codes.DeadlineExceeded,
	Cancelled:              codes.Canceled,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// Detail encodes the error as a structpb.Struct for status details.
func (e *AppError) Detail() (*structpb.Struct, error) {
	md := make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		md[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"code":     e.Code.String(),
		"message":  e.Message,
		"metadata": md,
	})
}

// GRPCStatus returns a gRPC status with the error detail attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	detail, err := e.Detail()
	if err != nil {
		return st
	}
	if withDetail, err := st.WithDetails(detail); err == nil {
		return withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts an AppError from a gRPC error if present.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: Unknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		var s *structpb.Struct
		switch d := detail.(type) {
		case *structpb.Struct:
			s = d
		case *anypb.Any:
			s = &structpb.Struct{}
			if d.UnmarshalTo(s) != nil {
				continue
			}
		default:
			continue
		}
		if appErr := fromDetail(s); appErr != nil {
			return appErr
		}
	}

	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message(), Cause: err}
}

func fromDetail(s *structpb.Struct) *AppError {
	fields := s.GetFields()
	code, ok := fields["code"]
	if !ok {
		return nil
	}
	appErr := &AppError{
		Code:    ParseCode(code.GetStringValue()),
		Message: fields["message"].GetStringValue(),
	}
	if md := fields["metadata"].GetStructValue(); md != nil {
		for k, v := range md.GetFields() {
			appErr.WithMetadata(k, v.GetStringValue())
		}
	}
	return appErr
}

// grpcToCode maps gRPC codes back to our error codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return InvalidArgument
	case codes.Unavailable:
		return Unavailable
	case codes.DeadlineExceeded:
		return Timeout
	case codes.Canceled:
		return Cancelled
	case codes.Internal:
		return Internal
	default:
		return Unknown
	}
}

// IsCode checks if any error in the chain has a specific error code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case Unavailable, Timeout, FrameAcquisitionFailed:
		return true
	default:
		return false
	}
}
