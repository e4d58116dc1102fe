// Package errors provides the structured error type shared by the vision pipeline.
// Codes classify failures by scope (frame, file, backend) so callers can branch on them
// and so the same classification survives a round trip through gRPC status details.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Code classifies an AppError.
type Code int

const (
	CodeUnknown Code = iota
	CodeInternal
	CodeInvalidArgument
	CodeUnavailable
	CodeTimeout
	CodeCancelled
	CodeCaptureFailed
	CodeSecondaryCaptureFailed
	CodeDimensionMismatch
	CodeIncompatibleInput
	CodeIOFailure
	CodeOCRExtractFailed
	CodeOCRUnavailable
	CodeConfigInvalid
)

var codeNames = map[Code]string{
	CodeUnknown:                "UNKNOWN",
	CodeInternal:               "INTERNAL",
	CodeInvalidArgument:        "INVALID_ARGUMENT",
	CodeUnavailable:            "UNAVAILABLE",
	CodeTimeout:                "TIMEOUT",
	CodeCancelled:              "CANCELLED",
	CodeCaptureFailed:          "CAPTURE_FAILED",
	CodeSecondaryCaptureFailed: "SECONDARY_CAPTURE_FAILED",
	CodeDimensionMismatch:      "DIMENSION_MISMATCH",
	CodeIncompatibleInput:      "INCOMPATIBLE_INPUT",
	CodeIOFailure:              "IO_FAILURE",
	CodeOCRExtractFailed:       "OCR_EXTRACT_FAILED",
	CodeOCRUnavailable:         "OCR_UNAVAILABLE",
	CodeConfigInvalid:          "CONFIG_INVALID",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CODE_%d", int(c))
}

// codeFromName is the inverse of String, used when decoding status details.
func codeFromName(name string) Code {
	for c, n := range codeNames {
		if n == name {
			return c
		}
	}
	return CodeUnknown
}

var grpcCodeMap = map[Code]codes.Code{
	CodeUnknown:                codes.Unknown,
	CodeInternal:               codes.Internal,
	CodeInvalidArgument:        codes.InvalidArgument,
	CodeUnavailable:            codes.Unavailable,
	CodeTimeout:                codes.DeadlineExceeded,
	CodeCancelled:              codes.Canceled,
	CodeCaptureFailed:          codes.Unavailable,
	CodeSecondaryCaptureFailed: codes.Unavailable,
	CodeDimensionMismatch:      codes.InvalidArgument,
	CodeIncompatibleInput:      codes.InvalidArgument,
	CodeIOFailure:              codes.Internal,
	CodeOCRExtractFailed:       codes.Internal,
	CodeOCRUnavailable:         codes.FailedPrecondition,
	CodeConfigInvalid:          codes.InvalidArgument,
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

// GRPCStatus returns a gRPC status carrying the code and metadata as a Struct detail.
// status.FromError picks this up, so an AppError returned from a handler keeps its code.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	fields := map[string]any{
		"code":    e.Code.String(),
		"message": e.Message,
	}
	if len(e.Metadata) > 0 {
		md := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		fields["metadata"] = md
	}
	detail, err := structpb.NewStruct(fields)
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
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		s, ok := detail.(*structpb.Struct)
		if !ok {
			continue
		}
		f := s.GetFields()
		appErr := &AppError{
			Code:    codeFromName(f["code"].GetStringValue()),
			Message: f["message"].GetStringValue(),
		}
		if md := f["metadata"].GetStructValue(); md != nil {
			for k, v := range md.GetFields() {
				appErr.WithMetadata(k, v.GetStringValue())
			}
		}
		return appErr
	}

	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message()}
}

// grpcToCode maps gRPC codes back to our codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return CodeInvalidArgument
	case codes.Unavailable:
		return CodeUnavailable
	case codes.DeadlineExceeded:
		return CodeTimeout
	case codes.Canceled:
		return CodeCancelled
	case codes.Internal:
		return CodeInternal
	case codes.FailedPrecondition:
		return CodeOCRUnavailable
	default:
		return CodeUnknown
	}
}

// IsCode reports whether any AppError in err's chain has the given code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first AppError in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeUnavailable, CodeTimeout, CodeCaptureFailed:
		return true
	default:
		return false
	}
}
