package errs

import (
	"errors"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Error codes. 1xx transport, 2xx media, 3xx access.
const (
	CodeTransportUnavailable  = 101
	CodeMalformedFrame        = 102
	CodeAttachmentTooLarge    = 201
	CodeMicrophoneUnavailable = 202
	CodeRecorderBusy          = 203
	CodeValidationDenied      = 301
	CodeUnknownRole           = 302
	CodeServerInternal        = 500
)

var (
	ErrTransportUnavailable  = NewCodeError(CodeTransportUnavailable, "transport unavailable")
	ErrMalformedFrame        = NewCodeError(CodeMalformedFrame, "malformed frame")
	ErrAttachmentTooLarge    = NewCodeError(CodeAttachmentTooLarge, "attachment too large")
	ErrMicrophoneUnavailable = NewCodeError(CodeMicrophoneUnavailable, "microphone unavailable")
	ErrRecorderBusy          = NewCodeError(CodeRecorderBusy, "recorder busy")
	ErrValidationDenied      = NewCodeError(CodeValidationDenied, "room validation denied")
	ErrUnknownRole           = NewCodeError(CodeUnknownRole, "no route for role")
	ErrServerInternal        = NewCodeError(CodeServerInternal, "server internal error")
)

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	var d string
	if e.Detail == "" {
		d = detail
	} else {
		d = e.Detail + ", " + detail
	}
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

func (e *CodeError) Wrap() error {
	return pkgerrors.WithStack(e)
}

func (e *CodeError) WrapMsg(msg string) error {
	return pkgerrors.WithStack(e.WithDetail(msg))
}

// Is matches on code so wrapped and detailed copies compare equal
// to the package sentinels under errors.Is.
func (e *CodeError) Is(err error) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return e.Code == codeErr.Code
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, msg)
}

// CodeOf returns the embedded code, or CodeServerInternal for foreign errors.
func CodeOf(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerInternal
}
