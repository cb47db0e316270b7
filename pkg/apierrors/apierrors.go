package apierrors

import "errors"

// Code 表示统一业务错误码。
type Code string

const (
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeDuplicateAccount     Code = "DUPLICATE_ACCOUNT"
	CodeUnknownAccount       Code = "UNKNOWN_ACCOUNT"
	CodeMalformedTransaction Code = "MALFORMED_TRANSACTION"
	CodeBroadcastRejected    Code = "BROADCAST_REJECTED"
)

var httpStatusMap = map[Code]int{
	CodeInvalidArgument:      400,
	CodeUnauthorized:         401,
	CodeDuplicateAccount:     409,
	CodeUnknownAccount:       500,
	CodeMalformedTransaction: 500,
	CodeBroadcastRejected:    502,
}

// Error 表示带统一错误码的业务错误。
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New 创建一个新的业务错误。
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap 创建携带底层错误的业务错误，Message 为空时沿用底层错误文本。
func Wrap(code Code, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap 暴露底层错误，兼容 errors.Is/As。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// FromError 尝试从通用 error 中解析业务错误。
func FromError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HTTPStatus 返回对应的 HTTP 状态码，未知错误默认 500。
func HTTPStatus(code Code) int {
	if status, ok := httpStatusMap[code]; ok {
		return status
	}
	return 500
}

// Is 判断 err 是否携带指定错误码。
func Is(err error, code Code) bool {
	apiErr, ok := FromError(err)
	return ok && apiErr.Code == code
}
