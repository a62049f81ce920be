package gan

import "fmt"

// Error はクライアントに返すエラーコードとメッセージを保持します。
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeJobNotFound  = "JOB_NOT_FOUND"
	CodeQueueFull    = "QUEUE_FULL"
	CodeStoreFull    = "STORE_FULL"
	CodeInternal     = "INTERNAL_ERROR"
)
