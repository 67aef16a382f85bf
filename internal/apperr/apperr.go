package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidParticipant   Code = "INVALID_PARTICIPANT"
	CodeSelfConversation     Code = "SELF_CONVERSATION"
	CodeInvalidMessageText   Code = "INVALID_MESSAGE_TEXT"
	CodeConversationNotFound Code = "CONVERSATION_NOT_FOUND"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeAccessDenied         Code = "ACCESS_DENIED"
	CodeInternal             Code = "INTERNAL"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func InvalidParticipant(msg string) error { return New(CodeInvalidParticipant, msg) }

func SelfConversation(msg string) error { return New(CodeSelfConversation, msg) }

func InvalidMessageText(msg string) error { return New(CodeInvalidMessageText, msg) }

func ConversationNotFound(msg string) error { return New(CodeConversationNotFound, msg) }

func Unauthorized(msg string) error { return New(CodeUnauthorized, msg) }

func AccessDenied(msg string) error { return New(CodeAccessDenied, msg) }

func Internal(msg string, cause error) error { return Wrap(CodeInternal, msg, cause) }

// CodeOf returns the stable code carried by err, or CodeInternal for
// anything that is not an *Error.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool { return CodeOf(err) == code }
