package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类型
type Kind string

const (
	KindInvalidAmount           Kind = "InvalidAmount"
	KindCampaignNotActive       Kind = "CampaignNotActive"
	KindUnauthorized            Kind = "Unauthorized"
	KindBelowThreshold          Kind = "BelowThreshold"
	KindInsufficientApprovals   Kind = "InsufficientApprovals"
	KindInvalidState            Kind = "InvalidState"
	KindInsufficientPoolBalance Kind = "InsufficientPoolBalance"
	KindStreamNotActive         Kind = "StreamNotActive"
	KindInvalidWindow           Kind = "InvalidWindow"
	KindNothingToClaim          Kind = "NothingToClaim"
	KindNotFound                Kind = "NotFound"
)

// Error 结构化业务错误，携带错误类型和出错字段
type Error struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is 按错误类型匹配
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New 创建业务错误
func New(kind Kind, field, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf 提取错误类型，非业务错误返回空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 判断错误是否为指定类型
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
