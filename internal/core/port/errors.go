// Package port file: internal/core/port/errors.go
package port

import (
	"errors"
	"fmt"
)

// Kind 是错误的稳定分类，HTTP 层依据它决定状态码。
type Kind uint8

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindData
	KindUnauthorized
	KindForbidden
)

var kindNames = [...]string{
	KindInternal:     "internal",
	KindBadRequest:   "bad_request",
	KindNotFound:     "not_found",
	KindData:         "data",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
}

// String 返回错误分类的稳定标识，会原样出现在响应体中。
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error 是带分类的业务错误。
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is 让 errors.Is(err, port.ErrNotFound) 这类判断按分类匹配，而不比较消息。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// 各分类的哨兵错误，仅用于 errors.Is 比较
var (
	ErrBadRequest   = &Error{Kind: KindBadRequest}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrData         = &Error{Kind: KindData}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// BadRequest 表示业务前置条件不满足，例如唯一键重复。
func BadRequest(format string, args ...any) error {
	return newError(KindBadRequest, format, args...)
}

// NotFound 表示按键查找/更新/删除时没有命中任何行。
func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

// DataError 表示传给 SQL 构造器的输入本身不合法（空更新集、倒置区间等）。
func DataError(format string, args ...any) error {
	return newError(KindData, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newError(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

// KindOf 取出错误链上第一个 *Error 的分类，找不到时视为内部错误。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
