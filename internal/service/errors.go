package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrInvalidCursor  = errors.New("invalid since")
	ErrRoomBusy       = errors.New("room is busy, try again")
	ErrInternalServer = errors.New("internal server error")
)

// ValidationError 携带按字段划分的校验错误信息
type ValidationError struct {
	Fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add 为字段追加一条错误信息
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors 是否存在任何字段错误
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
