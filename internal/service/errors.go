package service

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAggregateContention 文章统计的条件更新多次重试后仍冲突
	ErrAggregateContention = errors.New("article aggregate update contention")
)
