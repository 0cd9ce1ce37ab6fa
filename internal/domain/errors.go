package domain

import "errors"

var (
	// ErrRatingRequired 表示提交时没有选择评分。
	ErrRatingRequired = errors.New("评分不能为空")
	// ErrRatingOutOfRange 表示评分不在 [1,10]。
	ErrRatingOutOfRange = errors.New("评分必须在 1 到 10 之间")
	// ErrNotFound 表示远端资源不存在（例如电影 ID 无效）。
	ErrNotFound = errors.New("not found")
)
