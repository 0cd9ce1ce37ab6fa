package domain

import (
	"fmt"
	"time"
)

const (
	MinRating = 1
	MaxRating = 10
)

// Review 是用户在本地写下的评分/短评。
//
// 约束：
// - 只保存在本地 key/value 存储中，从不同步到任何服务端
// - 创建后不可编辑、不可删除
// - ID 由创建时刻（毫秒时间戳）派生
type Review struct {
	ID      int64     `json:"id"`
	Rating  int       `json:"rating"`
	Comment string    `json:"comment"`
	Date    time.Time `json:"date"`
}

// ValidateRating 校验评分区间 [1,10]；0 视为“未评分”。
func ValidateRating(r int) error {
	if r == 0 {
		return ErrRatingRequired
	}
	if r < MinRating || r > MaxRating {
		return fmt.Errorf("%w：%d", ErrRatingOutOfRange, r)
	}
	return nil
}
