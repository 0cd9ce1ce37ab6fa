package tmdb

import (
	"fmt"
	"net/http"

	"github.com/John-Robertt/filmfiesta/internal/domain"
)

// ErrNotFound 可用 errors.Is 判断远端 404。
var ErrNotFound = domain.ErrNotFound

// HTTPStatusError 表示远端返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	Path       string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d path=%s", e.StatusCode, e.Path)
}

func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Error 是 gateway 单次操作的可追溯错误（哪个操作、因为什么）。
// 上层据此把区块标为 errored；需要“无结果即失败不可区分”的调用方可以直接忽略它。
type Error struct {
	Op  string // 例如 "trending" / "movie_details"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tmdb op=%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
