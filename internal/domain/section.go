package domain

// LoadState 是页面中单个数据区块的加载状态。
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateErrored
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Section 把“状态 + 数据 + 错误”绑在一起，替代若干独立的布尔标记。
//
// 约束：
// - Errored 时 Data 为零值（列表类即空列表），Err 为面向用户的错误描述
// - Loaded 时 Err 为空
type Section[T any] struct {
	State LoadState
	Data  T
	Err   string
}

func Loading[T any]() Section[T] {
	return Section[T]{State: StateLoading}
}

func Loaded[T any](v T) Section[T] {
	return Section[T]{State: StateLoaded, Data: v}
}

func Errored[T any](err error) Section[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Section[T]{State: StateErrored, Err: msg}
}

// Settle 根据 err 得到 Loaded 或 Errored。
func Settle[T any](v T, err error) Section[T] {
	if err != nil {
		return Errored[T](err)
	}
	return Loaded(v)
}

func (s Section[T]) IsIdle() bool    { return s.State == StateIdle }
func (s Section[T]) IsLoading() bool { return s.State == StateLoading }
func (s Section[T]) IsLoaded() bool  { return s.State == StateLoaded }
func (s Section[T]) IsErrored() bool { return s.State == StateErrored }

// Settled 表示该区块已经有了最终结果（成功或失败）。
func (s Section[T]) Settled() bool {
	return s.State == StateLoaded || s.State == StateErrored
}
