// Package pages 组装各页面需要的数据：每个区块独立加载、独立失败。
package pages

// NoticeKind 是提示的类型。
type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice 是一次性提示（页面渲染时以 toast 展示）。
type Notice struct {
	Kind NoticeKind
	Text string
}

func errorNotice(text string) Notice   { return Notice{Kind: NoticeError, Text: text} }
func successNotice(text string) Notice { return Notice{Kind: NoticeSuccess, Text: text} }

const (
	MsgLoadMoviesFailed  = "Failed to load movies. Please try again later."
	MsgLoadDetailsFailed = "Failed to load movie details. Please try again later."
	MsgRatingRequired    = "Please add a rating before submitting your review."
	MsgReviewAdded       = "Your review has been added!"
	MsgReviewSaveFailed  = "Failed to save your review. Please try again later."
)

// MovieSection 是带标题的电影列表区块。
type MovieSection struct {
	Title  string
	Movies Section
}

// dedupe 合并相同文本的提示（多个区块同时失败只提示一次）。
func dedupe(ns []Notice) []Notice {
	if len(ns) < 2 {
		return ns
	}
	seen := make(map[Notice]bool, len(ns))
	out := ns[:0]
	for _, n := range ns {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
