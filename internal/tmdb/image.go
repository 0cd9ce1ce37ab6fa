package tmdb

import "strings"

const (
	ImageBaseURL   = "https://image.tmdb.org/t/p"
	PlaceholderURL = "https://via.placeholder.com/500x750?text=No+Image+Available"
)

// 远端 CDN 支持的尺寸标签。
const (
	SizeW45      = "w45"
	SizeW92      = "w92"
	SizeW154     = "w154"
	SizeW185     = "w185"
	SizeW342     = "w342"
	SizeW500     = "w500"
	SizeW780     = "w780"
	SizeW1280    = "w1280"
	SizeOriginal = "original"
)

// Sizes 列出全部尺寸标签（按宽度递增，original 最后）。
var Sizes = []string{SizeW45, SizeW92, SizeW154, SizeW185, SizeW342, SizeW500, SizeW780, SizeW1280, SizeOriginal}

// Resolver 把图片路径映射为完整 URL。零值可用（使用默认 base 与占位图）。
type Resolver struct {
	Base        string
	Placeholder string
}

// URL 是全函数：path 为空返回占位图；否则返回 {base}/{size}{path}。
// path 由远端给出，总是以 '/' 开头；size 为空时按 w500 处理。
func (r Resolver) URL(path, size string) string {
	if strings.TrimSpace(path) == "" {
		if r.Placeholder != "" {
			return r.Placeholder
		}
		return PlaceholderURL
	}
	base := strings.TrimRight(r.Base, "/")
	if base == "" {
		base = ImageBaseURL
	}
	if size == "" {
		size = SizeW500
	}
	return base + "/" + size + path
}

// ImageURL 使用默认 Resolver。
func ImageURL(path, size string) string {
	return Resolver{}.URL(path, size)
}
