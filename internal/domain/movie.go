package domain

import (
	"math"
	"strconv"
	"strings"
)

// Movie 是远端元数据服务返回的电影实体（只读）。
//
// 约束：
// - 字段全部来自远端，本地从不修改
// - 任何字段都可能缺失：读取方必须容忍零值（Credits/Similar 可能为 nil）
type Movie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"` // "2006-01-02"，可能为空
	VoteAverage  float64 `json:"vote_average"`
	Runtime      int     `json:"runtime"`
	Genres       []Genre `json:"genres,omitempty"`

	Credits *Credits   `json:"credits,omitempty"`
	Similar *MoviePage `json:"similar,omitempty"`
}

// Genre 来自远端的静态类型列表。
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Person 既可以是演员（Character）也可以是幕后（Job），也用于人物搜索结果。
type Person struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	ProfilePath        string `json:"profile_path"`
	Character          string `json:"character,omitempty"`
	Job                string `json:"job,omitempty"`
	KnownForDepartment string `json:"known_for_department,omitempty"`
}

type Credits struct {
	Cast []Person `json:"cast"`
	Crew []Person `json:"crew"`
}

// MoviePage 对应远端的分页列表响应（只关心 results）。
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Year 返回上映年份；日期缺失或无法解析时返回 0。
func (m Movie) Year() int {
	s := strings.TrimSpace(m.ReleaseDate)
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return y
}

// Rating 把评分四舍五入到一位小数（0 表示无评分）。
func (m Movie) Rating() float64 {
	return math.Round(m.VoteAverage*10) / 10
}

// Directors 返回 crew 中 job=Director 的人（保持原顺序）。
func (m Movie) Directors() []Person {
	if m.Credits == nil {
		return nil
	}
	var out []Person
	for _, p := range m.Credits.Crew {
		if p.Job == "Director" {
			out = append(out, p)
		}
	}
	return out
}

// TopCast 返回前 n 位演员。
func (m Movie) TopCast(n int) []Person {
	if m.Credits == nil {
		return nil
	}
	return head(m.Credits.Cast, n)
}

// SimilarMovies 返回前 n 部相似电影。
func (m Movie) SimilarMovies(n int) []Movie {
	if m.Similar == nil {
		return nil
	}
	return head(m.Similar.Results, n)
}

func head[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		s = s[:n]
	}
	return append([]T(nil), s...)
}
