package pages

import "github.com/John-Robertt/filmfiesta/internal/domain"

// Section 是电影列表区块的状态。
type Section = domain.Section[[]domain.Movie]

// settleMovies 把 gateway 的“空列表 + 错误”归一成区块状态；Errored 时数据为空列表。
func settleMovies(movies []domain.Movie, err error) Section {
	if err != nil {
		s := domain.Errored[[]domain.Movie](err)
		s.Data = []domain.Movie{}
		return s
	}
	if movies == nil {
		movies = []domain.Movie{}
	}
	return domain.Loaded(movies)
}
