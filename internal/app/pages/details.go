package pages

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/John-Robertt/filmfiesta/internal/domain"
)

const (
	TitleSimilar = "Similar Movies You Might Like"
	MsgNoReviews = "No reviews yet. Be the first to review this movie!"

	castLimit    = 6
	similarLimit = 10
)

type DetailsAPI interface {
	MovieDetails(ctx context.Context, id int) (*domain.Movie, error)
}

// ReviewStore 是详情页依赖的评论存储能力。
type ReviewStore interface {
	List(ctx context.Context, movieID int) ([]domain.Review, error)
	Submit(ctx context.Context, movieID, rating int, comment string) (domain.Review, error)
}

// DetailsView 是详情页数据。Movie 为 nil 时页面展示 “Movie Not Found”。
type DetailsView struct {
	ID        int
	Movie     *domain.Movie
	Directors []domain.Person
	Cast      []domain.Person
	Similar   MovieSection
	Reviews   domain.Section[[]domain.Review]
	Notices   []Notice
}

func (v DetailsView) NotFound() bool { return v.Movie == nil }

// ReviewsHeading 形如 “Reviews (N)”。
func (v DetailsView) ReviewsHeading() string {
	return fmt.Sprintf("Reviews (%d)", len(v.Reviews.Data))
}

type Details struct {
	api     DetailsAPI
	reviews ReviewStore
	log     *zap.Logger
}

func NewDetails(api DetailsAPI, reviews ReviewStore, log *zap.Logger) *Details {
	if log == nil {
		log = zap.NewNop()
	}
	return &Details{api: api, reviews: reviews, log: log}
}

// Load 一次请求拿到电影详情（含 credits/similar），评论单独从本地存储读取。
func (d *Details) Load(ctx context.Context, id int) DetailsView {
	v := DetailsView{ID: id}

	m, err := d.api.MovieDetails(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		v.Notices = append(v.Notices, errorNotice(MsgLoadDetailsFailed))
	}
	if m != nil {
		v.Movie = m
		v.Directors = m.Directors()
		v.Cast = m.TopCast(castLimit)
		v.Similar = MovieSection{Title: TitleSimilar, Movies: domain.Loaded(m.SimilarMovies(similarLimit))}
	}

	reviews, err := d.reviews.List(ctx, id)
	if err != nil {
		// 损坏的数据按空列表展示，不阻塞页面。
		d.log.Warn("读取评论失败", zap.Int("movie_id", id), zap.Error(err))
		reviews = []domain.Review{}
	}
	v.Reviews = domain.Loaded(reviews)
	return v
}

// SubmitReview 提交一条评论并返回需要展示的提示。
// 缺少评分时存储保持不变。
func (d *Details) SubmitReview(ctx context.Context, id, rating int, comment string) (Notice, error) {
	_, err := d.reviews.Submit(ctx, id, rating, comment)
	switch {
	case err == nil:
		return successNotice(MsgReviewAdded), nil
	case errors.Is(err, domain.ErrRatingRequired):
		return errorNotice(MsgRatingRequired), err
	case errors.Is(err, domain.ErrRatingOutOfRange):
		return errorNotice(MsgRatingRequired), err
	default:
		d.log.Error("保存评论失败", zap.Int("movie_id", id), zap.Error(err))
		return errorNotice(MsgReviewSaveFailed), err
	}
}
