package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ssaemtalk/server/config"
	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/utils"
)

const postListCachePrefix = "posts:list:"

// CreatePostInput is the body of a new post.
type CreatePostInput struct {
	Title        string              `json:"title" binding:"required,max=200"`
	Content      string              `json:"content" binding:"required,max=10000"`
	Category     models.Category     `json:"category" binding:"required"`
	TeacherLevel models.TeacherLevel `json:"teacherLevel"`
	Tags         []string            `json:"tags" binding:"max=10,dive,max=30"`
	Images       []string            `json:"images" binding:"max=10,dive,max=512"`
}

// UpdatePostInput carries optional edits; nil fields are left unchanged.
type UpdatePostInput struct {
	Title        *string              `json:"title" binding:"omitempty,min=1,max=200"`
	Content      *string              `json:"content" binding:"omitempty,min=1,max=10000"`
	Category     *models.Category     `json:"category"`
	TeacherLevel *models.TeacherLevel `json:"teacherLevel"`
	Tags         *[]string            `json:"tags" binding:"omitempty,max=10,dive,max=30"`
	Images       *[]string            `json:"images" binding:"omitempty,max=10,dive,max=512"`
}

// PostQuery is the query string of list and search.
type PostQuery struct {
	Q            string              `form:"q"`
	Category     models.Category     `form:"category"`
	TeacherLevel models.TeacherLevel `form:"teacherLevel"`
	IsAnswered   *bool               `form:"isAnswered"`
	AuthorID     uint                `form:"authorId"`
	SortBy       string              `form:"sortBy" binding:"omitempty,oneof=latest popular"`
	Page         int                 `form:"page" binding:"omitempty,min=1"`
	Limit        int                 `form:"limit" binding:"omitempty,min=1,max=100"`
}

// PostList is one page of posts.
type PostList struct {
	Posts      []*models.Post `json:"posts"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

// LikeResult reports the state of a target after a like or unlike.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
	IsHot     bool  `json:"isHot,omitempty"`
}

// PostService implements post CRUD, listing and likes.
type PostService struct {
	st store.Store
}

// NewPostService creates a PostService.
func NewPostService(st store.Store) *PostService {
	return &PostService{st: st}
}

func (q PostQuery) filter() (store.PostFilter, error) {
	if q.Category != "" && !q.Category.Valid() {
		return store.PostFilter{}, utils.BadRequest("카테고리가 올바르지 않습니다.")
	}
	if q.TeacherLevel != "" && !q.TeacherLevel.Valid() {
		return store.PostFilter{}, utils.BadRequest("teacherLevel이 올바르지 않습니다.")
	}
	return store.PostFilter{
		Category:     q.Category,
		TeacherLevel: q.TeacherLevel,
		IsAnswered:   q.IsAnswered,
		AuthorID:     q.AuthorID,
		Query:        strings.TrimSpace(q.Q),
		Sort:         store.PostSort(q.SortBy),
		Page:         q.Page,
		Limit:        q.Limit,
	}, nil
}

// List returns a filtered, sorted page of posts. The free-text q is ignored here.
func (s *PostService) List(ctx context.Context, q PostQuery) (*PostList, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	f.Query = ""
	return s.list(ctx, f)
}

// Search matches q against title, content and tags, newest first.
func (s *PostService) Search(ctx context.Context, q PostQuery) (*PostList, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	if f.Query == "" {
		return nil, utils.BadRequest("검색어를 입력해주세요.")
	}
	f.Sort = store.SortLatest
	return s.list(ctx, f)
}

func cacheKey(f store.PostFilter) string {
	b, _ := json.Marshal(f)
	sum := sha1.Sum(b)
	return postListCachePrefix + hex.EncodeToString(sum[:])
}

func (s *PostService) list(ctx context.Context, f store.PostFilter) (*PostList, error) {
	f.Normalize()
	key, ttl := cacheKey(f), time.Duration(config.Get().PostListCacheSeconds)*time.Second
	var cached PostList
	if ttl > 0 && utils.CacheGetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	posts, total, err := s.st.ListPosts(ctx, f)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if err := s.attachAuthors(ctx, posts...); err != nil {
		return nil, err
	}
	out := &PostList{
		Posts:      posts,
		Total:      total,
		Page:       f.Page,
		TotalPages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
	}
	if ttl > 0 {
		utils.CacheSetJSON(ctx, key, out, ttl)
	}
	return out, nil
}

// invalidateLists drops cached listings after any change that can reorder or alter them.
func invalidateLists(ctx context.Context) {
	utils.InvalidateByPrefix(ctx, postListCachePrefix)
}

func (s *PostService) attachAuthors(ctx context.Context, posts ...*models.Post) error {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	users, err := summaries(ctx, s.st, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.Author = users[p.AuthorID]
	}
	return nil
}

// Get counts a view and returns the post with its author and reaction summary.
// viewerID may be 0 for anonymous readers.
func (s *PostService) Get(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	post, err := s.st.IncrementPostCounter(ctx, id, models.CounterViews, 1)
	if err != nil {
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	if err := s.attachAuthors(ctx, post); err != nil {
		return nil, err
	}
	summary, err := reactionSummary(ctx, s.st, id, viewerID)
	if err != nil {
		return nil, err
	}
	post.Reactions = summary
	return post, nil
}

func validatePostFields(cat models.Category, level models.TeacherLevel) error {
	if !cat.Valid() {
		return utils.BadRequest("카테고리가 올바르지 않습니다.")
	}
	if level != "" && !level.Valid() {
		return utils.BadRequest("teacherLevel이 올바르지 않습니다.")
	}
	return nil
}

// Create stores a new post written by authorID.
func (s *PostService) Create(ctx context.Context, authorID uint, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Category, in.TeacherLevel); err != nil {
		return nil, err
	}
	title := utils.SanitizePlain(in.Title)
	content := utils.Sanitize(in.Content)
	if title == "" || content == "" {
		return nil, utils.BadRequest("제목과 내용을 입력해주세요.")
	}
	level := in.TeacherLevel
	if level == "" {
		level = models.LevelElementary
	}
	post := &models.Post{
		Title:        title,
		Content:      content,
		AuthorID:     authorID,
		Category:     in.Category,
		TeacherLevel: level,
		Tags:         utils.SanitizeList(in.Tags),
		Images:       trimList(in.Images),
	}
	if err := s.st.CreatePost(ctx, post); err != nil {
		return nil, utils.Internal(err)
	}
	invalidateLists(ctx)
	if err := s.attachAuthors(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ownedPost loads a post and checks that userID wrote it.
func (s *PostService) ownedPost(ctx context.Context, id, userID uint, action string) (*models.Post, error) {
	post, err := s.st.GetPost(ctx, id)
	if err != nil {
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	if post.AuthorID != userID {
		return nil, utils.Forbidden("본인의 게시글만 " + action + "할 수 있습니다.")
	}
	return post, nil
}

// Update edits an author's own post.
func (s *PostService) Update(ctx context.Context, id, userID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, id, userID, "수정")
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		post.Title = utils.SanitizePlain(*in.Title)
	}
	if in.Content != nil {
		post.Content = utils.Sanitize(*in.Content)
	}
	if post.Title == "" || post.Content == "" {
		return nil, utils.BadRequest("제목과 내용을 입력해주세요.")
	}
	if in.Category != nil {
		post.Category = *in.Category
	}
	if in.TeacherLevel != nil {
		post.TeacherLevel = *in.TeacherLevel
	}
	if err := validatePostFields(post.Category, post.TeacherLevel); err != nil {
		return nil, err
	}
	if in.Tags != nil {
		post.Tags = utils.SanitizeList(*in.Tags)
	}
	if in.Images != nil {
		post.Images = trimList(*in.Images)
	}
	if err := s.st.SavePost(ctx, post); err != nil {
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	invalidateLists(ctx)
	if err := s.attachAuthors(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes an author's own post with everything attached to it.
func (s *PostService) Delete(ctx context.Context, id, userID uint) error {
	if _, err := s.ownedPost(ctx, id, userID, "삭제"); err != nil {
		return err
	}
	if err := s.st.DeletePost(ctx, id); err != nil {
		return notFound(err, "게시글을 찾을 수 없습니다.")
	}
	invalidateLists(ctx)
	return nil
}

// Like records userID's like on a post.
func (s *PostService) Like(ctx context.Context, id, userID uint) (*LikeResult, error) {
	count, err := s.st.AddLike(ctx, &models.Like{TargetType: models.TargetPost, TargetID: id, UserID: userID})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, utils.Conflict(utils.CodeAlreadyLiked, "이미 좋아요를 눌렀습니다.")
	case err != nil:
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	hot, err := s.refreshHot(ctx, id)
	if err != nil {
		return nil, err
	}
	invalidateLists(ctx)
	return &LikeResult{Liked: true, LikeCount: count, IsHot: hot}, nil
}

// Unlike removes userID's like from a post.
func (s *PostService) Unlike(ctx context.Context, id, userID uint) (*LikeResult, error) {
	if _, err := s.st.GetPost(ctx, id); err != nil {
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	count, err := s.st.RemoveLike(ctx, models.TargetPost, id, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, utils.NewError(http.StatusBadRequest, utils.CodeNotLiked, "좋아요를 누르지 않은 게시글입니다.")
	case err != nil:
		return nil, utils.Internal(err)
	}
	hot, err := s.refreshHot(ctx, id)
	if err != nil {
		return nil, err
	}
	invalidateLists(ctx)
	return &LikeResult{Liked: false, LikeCount: count, IsHot: hot}, nil
}

// refreshHot recomputes isHot from the stored like count.
func (s *PostService) refreshHot(ctx context.Context, id uint) (bool, error) {
	threshold := config.Get().HotPostLikeThreshold
	if threshold <= 0 {
		return false, nil
	}
	hot, err := s.st.RecomputePostHot(ctx, id, int64(threshold))
	if err != nil {
		return false, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	return hot, nil
}
