package services

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/utils"
)

// CreateCommentInput is the body of a new comment or reply.
type CreateCommentInput struct {
	Content  string `json:"content" binding:"required,max=2000"`
	ParentID *uint  `json:"parentId"`
}

// UpdateCommentInput is the body of a comment edit.
type UpdateCommentInput struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// CommentService implements threaded comments and the answered flag.
type CommentService struct {
	st store.Store
}

// NewCommentService creates a CommentService.
func NewCommentService(st store.Store) *CommentService {
	return &CommentService{st: st}
}

func errAlreadyDeleted() error {
	return utils.NewError(http.StatusBadRequest, utils.CodeAlreadyDeleted, "이미 삭제된 댓글입니다.")
}

// List returns the thread of a post: top-level comments newest first, each with
// its replies oldest first. Tombstoned comments keep their place.
func (s *CommentService) List(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if _, err := s.st.GetPost(ctx, postID); err != nil {
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	all, err := s.st.ListComments(ctx, postID)
	if err != nil {
		return nil, utils.Internal(err)
	}
	ids := make([]uint, 0, len(all))
	for _, c := range all {
		ids = append(ids, c.AuthorID)
	}
	authors, err := summaries(ctx, s.st, ids)
	if err != nil {
		return nil, err
	}
	return buildThread(all, authors), nil
}

// buildThread nests comments under their parents. A comment whose parent is not
// part of this post is shown at the top level. all must be ordered oldest first.
func buildThread(all []*models.Comment, authors map[uint]*models.UserSummary) []*models.Comment {
	byID := make(map[uint]*models.Comment, len(all))
	for _, c := range all {
		c.Author = authors[c.AuthorID]
		c.Replies = []*models.Comment{}
		c.Present()
		byID[c.ID] = c
	}
	roots := []*models.Comment{}
	for _, c := range all {
		if root := threadRoot(c, byID); root != nil {
			root.Replies = append(root.Replies, c)
			continue
		}
		roots = append(roots, c)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		if !roots[i].CreatedAt.Equal(roots[j].CreatedAt) {
			return roots[i].CreatedAt.After(roots[j].CreatedAt)
		}
		return roots[i].ID > roots[j].ID
	})
	return roots
}

// threadRoot returns the top-level comment c hangs under, or nil when c is
// itself top-level here. Threads are one level deep, so replies to replies
// join their root's replies.
func threadRoot(c *models.Comment, byID map[uint]*models.Comment) *models.Comment {
	var root *models.Comment
	for cur, hops := c, 0; cur.ParentID != nil && hops < len(byID); hops++ {
		parent, ok := byID[*cur.ParentID]
		if !ok || parent.ID == c.ID {
			break
		}
		root, cur = parent, parent
	}
	return root
}

// Create adds a comment. A mentor's top-level comment on a mentee's post marks it answered.
func (s *CommentService) Create(ctx context.Context, postID, authorID uint, in CreateCommentInput) (*models.Comment, error) {
	post, err := s.st.GetPost(ctx, postID)
	if err != nil {
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	if in.ParentID != nil {
		if _, err := s.st.GetComment(ctx, *in.ParentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, utils.NewError(http.StatusNotFound, utils.CodeParentNotFound, "부모 댓글을 찾을 수 없습니다.")
			}
			return nil, utils.Internal(err)
		}
	}
	content := utils.Sanitize(in.Content)
	if content == "" {
		return nil, utils.BadRequest("댓글 내용을 입력해주세요.")
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: authorID,
		ParentID: in.ParentID,
		Content:  content,
		Status:   models.CommentActive,
	}
	if err := s.st.CreateComment(ctx, comment); err != nil {
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}

	users, err := summaries(ctx, s.st, []uint{authorID, post.AuthorID})
	if err != nil {
		return nil, err
	}
	if in.ParentID == nil && !post.IsAnswered {
		postAuthor, commenter := users[post.AuthorID], users[authorID]
		if postAuthor != nil && commenter != nil &&
			postAuthor.Role == models.RoleMentee && commenter.Role == models.RoleMentor {
			if err := s.st.MarkPostAnswered(ctx, postID); err != nil {
				return nil, utils.Internal(err)
			}
		}
	}
	invalidateLists(ctx)

	comment.Author = users[authorID]
	comment.Replies = []*models.Comment{}
	return comment.Present(), nil
}

// ownedComment loads a comment of postID and checks that userID wrote it.
func (s *CommentService) ownedComment(ctx context.Context, postID, commentID, userID uint, action string) (*models.Comment, error) {
	comment, err := s.comment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, utils.Forbidden("본인의 댓글만 " + action + "할 수 있습니다.")
	}
	return comment, nil
}

// comment loads commentID and checks that it belongs to postID.
func (s *CommentService) comment(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	comment, err := s.st.GetComment(ctx, commentID)
	if err != nil {
		return nil, notFound(err, "댓글을 찾을 수 없습니다.")
	}
	if comment.PostID != postID {
		return nil, utils.NotFound("댓글을 찾을 수 없습니다.")
	}
	return comment, nil
}

// Update edits an author's own active comment.
func (s *CommentService) Update(ctx context.Context, postID, commentID, userID uint, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.ownedComment(ctx, postID, commentID, userID, "수정")
	if err != nil {
		return nil, err
	}
	if comment.Deleted() {
		return nil, errAlreadyDeleted()
	}
	content := utils.Sanitize(in.Content)
	if content == "" {
		return nil, utils.BadRequest("댓글 내용을 입력해주세요.")
	}
	if err := s.st.UpdateCommentContent(ctx, commentID, content); err != nil {
		return nil, notFound(err, "댓글을 찾을 수 없습니다.")
	}
	updated, err := s.st.GetComment(ctx, commentID)
	if err != nil {
		return nil, notFound(err, "댓글을 찾을 수 없습니다.")
	}
	users, err := summaries(ctx, s.st, []uint{userID})
	if err != nil {
		return nil, err
	}
	updated.Author = users[userID]
	return updated.Present(), nil
}

// Delete tombstones an author's own comment. The post stays answered.
func (s *CommentService) Delete(ctx context.Context, postID, commentID, userID uint) error {
	comment, err := s.ownedComment(ctx, postID, commentID, userID, "삭제")
	if err != nil {
		return err
	}
	if comment.Deleted() {
		return errAlreadyDeleted()
	}
	if err := s.st.SoftDeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// lost a race with another delete
			return errAlreadyDeleted()
		}
		return utils.Internal(err)
	}
	invalidateLists(ctx)
	return nil
}

// Like records userID's like on a comment.
func (s *CommentService) Like(ctx context.Context, postID, commentID, userID uint) (*LikeResult, error) {
	comment, err := s.comment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.Deleted() {
		return nil, errAlreadyDeleted()
	}
	count, err := s.st.AddLike(ctx, &models.Like{TargetType: models.TargetComment, TargetID: commentID, UserID: userID})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, utils.Conflict(utils.CodeAlreadyLiked, "이미 좋아요를 눌렀습니다.")
	case err != nil:
		return nil, notFound(err, "댓글을 찾을 수 없습니다.")
	}
	return &LikeResult{Liked: true, LikeCount: count}, nil
}

// Unlike removes userID's like from a comment.
func (s *CommentService) Unlike(ctx context.Context, postID, commentID, userID uint) (*LikeResult, error) {
	if _, err := s.comment(ctx, postID, commentID); err != nil {
		return nil, err
	}
	count, err := s.st.RemoveLike(ctx, models.TargetComment, commentID, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, utils.NewError(http.StatusBadRequest, utils.CodeNotLiked, "좋아요를 누르지 않은 댓글입니다.")
	case err != nil:
		return nil, utils.Internal(err)
	}
	return &LikeResult{Liked: false, LikeCount: count}, nil
}
