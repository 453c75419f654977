package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/utils"
)

// AddReactionInput is the body of a reaction.
type AddReactionInput struct {
	Type models.ReactionType `json:"type" binding:"required"`
}

// ReactionResult is returned by Add.
type ReactionResult struct {
	Reaction *models.Reaction        `json:"reaction"`
	Replaced bool                    `json:"replaced"`
	Summary  *models.ReactionSummary `json:"summary"`
}

// ReactionService keeps at most one reaction per user and post.
type ReactionService struct {
	st store.Store
}

// NewReactionService creates a ReactionService.
func NewReactionService(st store.Store) *ReactionService {
	return &ReactionService{st: st}
}

// reactionSummary aggregates the per-type counts of a post and the viewer's own reaction.
func reactionSummary(ctx context.Context, st store.ReactionStore, postID, viewerID uint) (*models.ReactionSummary, error) {
	counts, err := st.CountReactions(ctx, postID)
	if err != nil {
		return nil, utils.Internal(err)
	}
	summary := models.NewReactionSummary()
	for t, n := range counts {
		summary.Counts[t] = n
		summary.Total += n
	}
	if viewerID != 0 {
		mine, err := st.FindReaction(ctx, postID, viewerID)
		switch {
		case err == nil:
			summary.Mine = mine
		case !errors.Is(err, store.ErrNotFound):
			return nil, utils.Internal(err)
		}
	}
	return summary, nil
}

// Add creates a reaction, or changes the type of the user's existing one in place.
// created reports whether a new row was written.
func (s *ReactionService) Add(ctx context.Context, postID, userID uint, in AddReactionInput) (res *ReactionResult, created bool, err error) {
	if !in.Type.Valid() {
		return nil, false, utils.BadRequest("type은 cheer, empathy, helpful, funny 중 하나여야 합니다.")
	}
	if _, err := s.st.GetPost(ctx, postID); err != nil {
		return nil, false, notFound(err, "게시글을 찾을 수 없습니다.")
	}

	res = &ReactionResult{}
	existing, err := s.st.FindReaction(ctx, postID, userID)
	switch {
	case err == nil:
		if existing.Type == in.Type {
			return nil, false, utils.Conflict(utils.CodeAlreadyReacted, "이미 같은 반응을 남겼습니다.")
		}
		updated, err := s.st.UpdateReactionType(ctx, existing.ID, in.Type)
		if err != nil {
			return nil, false, notFound(err, "반응을 찾을 수 없습니다.")
		}
		res.Reaction, res.Replaced = updated, true
	case errors.Is(err, store.ErrNotFound):
		reaction := &models.Reaction{PostID: postID, UserID: userID, Type: in.Type}
		if err := s.st.CreateReaction(ctx, reaction); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return nil, false, utils.Conflict(utils.CodeAlreadyReacted, "이미 반응을 남겼습니다.")
			}
			return nil, false, notFound(err, "게시글을 찾을 수 없습니다.")
		}
		res.Reaction, created = reaction, true
	default:
		return nil, false, utils.Internal(err)
	}

	if res.Summary, err = reactionSummary(ctx, s.st, postID, userID); err != nil {
		return nil, false, err
	}
	return res, created, nil
}

// Remove deletes the user's own reaction.
func (s *ReactionService) Remove(ctx context.Context, postID, reactionID, userID uint) error {
	reaction, err := s.st.GetReaction(ctx, reactionID)
	if err != nil {
		return notFound(err, "반응을 찾을 수 없습니다.")
	}
	if reaction.PostID != postID {
		return utils.NotFound("반응을 찾을 수 없습니다.")
	}
	if reaction.UserID != userID {
		return utils.NewError(http.StatusForbidden, utils.CodeForbidden, "본인의 반응만 삭제할 수 있습니다.")
	}
	if err := s.st.DeleteReaction(ctx, reactionID); err != nil {
		return notFound(err, "반응을 찾을 수 없습니다.")
	}
	return nil
}

// Summary returns the reaction counts of a post; viewerID 0 means anonymous.
func (s *ReactionService) Summary(ctx context.Context, postID, viewerID uint) (*models.ReactionSummary, error) {
	if _, err := s.st.GetPost(ctx, postID); err != nil {
		return nil, notFound(err, "게시글을 찾을 수 없습니다.")
	}
	return reactionSummary(ctx, s.st, postID, viewerID)
}
