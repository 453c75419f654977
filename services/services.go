// Package services holds the business rules of the community. Every service
// works against store.Store, so the same rules apply to every storage adapter.
package services

import (
	"context"
	"errors"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
	"github.com/ssaemtalk/server/utils"
)

// Services bundles every service sharing one store.
type Services struct {
	Auth      *AuthService
	OAuth     *OAuthService
	Posts     *PostService
	Comments  *CommentService
	Reactions *ReactionService
	Chat      *ChatService
	Stats     *StatsService
}

// New wires all services to st. hub may be nil, in which case chat events are not published.
func New(st store.Store, hub *utils.RoomHub) *Services {
	auth := NewAuthService(st)
	return &Services{
		Auth:      auth,
		OAuth:     NewOAuthService(auth),
		Posts:     NewPostService(st),
		Comments:  NewCommentService(st),
		Reactions: NewReactionService(st),
		Chat:      NewChatService(st, hub),
		Stats:     NewStatsService(st),
	}
}

// notFound maps store.ErrNotFound onto a 404 with message, passing other errors through as internal.
func notFound(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return utils.NotFound(message)
	}
	return utils.Internal(err)
}

// summaries loads the public view of every user in ids.
func summaries(ctx context.Context, users store.UserStore, ids []uint) (map[uint]*models.UserSummary, error) {
	found, err := users.GetUsers(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, utils.Internal(err)
	}
	out := make(map[uint]*models.UserSummary, len(found))
	for id, u := range found {
		out[id] = u.Summary()
	}
	return out, nil
}

// uniqueIDs drops zero and repeated ids, keeping first occurrences in order.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; id == 0 || dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
