// Package store defines the persistence contract shared by every storage adapter.
//
// Counter columns (views, likes, comments) are only changed through the
// operations below, which apply the related row write and the counter update
// atomically inside the adapter.
package store

import (
	"context"
	"errors"

	"github.com/ssaemtalk/server/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a uniqueness constraint would be violated.
	ErrDuplicate = errors.New("store: duplicate record")
)

// PostSort selects the ordering of post listings.
type PostSort string

const (
	SortLatest  PostSort = "latest"
	SortPopular PostSort = "popular"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PostFilter narrows and pages a post listing. Zero values mean "any".
type PostFilter struct {
	Category     models.Category
	TeacherLevel models.TeacherLevel
	IsAnswered   *bool
	AuthorID     uint
	// Query is a case-insensitive substring matched against title, content and tags.
	Query string
	Sort  PostSort
	Page  int
	Limit int
}

// Normalize clamps paging values into range and returns the row offset.
func (f *PostFilter) Normalize() (offset int) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Sort != SortPopular {
		f.Sort = SortLatest
	}
	return (f.Page - 1) * f.Limit
}

// Stats are community-wide counters.
type Stats struct {
	Users    int64
	Mentors  int64
	Mentees  int64
	Posts    int64
	Comments int64
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser fails with ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUsers returns the users that exist among ids, keyed by id.
	GetUsers(ctx context.Context, ids []uint) (map[uint]*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	SetRefreshToken(ctx context.Context, userID uint, token string) error
}

// PostStore persists posts.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	// SavePost writes the editable fields (title, content, category, level, tags, images).
	SavePost(ctx context.Context, post *models.Post) error
	// DeletePost removes the post together with its comments, likes and reactions.
	DeletePost(ctx context.Context, id uint) error
	ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error)
	// IncrementPostCounter adds delta to counter and returns the updated post.
	IncrementPostCounter(ctx context.Context, id uint, counter models.Counter, delta int64) (*models.Post, error)
	MarkPostAnswered(ctx context.Context, id uint) error
	// RecomputePostHot sets isHot to likeCount >= threshold atomically and returns it.
	RecomputePostHot(ctx context.Context, id uint, threshold int64) (bool, error)
}

// LikeStore persists likes and keeps the target's likeCount in step.
type LikeStore interface {
	// AddLike stores like and increments the target's counter, returning the new count.
	// ErrDuplicate when the user already liked the target, ErrNotFound when the target is missing.
	AddLike(ctx context.Context, like *models.Like) (int64, error)
	// RemoveLike deletes the like and decrements the counter. ErrNotFound when there is no like.
	RemoveLike(ctx context.Context, targetType models.TargetType, targetID, userID uint) (int64, error)
}

// CommentStore persists comments and keeps the post's commentCount in step.
type CommentStore interface {
	// CreateComment stores the comment and increments the post's commentCount.
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id uint) (*models.Comment, error)
	UpdateCommentContent(ctx context.Context, id uint, content string) error
	// SoftDeleteComment marks an active comment deleted and decrements the post's commentCount.
	SoftDeleteComment(ctx context.Context, id uint) error
	// ListComments returns every comment of a post ordered oldest first.
	ListComments(ctx context.Context, postID uint) ([]*models.Comment, error)
}

// ReactionStore persists reactions. Per-type counts are aggregated on read.
type ReactionStore interface {
	GetReaction(ctx context.Context, id uint) (*models.Reaction, error)
	FindReaction(ctx context.Context, postID, userID uint) (*models.Reaction, error)
	// CreateReaction fails with ErrDuplicate when the user already reacted to the post.
	CreateReaction(ctx context.Context, reaction *models.Reaction) error
	UpdateReactionType(ctx context.Context, id uint, t models.ReactionType) (*models.Reaction, error)
	DeleteReaction(ctx context.Context, id uint) error
	CountReactions(ctx context.Context, postID uint) (map[models.ReactionType]int64, error)
}

// ChatStore persists rooms, messages and read receipts.
type ChatStore interface {
	// FindRoom looks up the room shared by two users in either order.
	FindRoom(ctx context.Context, a, b uint) (*models.ChatRoom, error)
	// CreateRoom fails with ErrDuplicate when the pair already has a room.
	CreateRoom(ctx context.Context, room *models.ChatRoom) error
	GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error)
	// ListRooms returns the user's rooms, most recently active first.
	ListRooms(ctx context.Context, userID uint) ([]*models.ChatRoom, error)
	// CreateMessage stores msg, the sender's read receipt and the room's last message pointer.
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessage(ctx context.Context, id uint) (*models.ChatMessage, error)
	// ListMessages returns a room's messages oldest first with receipts attached.
	ListMessages(ctx context.Context, roomID uint) ([]*models.ChatMessage, error)
	// MarkRoomRead adds receipts for userID on every message from the other party, returning how many were added.
	MarkRoomRead(ctx context.Context, roomID, userID uint) (int64, error)
	CountUnread(ctx context.Context, roomID, userID uint) (int64, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	UserStore
	PostStore
	LikeStore
	CommentStore
	ReactionStore
	ChatStore

	// Stats returns every counter it could compute; failed ones are zero and reported in the error.
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
