// Package memstore is an in-process document store used for demo mode and tests.
// Every record lives in a map guarded by one mutex; reads return copies.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
)

type likeKey struct {
	targetType models.TargetType
	targetID   uint
	userID     uint
}

type reactionKey struct {
	postID uint
	userID uint
}

type receiptKey struct {
	messageID uint
	userID    uint
}

// Store implements store.Store in memory.
type Store struct {
	mu  sync.RWMutex
	seq uint

	users     map[uint]*models.User
	emails    map[string]uint
	posts     map[uint]*models.Post
	comments  map[uint]*models.Comment
	likes     map[likeKey]*models.Like
	reactions map[uint]*models.Reaction
	reacted   map[reactionKey]uint
	rooms     map[uint]*models.ChatRoom
	messages  map[uint]*models.ChatMessage
	receipts  map[receiptKey]*models.ReadReceipt

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     map[uint]*models.User{},
		emails:    map[string]uint{},
		posts:     map[uint]*models.Post{},
		comments:  map[uint]*models.Comment{},
		likes:     map[likeKey]*models.Like{},
		reactions: map[uint]*models.Reaction{},
		reacted:   map[reactionKey]uint{},
		rooms:     map[uint]*models.ChatRoom{},
		messages:  map[uint]*models.ChatMessage{},
		receipts:  map[receiptKey]*models.ReadReceipt{},
		now:       time.Now,
	}
}

// nextID hands out ids from one sequence shared by all collections; callers hold mu.
func (s *Store) nextID() uint {
	s.seq++
	return s.seq
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func copyUser(u *models.User) *models.User {
	c := *u
	if u.YearsOfExperience != nil {
		y := *u.YearsOfExperience
		c.YearsOfExperience = &y
	}
	return &c
}

func copyPost(p *models.Post) *models.Post {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.Images = append([]string(nil), p.Images...)
	c.Author = nil
	c.Reactions = nil
	return &c
}

func copyComment(cm *models.Comment) *models.Comment {
	c := *cm
	if cm.ParentID != nil {
		p := *cm.ParentID
		c.ParentID = &p
	}
	c.Author = nil
	c.Replies = nil
	return &c
}

func copyRoom(r *models.ChatRoom) *models.ChatRoom {
	c := *r
	if r.LastMessageID != nil {
		id := *r.LastMessageID
		c.LastMessageID = &id
	}
	c.Participants = nil
	c.LastMessage = nil
	return &c
}

func copyMessage(m *models.ChatMessage) *models.ChatMessage {
	c := *m
	c.Sender = nil
	c.ReadBy = nil
	return &c
}

// ---- users ----

// CreateUser assigns the next id. Emails are unique after normalizing.
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := models.NormalizeEmail(user.Email)
	if _, taken := s.emails[email]; taken {
		return store.ErrDuplicate
	}
	now := s.now()
	user.ID = s.nextID()
	user.Email = email
	if user.Provider == "" {
		user.Provider = models.ProviderLocal
	}
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = copyUser(user)
	s.emails[email] = user.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(u), nil
}

// GetUserByEmail matches the normalized email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[models.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) GetUsers(_ context.Context, ids []uint) (map[uint]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = copyUser(u)
		}
	}
	return out, nil
}

// SaveUser replaces the stored user and re-indexes its email.
func (s *Store) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[user.ID]
	if !ok {
		return store.ErrNotFound
	}
	email := models.NormalizeEmail(user.Email)
	if owner, taken := s.emails[email]; taken && owner != user.ID {
		return store.ErrDuplicate
	}
	delete(s.emails, old.Email)
	user.Email = email
	user.UpdatedAt = s.now()
	s.users[user.ID] = copyUser(user)
	s.emails[email] = user.ID
	return nil
}

func (s *Store) SetRefreshToken(_ context.Context, userID uint, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.RefreshToken = token
	u.UpdatedAt = s.now()
	return nil
}

// ---- posts ----

// CreatePost assigns the next id and timestamps.
func (s *Store) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	post.ID = s.nextID()
	post.CreatedAt, post.UpdatedAt = now, now
	s.posts[post.ID] = copyPost(post)
	return nil
}

func (s *Store) GetPost(_ context.Context, id uint) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyPost(p), nil
}

// SavePost copies the editable fields only.
func (s *Store) SavePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[post.ID]
	if !ok {
		return store.ErrNotFound
	}
	p.Title = post.Title
	p.Content = post.Content
	p.Category = post.Category
	p.TeacherLevel = post.TeacherLevel
	p.Tags = append([]string(nil), post.Tags...)
	p.Images = append([]string(nil), post.Images...)
	p.UpdatedAt = s.now()
	post.UpdatedAt = p.UpdatedAt
	return nil
}

// DeletePost drops the post with its comments, likes and reactions.
func (s *Store) DeletePost(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return store.ErrNotFound
	}
	for cid, c := range s.comments {
		if c.PostID != id {
			continue
		}
		for k := range s.likes {
			if k.targetType == models.TargetComment && k.targetID == cid {
				delete(s.likes, k)
			}
		}
		delete(s.comments, cid)
	}
	for k := range s.likes {
		if k.targetType == models.TargetPost && k.targetID == id {
			delete(s.likes, k)
		}
	}
	for rid, r := range s.reactions {
		if r.PostID == id {
			delete(s.reacted, reactionKey{postID: r.PostID, userID: r.UserID})
			delete(s.reactions, rid)
		}
	}
	delete(s.posts, id)
	return nil
}

// containsFold reports whether the lowercased s contains the lowercased needle.
func containsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), needle)
}

func anyContainsFold(values []string, needle string) bool {
	for _, v := range values {
		if containsFold(v, needle) {
			return true
		}
	}
	return false
}

func matchesPost(p *models.Post, f store.PostFilter) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.TeacherLevel != "" && p.TeacherLevel != f.TeacherLevel {
		return false
	}
	if f.IsAnswered != nil && p.IsAnswered != *f.IsAnswered {
		return false
	}
	if f.AuthorID != 0 && p.AuthorID != f.AuthorID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !containsFold(p.Title, q) && !containsFold(p.Content, q) && !anyContainsFold(p.Tags, q) {
			return false
		}
	}
	return true
}

// ListPosts filters, sorts and pages a copy of the posts.
func (s *Store) ListPosts(_ context.Context, f store.PostFilter) ([]*models.Post, int64, error) {
	offset := f.Normalize()
	s.mu.RLock()
	matched := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if matchesPost(p, f) {
			matched = append(matched, copyPost(p))
		}
	}
	s.mu.RUnlock()

	newer := func(a, b *models.Post) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if f.Sort == store.SortPopular {
			if a.LikeCount != b.LikeCount {
				return a.LikeCount > b.LikeCount
			}
			if a.CommentCount != b.CommentCount {
				return a.CommentCount > b.CommentCount
			}
			if a.ViewCount != b.ViewCount {
				return a.ViewCount > b.ViewCount
			}
		}
		return newer(a, b)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*models.Post{}, total, nil
	}
	end := offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func counterField(p *models.Post, c models.Counter) *int64 {
	switch c {
	case models.CounterViews:
		return &p.ViewCount
	case models.CounterLikes:
		return &p.LikeCount
	case models.CounterComments:
		return &p.CommentCount
	}
	return nil
}

func (s *Store) IncrementPostCounter(_ context.Context, id uint, counter models.Counter, delta int64) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	field := counterField(p, counter)
	if field == nil {
		return nil, store.ErrNotFound
	}
	*field += delta
	if *field < 0 {
		*field = 0
	}
	return copyPost(p), nil
}

func (s *Store) MarkPostAnswered(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	p.IsAnswered = true
	return nil
}

// RecomputePostHot derives IsHot from the like count under the store lock.
func (s *Store) RecomputePostHot(_ context.Context, id uint, threshold int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return false, store.ErrNotFound
	}
	p.IsHot = p.LikeCount >= threshold
	return p.IsHot, nil
}

// ---- likes ----

// likeCounter returns the counter that tracks likes on the target; callers hold mu.
func (s *Store) likeCounter(t models.TargetType, id uint) *int64 {
	switch t {
	case models.TargetPost:
		if p, ok := s.posts[id]; ok {
			return &p.LikeCount
		}
	case models.TargetComment:
		if c, ok := s.comments[id]; ok {
			return &c.LikeCount
		}
	}
	return nil
}

// AddLike records the like and bumps the target counter under one lock.
func (s *Store) AddLike(_ context.Context, like *models.Like) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counter := s.likeCounter(like.TargetType, like.TargetID)
	if counter == nil {
		return 0, store.ErrNotFound
	}
	key := likeKey{targetType: like.TargetType, targetID: like.TargetID, userID: like.UserID}
	if _, exists := s.likes[key]; exists {
		return 0, store.ErrDuplicate
	}
	like.ID = s.nextID()
	like.CreatedAt = s.now()
	c := *like
	s.likes[key] = &c
	*counter++
	return *counter, nil
}

// RemoveLike is the inverse of AddLike.
func (s *Store) RemoveLike(_ context.Context, targetType models.TargetType, targetID, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := likeKey{targetType: targetType, targetID: targetID, userID: userID}
	if _, exists := s.likes[key]; !exists {
		return 0, store.ErrNotFound
	}
	delete(s.likes, key)
	counter := s.likeCounter(targetType, targetID)
	if counter == nil {
		return 0, nil
	}
	if *counter > 0 {
		*counter--
	}
	return *counter, nil
}

// ---- comments ----

func (s *Store) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[comment.PostID]
	if !ok {
		return store.ErrNotFound
	}
	now := s.now()
	comment.ID = s.nextID()
	if comment.Status == "" {
		comment.Status = models.CommentActive
	}
	comment.CreatedAt, comment.UpdatedAt = now, now
	s.comments[comment.ID] = copyComment(comment)
	p.CommentCount++
	return nil
}

func (s *Store) GetComment(_ context.Context, id uint) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyComment(c), nil
}

func (s *Store) UpdateCommentContent(_ context.Context, id uint, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = s.now()
	return nil
}

// SoftDeleteComment tombstones an active comment; the text is kept.
func (s *Store) SoftDeleteComment(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.Status == models.CommentDeleted {
		return store.ErrNotFound
	}
	c.Status = models.CommentDeleted
	c.UpdatedAt = s.now()
	if p, ok := s.posts[c.PostID]; ok && p.CommentCount > 0 {
		p.CommentCount--
	}
	return nil
}

// ListComments returns copies ordered oldest first.
func (s *Store) ListComments(_ context.Context, postID uint) ([]*models.Comment, error) {
	s.mu.RLock()
	out := []*models.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, copyComment(c))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ---- reactions ----

func (s *Store) GetReaction(_ context.Context, id uint) (*models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *Store) FindReaction(_ context.Context, postID, userID uint) (*models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.reacted[reactionKey{postID: postID, userID: userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *s.reactions[id]
	return &c, nil
}

// CreateReaction rejects a second reaction by the same user on a post.
func (s *Store) CreateReaction(_ context.Context, reaction *models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[reaction.PostID]; !ok {
		return store.ErrNotFound
	}
	key := reactionKey{postID: reaction.PostID, userID: reaction.UserID}
	if _, exists := s.reacted[key]; exists {
		return store.ErrDuplicate
	}
	now := s.now()
	reaction.ID = s.nextID()
	reaction.CreatedAt, reaction.UpdatedAt = now, now
	c := *reaction
	s.reactions[reaction.ID] = &c
	s.reacted[key] = reaction.ID
	return nil
}

func (s *Store) UpdateReactionType(_ context.Context, id uint, t models.ReactionType) (*models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	r.Type = t
	r.UpdatedAt = s.now()
	c := *r
	return &c, nil
}

func (s *Store) DeleteReaction(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reactions[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.reacted, reactionKey{postID: r.PostID, userID: r.UserID})
	delete(s.reactions, id)
	return nil
}

func (s *Store) CountReactions(_ context.Context, postID uint) (map[models.ReactionType]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[models.ReactionType]int64{}
	for _, r := range s.reactions {
		if r.PostID == postID {
			out[r.Type]++
		}
	}
	return out, nil
}

// ---- chat ----

func (s *Store) FindRoom(_ context.Context, a, b uint) (*models.ChatRoom, error) {
	low, high := models.RoomPair(a, b)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.UserLowID == low && r.UserHighID == high {
			return copyRoom(r), nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateRoom rejects a pair that already has a room.
func (s *Store) CreateRoom(_ context.Context, room *models.ChatRoom) error {
	room.UserLowID, room.UserHighID = models.RoomPair(room.UserLowID, room.UserHighID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.UserLowID == room.UserLowID && r.UserHighID == room.UserHighID {
			return store.ErrDuplicate
		}
	}
	now := s.now()
	room.ID = s.nextID()
	room.CreatedAt, room.UpdatedAt = now, now
	s.rooms[room.ID] = copyRoom(room)
	return nil
}

func (s *Store) GetRoom(_ context.Context, id uint) (*models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyRoom(r), nil
}

func (s *Store) ListRooms(_ context.Context, userID uint) ([]*models.ChatRoom, error) {
	s.mu.RLock()
	out := []*models.ChatRoom{}
	for _, r := range s.rooms {
		if r.HasParticipant(userID) {
			out = append(out, copyRoom(r))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// CreateMessage also writes the sender's receipt and moves the room's last message.
func (s *Store) CreateMessage(_ context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[msg.RoomID]
	if !ok {
		return store.ErrNotFound
	}
	now := s.now()
	msg.ID = s.nextID()
	msg.CreatedAt = now
	s.messages[msg.ID] = copyMessage(msg)

	receipt := &models.ReadReceipt{ID: s.nextID(), MessageID: msg.ID, RoomID: msg.RoomID, UserID: msg.SenderID, ReadAt: now}
	s.receipts[receiptKey{messageID: msg.ID, userID: msg.SenderID}] = receipt
	msg.ReadBy = []models.ReadReceipt{*receipt}

	id := msg.ID
	room.LastMessageID = &id
	room.UpdatedAt = now
	return nil
}

func (s *Store) GetMessage(_ context.Context, id uint) (*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyMessage(m)
	out.ReadBy = s.receiptsFor(m.ID)
	return out, nil
}

// receiptsFor lists a message's receipts oldest first; callers hold mu.
func (s *Store) receiptsFor(messageID uint) []models.ReadReceipt {
	out := []models.ReadReceipt{}
	for k, r := range s.receipts {
		if k.messageID == messageID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListMessages(_ context.Context, roomID uint) ([]*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.ChatMessage{}
	for _, m := range s.messages {
		if m.RoomID == roomID {
			c := copyMessage(m)
			c.ReadBy = s.receiptsFor(m.ID)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MarkRoomRead returns how many receipts it wrote.
func (s *Store) MarkRoomRead(_ context.Context, roomID, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return 0, store.ErrNotFound
	}
	now := s.now()
	var added int64
	for _, m := range s.messages {
		if m.RoomID != roomID || m.SenderID == userID {
			continue
		}
		key := receiptKey{messageID: m.ID, userID: userID}
		if _, seen := s.receipts[key]; seen {
			continue
		}
		s.receipts[key] = &models.ReadReceipt{ID: s.nextID(), MessageID: m.ID, RoomID: roomID, UserID: userID, ReadAt: now}
		added++
	}
	return added, nil
}

func (s *Store) CountUnread(_ context.Context, roomID, userID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.messages {
		if m.RoomID != roomID || m.SenderID == userID {
			continue
		}
		if _, seen := s.receipts[receiptKey{messageID: m.ID, userID: userID}]; !seen {
			n++
		}
	}
	return n, nil
}

// ---- stats ----

// Stats never fails in memory.
func (s *Store) Stats(_ context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := store.Stats{Users: int64(len(s.users)), Posts: int64(len(s.posts))}
	for _, u := range s.users {
		switch u.Role {
		case models.RoleMentor:
			st.Mentors++
		case models.RoleMentee:
			st.Mentees++
		}
	}
	for _, c := range s.comments {
		if !c.Deleted() {
			st.Comments++
		}
	}
	return st, nil
}
