// Package gormstore implements store.Store on a relational database through gorm.
// Postgres, MySQL and SQLite are supported; the dialect is read from the *gorm.DB.
package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
)

// Store implements store.Store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Models lists every table the store needs, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Reaction{},
		&models.ChatRoom{},
		&models.ChatMessage{},
		&models.ReadReceipt{},
	}
}

// New wraps an opened and migrated database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}

const likeEscape = "!"

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a LIKE pattern matching term literally anywhere in a
// lowercased value. It pairs with ESCAPE '!', which every supported dialect reads the same.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// tagMatch returns a condition true when any element of the tags JSON array
// contains the pattern bound to its placeholder.
func tagMatch(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "EXISTS (SELECT 1 FROM JSON_TABLE(posts.tags, '$[*]' COLUMNS (tag VARCHAR(64) PATH '$')) AS jt WHERE LOWER(jt.tag) LIKE ? ESCAPE '" + likeEscape + "')"
	case "postgres":
		return "EXISTS (SELECT 1 FROM jsonb_array_elements_text(posts.tags) AS jt(tag) WHERE LOWER(jt.tag) LIKE ? ESCAPE '" + likeEscape + "')"
	default:
		return "EXISTS (SELECT 1 FROM json_each(posts.tags) AS jt WHERE LOWER(jt.value) LIKE ? ESCAPE '" + likeEscape + "')"
	}
}

// ---- users ----

// CreateUser inserts user. A taken email is store.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", models.NormalizeEmail(user.Email)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return store.ErrDuplicate
		}
		return translate(tx.Create(user).Error)
	})
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetUsers loads every user in ids with one IN query.
func (s *Store) GetUsers(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	out := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []*models.User
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// SaveUser writes every column of user except id and created_at. A taken email is store.ErrDuplicate.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", user.Email, user.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return store.ErrDuplicate
		}
		return translate(tx.Model(user).Select("*").Omit("id", "created_at").Updates(user).Error)
	})
}

// SetRefreshToken replaces the stored refresh token; empty clears it.
func (s *Store) SetRefreshToken(ctx context.Context, userID uint, token string) error {
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", userID).Update("refresh_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- posts ----

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.conn(ctx).Create(post).Error
}

func (s *Store) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := s.conn(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// SavePost writes the editable columns only, leaving counters alone.
func (s *Store) SavePost(ctx context.Context, post *models.Post) error {
	res := s.conn(ctx).Model(&models.Post{}).Where("id = ?", post.ID).
		Select("title", "content", "category", "teacher_level", "tags", "images", "updated_at").
		Updates(map[string]interface{}{
			"title":         post.Title,
			"content":       post.Content,
			"category":      post.Category,
			"teacher_level": post.TeacherLevel,
			"tags":          post.Tags,
			"images":        post.Images,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeletePost removes the post, its comments and every like and reaction on them in one transaction.
func (s *Store) DeletePost(ctx context.Context, id uint) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("target_type = ? AND target_id IN ?", models.TargetComment, commentIDs).Delete(&models.Like{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id = ?", models.TargetPost, id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", id).Delete(&models.Reaction{}).Error
	})
}

// ListPosts applies f and returns one page plus the total match count.
func (s *Store) ListPosts(ctx context.Context, f store.PostFilter) ([]*models.Post, int64, error) {
	offset := f.Normalize()
	q := s.conn(ctx).Model(&models.Post{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.TeacherLevel != "" {
		q = q.Where("teacher_level = ?", f.TeacherLevel)
	}
	if f.IsAnswered != nil {
		q = q.Where("is_answered = ?", *f.IsAnswered)
	}
	if f.AuthorID != 0 {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(title) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(content) LIKE ? ESCAPE '"+likeEscape+"' OR "+tagMatch(s.db), like, like, like)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q
	if f.Sort == store.SortPopular {
		page = page.Order("like_count DESC").Order("comment_count DESC").Order("view_count DESC")
	}
	page = page.Order("created_at DESC").Order("id DESC")

	posts := []*models.Post{}
	if err := page.Offset(offset).Limit(f.Limit).Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func validCounter(c models.Counter) bool {
	switch c {
	case models.CounterViews, models.CounterLikes, models.CounterComments:
		return true
	}
	return false
}

// bump adds delta to a post counter without letting it go below zero.
func bump(tx *gorm.DB, id uint, counter models.Counter, delta int64) error {
	col := string(counter)
	q := tx.Model(&models.Post{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where(col+" >= ?", -delta)
	}
	res := q.UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
	}
	return nil
}

// IncrementPostCounter adds delta with a single UPDATE and reads the post back.
func (s *Store) IncrementPostCounter(ctx context.Context, id uint, counter models.Counter, delta int64) (*models.Post, error) {
	if !validCounter(counter) {
		return nil, store.ErrNotFound
	}
	var p models.Post
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bump(tx, id, counter, delta); err != nil {
			return err
		}
		return tx.First(&p, id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) setPostFlag(ctx context.Context, id uint, column string, value bool) error {
	var n int64
	db := s.conn(ctx)
	if err := db.Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return db.Model(&models.Post{}).Where("id = ?", id).UpdateColumn(column, value).Error
}

func (s *Store) MarkPostAnswered(ctx context.Context, id uint) error {
	return s.setPostFlag(ctx, id, "is_answered", true)
}

// RecomputePostHot sets is_hot from like_count in one statement, so racing
// likes and unlikes settle on the value of the final count.
func (s *Store) RecomputePostHot(ctx context.Context, id uint, threshold int64) (bool, error) {
	db := s.conn(ctx)
	res := db.Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("is_hot", gorm.Expr("like_count >= ?", threshold))
	if res.Error != nil {
		return false, res.Error
	}
	var post models.Post
	if err := db.Select("is_hot").First(&post, id).Error; err != nil {
		return false, translate(err)
	}
	return post.IsHot, nil
}

// ---- likes ----

func likeTable(t models.TargetType) interface{} {
	if t == models.TargetComment {
		return &models.Comment{}
	}
	return &models.Post{}
}

func (s *Store) readLikeCount(tx *gorm.DB, t models.TargetType, id uint) (int64, error) {
	var count int64
	err := tx.Model(likeTable(t)).Where("id = ?", id).Select("like_count").Scan(&count).Error
	return count, err
}

// AddLike inserts the like and bumps the target's like_count in one transaction.
func (s *Store) AddLike(ctx context.Context, like *models.Like) (int64, error) {
	var count int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(likeTable(like.TargetType)).Where("id = ?", like.TargetID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		if err := tx.Model(&models.Like{}).
			Where("target_type = ? AND target_id = ? AND user_id = ?", like.TargetType, like.TargetID, like.UserID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return store.ErrDuplicate
		}
		if err := tx.Create(like).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(likeTable(like.TargetType)).Where("id = ?", like.TargetID).
			UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error; err != nil {
			return err
		}
		var err error
		count, err = s.readLikeCount(tx, like.TargetType, like.TargetID)
		return err
	})
	return count, err
}

// RemoveLike deletes the like and decrements like_count in one transaction.
func (s *Store) RemoveLike(ctx context.Context, targetType models.TargetType, targetID, userID uint) (int64, error) {
	var count int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("target_type = ? AND target_id = ? AND user_id = ?", targetType, targetID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Model(likeTable(targetType)).Where("id = ? AND like_count > 0", targetID).
			UpdateColumn("like_count", gorm.Expr("like_count - ?", 1)).Error; err != nil {
			return err
		}
		var err error
		count, err = s.readLikeCount(tx, targetType, targetID)
		return err
	})
	return count, err
}

// ---- comments ----

// CreateComment inserts comment and increments the post's comment_count.
func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.Status == "" {
		comment.Status = models.CommentActive
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bump(tx, comment.PostID, models.CounterComments, 1); err != nil {
			return err
		}
		return tx.Create(comment).Error
	})
}

func (s *Store) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) UpdateCommentContent(ctx context.Context, id uint, content string) error {
	res := s.conn(ctx).Model(&models.Comment{}).Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SoftDeleteComment marks an active comment deleted and decrements comment_count.
func (s *Store) SoftDeleteComment(ctx context.Context, id uint) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.First(&c, id).Error; err != nil {
			return translate(err)
		}
		res := tx.Model(&models.Comment{}).Where("id = ? AND status = ?", id, models.CommentActive).
			Updates(map[string]interface{}{"status": models.CommentDeleted, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		err := bump(tx, c.PostID, models.CounterComments, -1)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
}

// ListComments returns every comment of a post, oldest first.
func (s *Store) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := s.conn(ctx).Where("post_id = ?", postID).Order("created_at ASC").Order("id ASC").Find(&comments).Error
	return comments, err
}

// ---- reactions ----

func (s *Store) GetReaction(ctx context.Context, id uint) (*models.Reaction, error) {
	var r models.Reaction
	if err := s.conn(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) FindReaction(ctx context.Context, postID, userID uint) (*models.Reaction, error) {
	var r models.Reaction
	if err := s.conn(ctx).Where("post_id = ? AND user_id = ?", postID, userID).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// CreateReaction inserts a reaction; the (post, user) unique index rejects a second one.
func (s *Store) CreateReaction(ctx context.Context, reaction *models.Reaction) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Post{}).Where("id = ?", reaction.PostID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		if err := tx.Model(&models.Reaction{}).Where("post_id = ? AND user_id = ?", reaction.PostID, reaction.UserID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return store.ErrDuplicate
		}
		return translate(tx.Create(reaction).Error)
	})
}

func (s *Store) UpdateReactionType(ctx context.Context, id uint, t models.ReactionType) (*models.Reaction, error) {
	var r models.Reaction
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Reaction{}).Where("id = ?", id).
			Updates(map[string]interface{}{"type": t, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return tx.First(&r, id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) DeleteReaction(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&models.Reaction{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CountReactions groups the post's reactions by type.
func (s *Store) CountReactions(ctx context.Context, postID uint) (map[models.ReactionType]int64, error) {
	var rows []struct {
		Type  models.ReactionType
		Count int64
	}
	err := s.conn(ctx).Model(&models.Reaction{}).
		Select("type, COUNT(*) AS count").
		Where("post_id = ?", postID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.ReactionType]int64, len(rows))
	for _, r := range rows {
		out[r.Type] = r.Count
	}
	return out, nil
}

// ---- chat ----

// FindRoom looks a room up by its ordered participant pair.
func (s *Store) FindRoom(ctx context.Context, a, b uint) (*models.ChatRoom, error) {
	low, high := models.RoomPair(a, b)
	var r models.ChatRoom
	if err := s.conn(ctx).Where("user_low_id = ? AND user_high_id = ?", low, high).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	room.UserLowID, room.UserHighID = models.RoomPair(room.UserLowID, room.UserHighID)
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ChatRoom{}).
			Where("user_low_id = ? AND user_high_id = ?", room.UserLowID, room.UserHighID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return store.ErrDuplicate
		}
		return translate(tx.Create(room).Error)
	})
}

func (s *Store) GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var r models.ChatRoom
	if err := s.conn(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// ListRooms returns the rooms userID takes part in, most recently active first.
func (s *Store) ListRooms(ctx context.Context, userID uint) ([]*models.ChatRoom, error) {
	rooms := []*models.ChatRoom{}
	err := s.conn(ctx).
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("updated_at DESC").Order("id DESC").
		Find(&rooms).Error
	return rooms, err
}

// CreateMessage stores msg, the sender's read receipt and the room's last message pointer together.
func (s *Store) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ChatRoom{}).Where("id = ?", msg.RoomID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		receipt := models.ReadReceipt{MessageID: msg.ID, RoomID: msg.RoomID, UserID: msg.SenderID, ReadAt: msg.CreatedAt}
		if err := tx.Create(&receipt).Error; err != nil {
			return err
		}
		msg.ReadBy = []models.ReadReceipt{receipt}
		return tx.Model(&models.ChatRoom{}).Where("id = ?", msg.RoomID).
			Updates(map[string]interface{}{"last_message_id": msg.ID, "updated_at": msg.CreatedAt}).Error
	})
}

// attachReceipts loads receipts for msgs in one query.
func (s *Store) attachReceipts(db *gorm.DB, msgs []*models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(msgs))
	byID := make(map[uint]*models.ChatMessage, len(msgs))
	for _, m := range msgs {
		m.ReadBy = []models.ReadReceipt{}
		ids = append(ids, m.ID)
		byID[m.ID] = m
	}
	var receipts []models.ReadReceipt
	if err := db.Where("message_id IN ?", ids).Order("id ASC").Find(&receipts).Error; err != nil {
		return err
	}
	for _, r := range receipts {
		if m := byID[r.MessageID]; m != nil {
			m.ReadBy = append(m.ReadBy, r)
		}
	}
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id uint) (*models.ChatMessage, error) {
	db := s.conn(ctx)
	var m models.ChatMessage
	if err := db.First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.attachReceipts(db, []*models.ChatMessage{&m}); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, roomID uint) ([]*models.ChatMessage, error) {
	db := s.conn(ctx)
	msgs := []*models.ChatMessage{}
	if err := db.Where("room_id = ?", roomID).Order("created_at ASC").Order("id ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	if err := s.attachReceipts(db, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRoomRead writes receipts for the other party's unread messages and returns how many.
func (s *Store) MarkRoomRead(ctx context.Context, roomID, userID uint) (int64, error) {
	var added int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ChatRoom{}).Where("id = ?", roomID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		var all, seen []uint
		if err := tx.Model(&models.ChatMessage{}).Where("room_id = ? AND sender_id <> ?", roomID, userID).Pluck("id", &all).Error; err != nil {
			return err
		}
		if len(all) == 0 {
			return nil
		}
		if err := tx.Model(&models.ReadReceipt{}).Where("room_id = ? AND user_id = ?", roomID, userID).Pluck("message_id", &seen).Error; err != nil {
			return err
		}
		already := make(map[uint]struct{}, len(seen))
		for _, id := range seen {
			already[id] = struct{}{}
		}
		now := time.Now()
		fresh := make([]models.ReadReceipt, 0, len(all))
		for _, id := range all {
			if _, ok := already[id]; !ok {
				fresh = append(fresh, models.ReadReceipt{MessageID: id, RoomID: roomID, UserID: userID, ReadAt: now})
			}
		}
		if len(fresh) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&fresh, 200).Error; err != nil {
			return err
		}
		added = int64(len(fresh))
		return nil
	})
	return added, err
}

// CountUnread counts messages from the other party without a receipt for userID.
func (s *Store) CountUnread(ctx context.Context, roomID, userID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.ChatMessage{}).
		Where("room_id = ? AND sender_id <> ?", roomID, userID).
		Where("NOT EXISTS (SELECT 1 FROM read_receipts rr WHERE rr.message_id = chat_messages.id AND rr.user_id = ?)", userID).
		Count(&n).Error
	return n, err
}

// ---- stats ----

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	db := s.conn(ctx)
	var st store.Stats
	steps := []struct {
		dst *int64
		model interface{}
		where []interface{}
	}{
		{&st.Users, &models.User{}, nil},
		{&st.Mentors, &models.User{}, []interface{}{"role = ?", models.RoleMentor}},
		{&st.Mentees, &models.User{}, []interface{}{"role = ?", models.RoleMentee}},
		{&st.Posts, &models.Post{}, nil},
		{&st.Comments, &models.Comment{}, []interface{}{"status = ?", models.CommentActive}},
	}
	var errs []error
	for _, step := range steps {
		q := db.Model(step.model)
		if len(step.where) > 0 {
			q = q.Where(step.where[0], step.where[1:]...)
		}
		if err := q.Count(step.dst).Error; err != nil {
			*step.dst = 0
			errs = append(errs, err)
		}
	}
	return st, errors.Join(errs...)
}
