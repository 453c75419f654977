// Package storetest holds behaviour checks every store.Store adapter must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ssaemtalk/server/models"
	"github.com/ssaemtalk/server/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	cases := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"Users", testUsers},
		{"PostsListing", testPostsListing},
		{"PostSearchIsLiteral", testPostSearchIsLiteral},
		{"PostCounters", testPostCounters},
		{"Likes", testLikes},
		{"ConcurrentLikes", testConcurrentLikes},
		{"Comments", testComments},
		{"DeletePostCascade", testDeletePostCascade},
		{"Reactions", testReactions},
		{"Chat", testChat},
		{"Stats", testStats},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func mustUser(t *testing.T, s store.Store, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustPost(t *testing.T, s store.Store, authorID uint, title string, cat models.Category) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Content: "content of " + title, AuthorID: authorID, Category: cat, TeacherLevel: models.LevelElementary}
	if err := s.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "Kim@Example.com", models.RoleMentor)
	if u.ID == 0 {
		t.Fatal("expected id to be assigned")
	}
	if err := s.CreateUser(ctx, &models.User{Name: "dup", Email: "kim@example.com", PasswordHash: "x", Role: models.RoleMentee}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := s.GetUserByEmail(ctx, "  KIM@example.COM ")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID || got.Email != "kim@example.com" {
		t.Fatalf("unexpected user %+v", got)
	}
	if _, err := s.GetUser(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got.Bio = "hello"
	if err := s.SaveUser(ctx, got); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if err := s.SetRefreshToken(ctx, u.ID, "rt"); err != nil {
		t.Fatalf("set refresh: %v", err)
	}
	again, _ := s.GetUser(ctx, u.ID)
	if again.Bio != "hello" || again.RefreshToken != "rt" {
		t.Fatalf("update lost: %+v", again)
	}

	other := mustUser(t, s, "lee@example.com", models.RoleMentee)
	users, err := s.GetUsers(ctx, []uint{u.ID, other.ID, 4242})
	if err != nil {
		t.Fatalf("get users: %v", err)
	}
	if len(users) != 2 || users[other.ID] == nil {
		t.Fatalf("unexpected users map: %v", users)
	}
}

func testPostsListing(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	b := mustUser(t, s, "b@example.com", models.RoleMentor)
	p1 := mustPost(t, s, a.ID, "학생 상담 고민", models.CategoryStudentGuidance)
	p2 := mustPost(t, s, b.ID, "수업 자료 공유", models.CategoryClassOperation)
	p3 := mustPost(t, s, a.ID, "평가 기준", models.CategoryAssessment)
	p3.Tags = []string{"루브릭"}
	if err := s.SavePost(ctx, p3); err != nil {
		t.Fatalf("save post: %v", err)
	}

	posts, total, err := s.ListPosts(ctx, store.PostFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(posts) != 3 || posts[0].ID != p3.ID || posts[2].ID != p1.ID {
		t.Fatalf("latest order wrong: total=%d ids=%v", total, ids(posts))
	}

	posts, total, _ = s.ListPosts(ctx, store.PostFilter{Category: models.CategoryClassOperation})
	if total != 1 || posts[0].ID != p2.ID {
		t.Fatalf("category filter: %v", ids(posts))
	}
	posts, total, _ = s.ListPosts(ctx, store.PostFilter{AuthorID: a.ID})
	if total != 2 {
		t.Fatalf("author filter: %v", ids(posts))
	}
	posts, _, _ = s.ListPosts(ctx, store.PostFilter{Query: "루브릭"})
	if len(posts) != 1 || posts[0].ID != p3.ID {
		t.Fatalf("tag search: %v", ids(posts))
	}
	posts, _, _ = s.ListPosts(ctx, store.PostFilter{Query: "자료"})
	if len(posts) != 1 || posts[0].ID != p2.ID {
		t.Fatalf("title search: %v", ids(posts))
	}

	if _, err := s.IncrementPostCounter(ctx, p1.ID, models.CounterLikes, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := s.IncrementPostCounter(ctx, p2.ID, models.CounterLikes, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := s.IncrementPostCounter(ctx, p1.ID, models.CounterViews, 5); err != nil {
		t.Fatal(err)
	}
	posts, _, _ = s.ListPosts(ctx, store.PostFilter{Sort: store.SortPopular})
	if posts[0].ID != p1.ID || posts[1].ID != p2.ID || posts[2].ID != p3.ID {
		t.Fatalf("popular order wrong: %v", ids(posts))
	}

	posts, total, _ = s.ListPosts(ctx, store.PostFilter{Page: 2, Limit: 2})
	if total != 3 || len(posts) != 1 || posts[0].ID != p1.ID {
		t.Fatalf("paging wrong: total=%d ids=%v", total, ids(posts))
	}
	posts, _, _ = s.ListPosts(ctx, store.PostFilter{Page: 9, Limit: 2})
	if len(posts) != 0 {
		t.Fatalf("expected empty page, got %v", ids(posts))
	}

	answered := true
	if err := s.MarkPostAnswered(ctx, p2.ID); err != nil {
		t.Fatal(err)
	}
	posts, _, _ = s.ListPosts(ctx, store.PostFilter{IsAnswered: &answered})
	if len(posts) != 1 || posts[0].ID != p2.ID {
		t.Fatalf("answered filter: %v", ids(posts))
	}
}

func ids(posts []*models.Post) []uint {
	out := make([]uint, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func testPostSearchIsLiteral(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	plain := &models.Post{Title: "plain", Content: "nothing special", AuthorID: a.ID, Category: models.CategoryOther,
		TeacherLevel: models.LevelElementary, Tags: []string{"a", "Rubric"}}
	marked := &models.Post{Title: "grading 100%", Content: "snake_case notes", AuthorID: a.ID, Category: models.CategoryOther,
		TeacherLevel: models.LevelElementary}
	for _, p := range []*models.Post{plain, marked} {
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	cases := []struct {
		query string
		want  []uint
	}{
		{"%", []uint{marked.ID}},
		{"_", []uint{marked.ID}},
		{"100%", []uint{marked.ID}},
		{"e_c", []uint{marked.ID}},
		{"s%n", nil},
		{`"`, nil},
		{"[", nil},
		{",", nil},
		{"!", nil},
		{"rubric", []uint{plain.ID}},
		{"a", []uint{marked.ID, plain.ID}},
	}
	for _, tc := range cases {
		posts, total, err := s.ListPosts(ctx, store.PostFilter{Query: tc.query})
		if err != nil {
			t.Fatalf("search %q: %v", tc.query, err)
		}
		got := ids(posts)
		if int(total) != len(tc.want) || fmt.Sprint(got) != fmt.Sprint(tc.want) {
			t.Errorf("search %q = %v (total %d), want %v", tc.query, got, total, tc.want)
		}
	}
}

func testPostCounters(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	p := mustPost(t, s, a.ID, "t", models.CategoryOther)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementPostCounter(ctx, p.ID, models.CounterViews, 1); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()
	got, _ := s.GetPost(ctx, p.ID)
	if got.ViewCount != 20 {
		t.Fatalf("expected 20 views, got %d", got.ViewCount)
	}
	if _, err := s.IncrementPostCounter(ctx, 777, models.CounterViews, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.IncrementPostCounter(ctx, p.ID, models.CounterLikes, 3); err != nil {
		t.Fatal(err)
	}
	if hot, err := s.RecomputePostHot(ctx, p.ID, 3); err != nil || !hot {
		t.Fatalf("3 likes at threshold 3: hot=%v err=%v", hot, err)
	}
	if got, _ = s.GetPost(ctx, p.ID); !got.IsHot {
		t.Fatal("expected stored hot")
	}
	if hot, _ := s.RecomputePostHot(ctx, p.ID, 4); hot {
		t.Fatal("3 likes at threshold 4 should not be hot")
	}
	if got, _ = s.GetPost(ctx, p.ID); got.IsHot {
		t.Fatal("expected hot cleared")
	}
	if _, err := s.RecomputePostHot(ctx, 777, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testLikes(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	p := mustPost(t, s, a.ID, "t", models.CategoryOther)

	n, err := s.AddLike(ctx, &models.Like{TargetType: models.TargetPost, TargetID: p.ID, UserID: a.ID})
	if err != nil || n != 1 {
		t.Fatalf("add like: n=%d err=%v", n, err)
	}
	if _, err := s.AddLike(ctx, &models.Like{TargetType: models.TargetPost, TargetID: p.ID, UserID: a.ID}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.AddLike(ctx, &models.Like{TargetType: models.TargetPost, TargetID: 999, UserID: a.ID}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	n, err = s.RemoveLike(ctx, models.TargetPost, p.ID, a.ID)
	if err != nil || n != 0 {
		t.Fatalf("remove like: n=%d err=%v", n, err)
	}
	if _, err := s.RemoveLike(ctx, models.TargetPost, p.ID, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ := s.GetPost(ctx, p.ID)
	if got.LikeCount != 0 {
		t.Fatalf("likeCount drifted: %d", got.LikeCount)
	}

	c := &models.Comment{PostID: p.ID, AuthorID: a.ID, Content: "c"}
	if err := s.CreateComment(ctx, c); err != nil {
		t.Fatal(err)
	}
	n, err = s.AddLike(ctx, &models.Like{TargetType: models.TargetComment, TargetID: c.ID, UserID: a.ID})
	if err != nil || n != 1 {
		t.Fatalf("comment like: n=%d err=%v", n, err)
	}
}

func testConcurrentLikes(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author@example.com", models.RoleMentee)
	p := mustPost(t, s, author.ID, "t", models.CategoryOther)
	users := make([]*models.User, 10)
	for i := range users {
		users[i] = mustUser(t, s, fmt.Sprintf("u%d@example.com", i), models.RoleMentee)
	}

	var wg sync.WaitGroup
	for _, u := range users {
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func(uid uint) {
				defer wg.Done()
				_, err := s.AddLike(ctx, &models.Like{TargetType: models.TargetPost, TargetID: p.ID, UserID: uid})
				if err != nil && !errors.Is(err, store.ErrDuplicate) {
					t.Errorf("add like: %v", err)
				}
			}(u.ID)
		}
	}
	wg.Wait()
	got, _ := s.GetPost(ctx, p.ID)
	if got.LikeCount != int64(len(users)) {
		t.Fatalf("expected %d likes, got %d", len(users), got.LikeCount)
	}
}

func testComments(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	p := mustPost(t, s, a.ID, "t", models.CategoryOther)

	c1 := &models.Comment{PostID: p.ID, AuthorID: a.ID, Content: "first"}
	if err := s.CreateComment(ctx, c1); err != nil {
		t.Fatal(err)
	}
	if c1.Status != models.CommentActive {
		t.Fatalf("expected active status, got %q", c1.Status)
	}
	reply := &models.Comment{PostID: p.ID, AuthorID: a.ID, Content: "reply", ParentID: &c1.ID}
	if err := s.CreateComment(ctx, reply); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateComment(ctx, &models.Comment{PostID: 999, AuthorID: a.ID, Content: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ := s.GetPost(ctx, p.ID)
	if got.CommentCount != 2 {
		t.Fatalf("commentCount = %d", got.CommentCount)
	}

	if err := s.UpdateCommentContent(ctx, c1.ID, "edited"); err != nil {
		t.Fatal(err)
	}
	if err := s.SoftDeleteComment(ctx, c1.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.SoftDeleteComment(ctx, c1.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete should fail, got %v", err)
	}
	got, _ = s.GetPost(ctx, p.ID)
	if got.CommentCount != 1 {
		t.Fatalf("commentCount after delete = %d", got.CommentCount)
	}

	list, err := s.ListComments(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != c1.ID || !list[0].Deleted() || list[0].Content != "edited" {
		t.Fatalf("unexpected comments %+v", list)
	}
	if list[1].ParentID == nil || *list[1].ParentID != c1.ID {
		t.Fatalf("reply lost parent: %+v", list[1])
	}
}

func testDeletePostCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	p := mustPost(t, s, a.ID, "t", models.CategoryOther)
	keep := mustPost(t, s, a.ID, "keep", models.CategoryOther)
	c := &models.Comment{PostID: p.ID, AuthorID: a.ID, Content: "c"}
	if err := s.CreateComment(ctx, c); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddLike(ctx, &models.Like{TargetType: models.TargetPost, TargetID: p.ID, UserID: a.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddLike(ctx, &models.Like{TargetType: models.TargetComment, TargetID: c.ID, UserID: a.ID}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateReaction(ctx, &models.Reaction{PostID: p.ID, UserID: a.ID, Type: models.ReactionCheer}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeletePost(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetPost(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("post still present: %v", err)
	}
	if _, err := s.GetComment(ctx, c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("comment still present: %v", err)
	}
	if _, err := s.FindReaction(ctx, p.ID, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("reaction still present: %v", err)
	}
	if err := s.DeletePost(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetPost(ctx, keep.ID); err != nil {
		t.Fatalf("unrelated post removed: %v", err)
	}
}

func testReactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	b := mustUser(t, s, "b@example.com", models.RoleMentor)
	p := mustPost(t, s, a.ID, "t", models.CategoryOther)

	ra := &models.Reaction{PostID: p.ID, UserID: a.ID, Type: models.ReactionCheer}
	if err := s.CreateReaction(ctx, ra); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateReaction(ctx, &models.Reaction{PostID: p.ID, UserID: a.ID, Type: models.ReactionFunny}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := s.CreateReaction(ctx, &models.Reaction{PostID: p.ID, UserID: b.ID, Type: models.ReactionCheer}); err != nil {
		t.Fatal(err)
	}
	counts, err := s.CountReactions(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[models.ReactionCheer] != 2 {
		t.Fatalf("counts = %v", counts)
	}

	updated, err := s.UpdateReactionType(ctx, ra.ID, models.ReactionHelpful)
	if err != nil || updated.Type != models.ReactionHelpful {
		t.Fatalf("update: %+v %v", updated, err)
	}
	counts, _ = s.CountReactions(ctx, p.ID)
	if counts[models.ReactionCheer] != 1 || counts[models.ReactionHelpful] != 1 {
		t.Fatalf("counts after change = %v", counts)
	}

	if err := s.DeleteReaction(ctx, ra.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetReaction(ctx, ra.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.CreateReaction(ctx, &models.Reaction{PostID: p.ID, UserID: a.ID, Type: models.ReactionEmpathy}); err != nil {
		t.Fatalf("reacting again after delete: %v", err)
	}
}

func testChat(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	b := mustUser(t, s, "b@example.com", models.RoleMentor)
	c := mustUser(t, s, "c@example.com", models.RoleMentor)

	room := &models.ChatRoom{UserLowID: b.ID, UserHighID: a.ID}
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatal(err)
	}
	if room.UserLowID > room.UserHighID {
		t.Fatalf("pair not ordered: %+v", room)
	}
	if err := s.CreateRoom(ctx, &models.ChatRoom{UserLowID: a.ID, UserHighID: b.ID}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	found, err := s.FindRoom(ctx, b.ID, a.ID)
	if err != nil || found.ID != room.ID {
		t.Fatalf("find room: %+v %v", found, err)
	}
	other := &models.ChatRoom{UserLowID: a.ID, UserHighID: c.ID}
	if err := s.CreateRoom(ctx, other); err != nil {
		t.Fatal(err)
	}

	m1 := &models.ChatMessage{RoomID: room.ID, SenderID: a.ID, Content: "안녕하세요"}
	if err := s.CreateMessage(ctx, m1); err != nil {
		t.Fatal(err)
	}
	if len(m1.ReadBy) != 1 || m1.ReadBy[0].UserID != a.ID {
		t.Fatalf("sender receipt missing: %+v", m1.ReadBy)
	}
	m2 := &models.ChatMessage{RoomID: room.ID, SenderID: a.ID, Content: "질문이 있어요"}
	if err := s.CreateMessage(ctx, m2); err != nil {
		t.Fatal(err)
	}

	rooms, err := s.ListRooms(ctx, a.ID)
	if err != nil || len(rooms) != 2 || rooms[0].ID != room.ID {
		t.Fatalf("list rooms: %v", err)
	}
	if rooms[0].LastMessageID == nil || *rooms[0].LastMessageID != m2.ID {
		t.Fatalf("last message pointer: %+v", rooms[0].LastMessageID)
	}
	if rooms, _ := s.ListRooms(ctx, c.ID); len(rooms) != 1 {
		t.Fatalf("c should see one room, got %d", len(rooms))
	}

	if n, _ := s.CountUnread(ctx, room.ID, b.ID); n != 2 {
		t.Fatalf("unread for b = %d", n)
	}
	if n, _ := s.CountUnread(ctx, room.ID, a.ID); n != 0 {
		t.Fatalf("unread for sender = %d", n)
	}
	added, err := s.MarkRoomRead(ctx, room.ID, b.ID)
	if err != nil || added != 2 {
		t.Fatalf("mark read: added=%d err=%v", added, err)
	}
	added, _ = s.MarkRoomRead(ctx, room.ID, b.ID)
	if added != 0 {
		t.Fatalf("mark read twice added %d", added)
	}
	if n, _ := s.CountUnread(ctx, room.ID, b.ID); n != 0 {
		t.Fatalf("unread after read = %d", n)
	}

	msgs, err := s.ListMessages(ctx, room.ID)
	if err != nil || len(msgs) != 2 || msgs[0].ID != m1.ID {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs[1].ReadBy) != 2 {
		t.Fatalf("expected two receipts, got %+v", msgs[1].ReadBy)
	}
	got, err := s.GetMessage(ctx, m2.ID)
	if err != nil || len(got.ReadBy) != 2 {
		t.Fatalf("get message: %+v %v", got, err)
	}
	if err := s.CreateMessage(ctx, &models.ChatMessage{RoomID: 999, SenderID: a.ID, Content: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com", models.RoleMentee)
	mustUser(t, s, "b@example.com", models.RoleMentor)
	p := mustPost(t, s, a.ID, "t", models.CategoryOther)
	c := &models.Comment{PostID: p.ID, AuthorID: a.ID, Content: "c"}
	if err := s.CreateComment(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateComment(ctx, &models.Comment{PostID: p.ID, AuthorID: a.ID, Content: "d"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SoftDeleteComment(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := store.Stats{Users: 2, Mentors: 1, Mentees: 1, Posts: 1, Comments: 1}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}
}
