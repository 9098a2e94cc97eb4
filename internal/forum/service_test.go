package forum

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/diredev/campushub/internal/live"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sequenceIDs struct {
	mu   sync.Mutex
	next int
}

func (p *sequenceIDs) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("id-%04d", p.next), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func mustForumService(t *testing.T) (*Service, *live.Dispatcher, *testClock) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "forum.db")), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Discussion{}, &Comment{}, &ViewMarker{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	dispatcher := live.NewDispatcher()
	clock := &testClock{now: time.Unix(1700000000, 0).UTC()}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequenceIDs{},
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, dispatcher, clock
}

func testAuthor(userID string) Author {
	return Author{UserID: userID, DisplayName: "Ada Lovelace", Initials: "AL"}
}

func mustDiscussion(t *testing.T, service *Service, author Author, title string) Discussion {
	t.Helper()
	discussion, err := service.CreateDiscussion(context.Background(), author, DiscussionDraft{
		Title: title,
		Body:  "body of " + title,
	})
	if err != nil {
		t.Fatalf("failed to create discussion %q: %v", title, err)
	}
	return discussion
}

func TestCreateDiscussionNormalizesInput(t *testing.T) {
	service, _, _ := mustForumService(t)
	ctx := context.Background()

	discussion, err := service.CreateDiscussion(ctx, testAuthor("user-1"), DiscussionDraft{
		Title: "  Goroutine leaks  ",
		Body:  "  How do I find them?  ",
		Tags:  []string{" Go ", "go", "CONCURRENCY", "", "debugging"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if discussion.Title != "Goroutine leaks" {
		t.Fatalf("title not trimmed: %q", discussion.Title)
	}
	if discussion.Body != "How do I find them?" {
		t.Fatalf("body not trimmed: %q", discussion.Body)
	}
	if discussion.Category != CategoryGeneral {
		t.Fatalf("expected default category, got %q", discussion.Category)
	}
	tags := discussion.Tags()
	if len(tags) != 3 || tags[0] != "go" || tags[1] != "concurrency" || tags[2] != "debugging" {
		t.Fatalf("unexpected normalized tags: %v", tags)
	}
	if discussion.Upvotes != 0 || discussion.Downvotes != 0 || discussion.Replies != 0 || discussion.Views != 0 {
		t.Fatalf("counters must start at zero: %+v", discussion)
	}
}

func TestCreateDiscussionValidation(t *testing.T) {
	service, _, _ := mustForumService(t)
	ctx := context.Background()

	if _, err := service.CreateDiscussion(ctx, testAuthor("user-1"), DiscussionDraft{Title: "   ", Body: "body"}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := service.CreateDiscussion(ctx, testAuthor("user-1"), DiscussionDraft{Title: "title", Body: " "}); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if _, err := service.CreateDiscussion(ctx, Author{}, DiscussionDraft{Title: "title", Body: "body"}); !errors.Is(err, ErrMissingAuthor) {
		t.Fatalf("expected ErrMissingAuthor, got %v", err)
	}
	if _, err := service.CreateDiscussion(ctx, testAuthor("user-1"), DiscussionDraft{Title: "title", Body: "body", Category: "gossip"}); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestListDiscussionsFilters(t *testing.T) {
	service, _, _ := mustForumService(t)
	ctx := context.Background()
	author := testAuthor("user-1")

	if _, err := service.CreateDiscussion(ctx, author, DiscussionDraft{
		Title:    "Segfault in matrix code",
		Body:     "stack trace attached",
		Tags:     []string{"c", "linear-algebra"},
		Category: CategoryProgramming,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.CreateDiscussion(ctx, author, DiscussionDraft{
		Title:    "Eigenvalue intuition",
		Body:     "what does an eigenvector mean",
		Tags:     []string{"linear-algebra"},
		Category: CategoryMathematics,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.CreateDiscussion(ctx, author, DiscussionDraft{
		Title:    "Study partners wanted",
		Body:     "meeting tuesdays",
		Category: CategoryGeneral,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byCategory, err := service.ListDiscussions(ctx, ListFilter{Category: CategoryMathematics})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].Title != "Eigenvalue intuition" {
		t.Fatalf("category filter mismatch: %+v", byCategory)
	}

	byTag, err := service.ListDiscussions(ctx, ListFilter{Tag: "linear-algebra"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byTag) != 2 {
		t.Fatalf("expected 2 tagged discussions, got %d", len(byTag))
	}

	// "c" must not match "linear-algebra" through substring leakage
	byShortTag, err := service.ListDiscussions(ctx, ListFilter{Tag: "c"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byShortTag) != 1 || byShortTag[0].Title != "Segfault in matrix code" {
		t.Fatalf("single-letter tag filter mismatch: %+v", byShortTag)
	}

	bySearch, err := service.ListDiscussions(ctx, ListFilter{Search: "eigenvector"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].Title != "Eigenvalue intuition" {
		t.Fatalf("search filter mismatch: %+v", bySearch)
	}
}

func TestListDiscussionsOrdering(t *testing.T) {
	service, _, clock := mustForumService(t)
	ctx := context.Background()
	author := testAuthor("user-1")

	oldest := mustDiscussion(t, service, author, "oldest")
	clock.Advance(time.Minute)
	middle := mustDiscussion(t, service, author, "middle")
	clock.Advance(time.Minute)
	newest := mustDiscussion(t, service, author, "newest")

	recent, err := service.ListDiscussions(ctx, ListFilter{Order: OrderRecent})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recent) != 3 || recent[0].Title != "newest" || recent[2].Title != "oldest" {
		t.Fatalf("recent ordering mismatch: %+v", recent)
	}

	// three upvotes push the oldest thread to the top of popular
	for i := 0; i < 3; i++ {
		if err := service.Vote(ctx, DiscussionID(oldest.DiscussionID), VoteUp); err != nil {
			t.Fatalf("vote failed: %v", err)
		}
	}
	if err := service.Vote(ctx, DiscussionID(middle.DiscussionID), VoteUp); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	popular, err := service.ListDiscussions(ctx, ListFilter{Order: OrderPopular})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if popular[0].Title != "oldest" || popular[1].Title != "middle" || popular[2].Title != "newest" {
		t.Fatalf("popular ordering mismatch: %v %v %v", popular[0].Title, popular[1].Title, popular[2].Title)
	}

	// a pinned thread outranks everything in both orders
	if err := service.db.Model(&Discussion{}).
		Where("discussion_id = ?", newest.DiscussionID).
		UpdateColumn("pinned", true).Error; err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	for _, order := range []ListOrder{OrderRecent, OrderPopular} {
		listed, err := service.ListDiscussions(ctx, ListFilter{Order: order})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if listed[0].Title != "newest" {
			t.Fatalf("pinned thread not first under %q: %v", order, listed[0].Title)
		}
	}
}

func TestVoteIncrementsAtomically(t *testing.T) {
	service, _, _ := mustForumService(t)
	ctx := context.Background()
	discussion := mustDiscussion(t, service, testAuthor("user-1"), "contested")

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		direction := VoteUp
		if i%4 == 0 {
			direction = VoteDown
		}
		wg.Add(1)
		go func(direction VoteDirection) {
			defer wg.Done()
			errs <- service.Vote(ctx, DiscussionID(discussion.DiscussionID), direction)
		}(direction)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent vote failed: %v", err)
		}
	}

	stored, err := service.GetDiscussion(ctx, DiscussionID(discussion.DiscussionID))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Upvotes != 15 || stored.Downvotes != 5 {
		t.Fatalf("lost votes: upvotes=%d downvotes=%d", stored.Upvotes, stored.Downvotes)
	}
}

func TestVoteRejectsUnknownDirectionAndDiscussion(t *testing.T) {
	service, _, _ := mustForumService(t)
	ctx := context.Background()
	discussion := mustDiscussion(t, service, testAuthor("user-1"), "thread")

	if err := service.Vote(ctx, DiscussionID(discussion.DiscussionID), VoteDirection("sideways")); !errors.Is(err, ErrInvalidVoteDirection) {
		t.Fatalf("expected ErrInvalidVoteDirection, got %v", err)
	}
	if err := service.Vote(ctx, DiscussionID("missing"), VoteUp); !errors.Is(err, ErrDiscussionNotFound) {
		t.Fatalf("expected ErrDiscussionNotFound, got %v", err)
	}
}

func TestTrackViewCountsOncePerUser(t *testing.T) {
	service, _, _ := mustForumService(t)
	ctx := context.Background()
	discussion := mustDiscussion(t, service, testAuthor("user-1"), "viewed")
	id := DiscussionID(discussion.DiscussionID)

	for i := 0; i < 3; i++ {
		if err := service.TrackView(ctx, id, "reader-1"); err != nil {
			t.Fatalf("track view failed: %v", err)
		}
	}
	if err := service.TrackView(ctx, id, "reader-2"); err != nil {
		t.Fatalf("track view failed: %v", err)
	}

	stored, err := service.GetDiscussion(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Views != 2 {
		t.Fatalf("expected 2 views for 2 distinct readers, got %d", stored.Views)
	}

	if err := service.TrackView(ctx, id, ""); !errors.Is(err, ErrMissingAuthor) {
		t.Fatalf("expected ErrMissingAuthor, got %v", err)
	}
	if err := service.TrackView(ctx, DiscussionID("missing"), "reader-1"); !errors.Is(err, ErrDiscussionNotFound) {
		t.Fatalf("expected ErrDiscussionNotFound, got %v", err)
	}
}

func TestAddCommentBumpsReplyCounter(t *testing.T) {
	service, dispatcher, clock := mustForumService(t)
	ctx := context.Background()
	discussion := mustDiscussion(t, service, testAuthor("user-1"), "thread")
	id := DiscussionID(discussion.DiscussionID)

	events, cancel := dispatcher.Subscribe(ctx, live.DiscussionCommentsTopic(discussion.DiscussionID))
	defer cancel()

	comment, err := service.AddComment(ctx, id, testAuthor("user-2"), "  first reply  ")
	if err != nil {
		t.Fatalf("add comment failed: %v", err)
	}
	if comment.Body != "first reply" {
		t.Fatalf("body not trimmed: %q", comment.Body)
	}
	if comment.CreatedAtSeconds != clock.Now().Unix() {
		t.Fatalf("comment must carry the server clock, got %d", comment.CreatedAtSeconds)
	}

	stored, err := service.GetDiscussion(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Replies != 1 {
		t.Fatalf("expected 1 reply, got %d", stored.Replies)
	}

	select {
	case event := <-events:
		if event.Action != live.ActionAdded || event.DocID != comment.CommentID {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no comment event published")
	}

	if _, err := service.AddComment(ctx, id, testAuthor("user-2"), "   "); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if _, err := service.AddComment(ctx, DiscussionID("missing"), testAuthor("user-2"), "reply"); !errors.Is(err, ErrDiscussionNotFound) {
		t.Fatalf("expected ErrDiscussionNotFound, got %v", err)
	}

	// the rejected comments must not have moved the counter
	stored, err = service.GetDiscussion(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Replies != 1 {
		t.Fatalf("reply counter moved without an insert: %d", stored.Replies)
	}
}

func TestListCommentsOrdersByTimeThenID(t *testing.T) {
	service, _, clock := mustForumService(t)
	ctx := context.Background()
	discussion := mustDiscussion(t, service, testAuthor("user-1"), "thread")
	id := DiscussionID(discussion.DiscussionID)

	// two comments share a timestamp, a third lands a minute later
	first, err := service.AddComment(ctx, id, testAuthor("user-2"), "reply a")
	if err != nil {
		t.Fatalf("add comment failed: %v", err)
	}
	second, err := service.AddComment(ctx, id, testAuthor("user-3"), "reply b")
	if err != nil {
		t.Fatalf("add comment failed: %v", err)
	}
	clock.Advance(time.Minute)
	third, err := service.AddComment(ctx, id, testAuthor("user-2"), "reply c")
	if err != nil {
		t.Fatalf("add comment failed: %v", err)
	}

	comments, err := service.ListComments(ctx, id)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("expected 3 comments, got %d", len(comments))
	}
	if comments[0].CommentID != first.CommentID || comments[1].CommentID != second.CommentID || comments[2].CommentID != third.CommentID {
		t.Fatalf("ordering mismatch: %v %v %v", comments[0].CommentID, comments[1].CommentID, comments[2].CommentID)
	}
}

func TestVoteComment(t *testing.T) {
	service, _, _ := mustForumService(t)
	ctx := context.Background()
	discussion := mustDiscussion(t, service, testAuthor("user-1"), "thread")
	comment, err := service.AddComment(ctx, DiscussionID(discussion.DiscussionID), testAuthor("user-2"), "reply")
	if err != nil {
		t.Fatalf("add comment failed: %v", err)
	}

	if err := service.VoteComment(ctx, CommentID(comment.CommentID)); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if err := service.VoteComment(ctx, CommentID(comment.CommentID)); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	comments, err := service.ListComments(ctx, DiscussionID(discussion.DiscussionID))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if comments[0].Upvotes != 2 {
		t.Fatalf("expected 2 upvotes, got %d", comments[0].Upvotes)
	}

	if err := service.VoteComment(ctx, CommentID("missing")); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
}

func TestMarkSolvedRequiresAuthor(t *testing.T) {
	service, _, _ := mustForumService(t)
	ctx := context.Background()
	discussion := mustDiscussion(t, service, testAuthor("user-1"), "question")
	id := DiscussionID(discussion.DiscussionID)

	if err := service.MarkSolved(ctx, id, "user-2"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	stored, err := service.GetDiscussion(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Solved {
		t.Fatal("non-author must not mark a thread solved")
	}

	if err := service.MarkSolved(ctx, id, "user-1"); err != nil {
		t.Fatalf("mark solved failed: %v", err)
	}
	stored, err = service.GetDiscussion(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !stored.Solved {
		t.Fatal("author mark solved did not stick")
	}

	if err := service.MarkSolved(ctx, DiscussionID("missing"), "user-1"); !errors.Is(err, ErrDiscussionNotFound) {
		t.Fatalf("expected ErrDiscussionNotFound, got %v", err)
	}
}

func TestNormalizeTagsCapsAndDeduplicates(t *testing.T) {
	raw := []string{"Go", "go", " GO ", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
	tags := NormalizeTags(raw)
	if len(tags) != maxTagCount {
		t.Fatalf("expected %d tags, got %d", maxTagCount, len(tags))
	}
	if tags[0] != "go" || tags[1] != "one" {
		t.Fatalf("unexpected leading tags: %v", tags)
	}
}
