package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"peerprep/interview/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_, rdb := setupTestRedis(t)
	return map[string]Backend{
		"file":  fs,
		"redis": NewRedisStore(rdb, "interview:", 0),
		"gorm":  NewGormStore(setupTestDB(t)),
	}
}

func TestBackendContract(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if _, err := b.Get(ctx, "interview_session:u/1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing = %v, want ErrNotFound", err)
			}

			if err := b.Put(ctx, "interview_session:u/1", []byte(`{"v":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := b.Put(ctx, "interview_session:u/1", []byte(`{"v":2}`)); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, err := b.Get(ctx, "interview_session:u/1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"v":2}` {
				t.Fatalf("Get = %s", got)
			}

			if err := b.Delete(ctx, "interview_session:u/1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := b.Delete(ctx, "interview_session:u/1"); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
			if _, err := b.Get(ctx, "interview_session:u/1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after delete = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestRedisStoreTTL(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	s := NewRedisStore(rdb, "interview:", time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ttl := mr.TTL("interview:k"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	session := models.NewSession("Ada")
	session.SessionID = "sess-1"
	session.State = models.SessionCompleted
	session.StartTime = &start
	session.EndTime = &end
	session.QuestionsAsked = []models.Question{{ID: "q1", Text: "Two sum?", Difficulty: models.DifficultyEasy, Topic: "arrays"}}
	session.AnswersGiven = []string{"two pointer approach"}
	session.Scores = []float64{0.8}
	session.TopicCoverage["arrays"] = 1
	session.TopicScores["arrays"] = []float64{0.8}
	session.AskedQuestionIDs["q1"] = struct{}{}

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := NewRepository(b, "candidate-7")
			if repo.Key() != "interview_session:candidate-7" {
				t.Fatalf("key = %s", repo.Key())
			}

			empty, err := repo.Load(ctx)
			if err != nil || empty != nil {
				t.Fatalf("Load empty = %v, %v", empty, err)
			}

			if err := repo.Save(ctx, session); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := repo.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !loaded.HasAsked("q1") {
				t.Fatal("asked ids not rehydrated as a set")
			}
			if !loaded.EndTime.Equal(end) || !loaded.StartTime.Equal(start) {
				t.Fatalf("times not rehydrated: %v %v", loaded.StartTime, loaded.EndTime)
			}
			if loaded.TopicScores["arrays"][0] != 0.8 || loaded.State != models.SessionCompleted {
				t.Fatalf("unexpected session %+v", loaded)
			}

			if err := repo.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if s, _ := repo.Load(ctx); s != nil {
				t.Fatal("expected session to be cleared")
			}
		})
	}
}

func TestRepositoryCorruptData(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if err := fs.Put(ctx, SessionKey("x"), []byte("{not json")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := NewRepository(fs, "x").Load(ctx); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSessionKeyWithoutCandidate(t *testing.T) {
	if got := SessionKey(""); got != models.SessionStorageKey {
		t.Fatalf("SessionKey(\"\") = %s", got)
	}
}
