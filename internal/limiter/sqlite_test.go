package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/notekeeper/internal/repository/sqlite"
)

func newSQLiteLimiter(t *testing.T, p Policy) (*SQLite, *time.Time) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewSQLite(db.SQL, p)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestSQLite_BlocksAfterMaxFails(t *testing.T) {
	ctx := context.Background()
	l, now := newSQLiteLimiter(t, Policy{Window: time.Minute, MaxFails: 3, BlockFor: 10 * time.Minute})
	ip := HashIP("127.0.0.1")

	ok, _, err := l.Allow(ctx, "alice", ip)
	if err != nil || !ok {
		t.Fatalf("fresh login must be allowed: ok=%v err=%v", ok, err)
	}
	for i := 0; i < 2; i++ {
		if blocked, _, err := l.Failure(ctx, "alice", ip); err != nil || blocked {
			t.Fatalf("failure %d: blocked=%v err=%v", i+1, blocked, err)
		}
	}
	blocked, dur, err := l.Failure(ctx, "alice", ip)
	if err != nil || !blocked || dur != 10*time.Minute {
		t.Fatalf("third failure must block: blocked=%v dur=%v err=%v", blocked, dur, err)
	}

	*now = now.Add(time.Minute)
	ok, retry, err := l.Allow(ctx, "alice", ip)
	if err != nil || ok || retry != 9*time.Minute {
		t.Fatalf("Allow while blocked: ok=%v retry=%v err=%v", ok, retry, err)
	}
	if ok, _, _ := l.Allow(ctx, "bob", ip); !ok {
		t.Fatalf("other login must not be blocked")
	}

	*now = now.Add(10 * time.Minute)
	if ok, _, err := l.Allow(ctx, "alice", ip); err != nil || !ok {
		t.Fatalf("block must expire: ok=%v err=%v", ok, err)
	}
}

func TestSQLite_WindowAndSuccessReset(t *testing.T) {
	ctx := context.Background()
	l, now := newSQLiteLimiter(t, Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Hour})
	ip := HashIP("127.0.0.1")

	if blocked, _, _ := l.Failure(ctx, "alice", ip); blocked {
		t.Fatalf("first failure must not block")
	}
	*now = now.Add(2 * time.Minute)
	if blocked, _, _ := l.Failure(ctx, "alice", ip); blocked {
		t.Fatalf("failure outside window must restart the count")
	}

	if err := l.Success(ctx, "alice", ip); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if blocked, _, _ := l.Failure(ctx, "alice", ip); blocked {
		t.Fatalf("success must reset the count")
	}
}
