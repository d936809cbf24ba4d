package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chenty2333/ancient-arch/internal/model"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("ANCIENT_ARCH_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("ANCIENT_ARCH_TEST_DB or DATABASE_URL not set")
		return nil
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return pool
}

func testUsername() string {
	return fmt.Sprintf("test_user_%d", time.Now().UnixNano())
}

func TestUserLifecycle(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := NewStore(pool)
	username := testUsername()

	user, err := store.CreateUser(ctx, username, "digest-placeholder", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	defer store.DeleteUser(ctx, user.ID)

	if user.IsVerified {
		t.Error("new user is verified")
	}

	_, err = store.CreateUser(ctx, username, "digest-placeholder", model.RoleUser)
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("duplicate create: err = %v, want ErrDuplicateUsername", err)
	}

	// Verification is idempotent: marking twice is as good as once.
	for i := 0; i < 2; i++ {
		if err := store.MarkUserVerified(ctx, user.ID); err != nil {
			t.Fatalf("MarkUserVerified (round %d): %v", i+1, err)
		}
	}
	verified, role, err := store.UserVerification(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserVerification: %v", err)
	}
	if !verified || role != model.RoleUser {
		t.Errorf("verified = %v role = %q, want true %q", verified, role, model.RoleUser)
	}
}

func TestDailyContributionLimit(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := NewStore(pool)

	user, err := store.CreateUser(ctx, testUsername(), "digest-placeholder", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	defer store.DeleteUser(ctx, user.ID)

	payload := []byte(`{"category":"temple","name":"t","description":"d"}`)
	if _, err := store.CreateContribution(ctx, user.ID, model.ContributionArchitecture, payload); err != nil {
		t.Fatalf("first contribution: %v", err)
	}
	_, err = store.CreateContribution(ctx, user.ID, model.ContributionArchitecture, payload)
	if !errors.Is(err, ErrDailyContribution) {
		t.Errorf("second contribution: err = %v, want ErrDailyContribution", err)
	}
}

func TestBestScoreUpsert(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := NewStore(pool)

	user, err := store.CreateUser(ctx, testUsername(), "digest-placeholder", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	defer store.DeleteUser(ctx, user.ID)

	scores := []int64{60, 90, 70}
	for _, score := range scores {
		if err := store.UpsertBestScore(ctx, user.ID, score); err != nil {
			t.Fatalf("UpsertBestScore(%d): %v", score, err)
		}
	}

	entries, err := store.Leaderboard(ctx, 100)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	for _, entry := range entries {
		if entry.Username == user.Username {
			if entry.Score != 90 {
				t.Errorf("best score = %d, want 90", entry.Score)
			}
			return
		}
	}
	t.Error("user missing from leaderboard")
}
