package users

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	now := base
	repo.now = func() time.Time { return now }
	svc := NewService(repo)

	if err := svc.UpsertFromAuth(context.Background(), User{ID: "u1", Email: "a@example.com", Name: "Ann"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	now = base.Add(48 * time.Hour)
	if err := svc.UpsertFromAuth(context.Background(), User{ID: "u1", Email: "a@new.example.com", Name: "Ann B"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := svc.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "a@new.example.com" || got.Name != "Ann B" {
		t.Fatalf("profile not refreshed: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("created_at changed on relogin: %v", got.CreatedAt)
	}
	if !got.LastLoginAt.Equal(now) {
		t.Fatalf("last_login_at = %v, want %v", got.LastLoginAt, now)
	}
}

func TestUpsertRequiresIdentity(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.UpsertFromAuth(context.Background(), User{Email: "a@example.com"}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if err := svc.UpsertFromAuth(context.Background(), User{ID: "u1"}); err == nil {
		t.Fatal("expected error for missing email")
	}
}

func TestGetByIDMissing(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if _, err := svc.GetByID(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
