package memory

import (
	"context"
	"testing"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
)

func TestProfileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()
	now := time.Now()
	store.clock = func() time.Time { return now }

	p := domain.Profile{ID: "u1", DisplayName: "Ana", Role: domain.RoleTeacher, Registered: true}
	if err := store.SaveProfile(ctx, "u1", p, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.GetProfile(ctx, "u1")
	if err != nil || !ok || got != p {
		t.Fatalf("expected cached profile, got %+v ok=%v err=%v", got, ok, err)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := store.GetProfile(ctx, "u1"); ok {
		t.Fatalf("expected profile expired")
	}

	_ = store.SaveProfile(ctx, "u1", p, 0)
	_ = store.DeleteProfile(ctx, "u1")
	if _, ok, _ := store.GetProfile(ctx, "u1"); ok {
		t.Fatalf("expected profile deleted")
	}
}
