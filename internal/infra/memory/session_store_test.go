package memory

import (
	"context"
	"testing"
	"time"

	"totem-quiz-bot/internal/app"
	"totem-quiz-bot/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	session := app.NewSession("u1")
	session.Start(time.Now())
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "u1"); !ok {
		t.Fatalf("expected session present")
	}

	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "u1"); ok {
		t.Fatalf("expected session removed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	session := app.NewSession("u1")
	session.Start(time.Now())
	session.CollectedWeights = [][]domain.AnimalKey{{"fox"}}
	session.CurrentQuestionIndex = 1
	_ = store.Save(ctx, session)

	got, _, _ := store.Get(ctx, "u1")
	got.CollectedWeights[0][0] = "owl"
	got.CurrentQuestionIndex = 5

	again, _, _ := store.Get(ctx, "u1")
	if again.CurrentQuestionIndex != 1 || again.CollectedWeights[0][0] != "fox" {
		t.Fatalf("stored session mutated through a returned copy: %+v", again)
	}
}
