package planner

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"budgetplanner/internal/cache"
	"budgetplanner/internal/core"
	"budgetplanner/internal/storage/memory"
)

func TestFallbackPlanIsConsistent(t *testing.T) {
	plan := FallbackPlan()
	if len(plan.Categories) != 7 {
		t.Fatalf("categories=%d want 7", len(plan.Categories))
	}
	if err := plan.Validate(); err != nil {
		t.Fatalf("fallback invalid: %v", err)
	}
	if plan.SumAllocated() != core.NewMoney(5000) || plan.Summary.TotalAllocated != core.NewMoney(5000) {
		t.Fatalf("sum=%s total=%s", plan.SumAllocated(), plan.Summary.TotalAllocated)
	}
	var pct float64
	for _, c := range plan.Categories {
		pct += c.Percentage
	}
	if pct != 100 {
		t.Fatalf("percentages add up to %v", pct)
	}

	plan.Categories[0].Name = "changed"
	if FallbackPlan().Categories[0].Name != "Rent/Housing" {
		t.Fatal("fallback plan shares state between calls")
	}
}

func TestPlanStoreCachesCurrentUntilSave(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	lru := cache.NewLRUCache[core.BudgetPlan](4, time.Minute)
	now := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	ids := []string{"p1", "p2"}
	store := NewPlanStore(repo, lru).WithClock(func() time.Time { return now })
	store.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	if cur, err := store.Current(ctx, "u1"); err != nil || cur != nil {
		t.Fatalf("Current=%v err=%v", cur, err)
	}
	if lru.Size() != 0 {
		t.Fatal("missing plan should not be cached")
	}

	first, err := store.Save(ctx, "u1", FallbackPlan(), core.SourceFallback, core.NewMoney(100))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.ID != "p1" || first.Month.String() != "2024-01" || first.UserID != "u1" {
		t.Fatalf("record=%+v", first)
	}
	cur, _ := store.Current(ctx, "u1")
	if cur == nil || cur.ID != "p1" || lru.Size() != 1 {
		t.Fatalf("current=%v cached=%d", cur, lru.Size())
	}

	if _, err := store.Save(ctx, "u1", FallbackPlan(), core.SourceFallback, core.NewMoney(100)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cur, _ = store.Current(ctx, "u1")
	if cur == nil || cur.ID != "p2" {
		t.Fatalf("stale current plan %v", cur)
	}

	history, err := store.History(ctx, "u1")
	if err != nil || len(history) != 2 {
		t.Fatalf("history=%d err=%v", len(history), err)
	}
	if !reflect.DeepEqual(history[1], *cur) {
		t.Fatal("current differs from last history entry")
	}
}

func TestPlanStoreHistoryNeverNil(t *testing.T) {
	h, err := NewPlanStore(memory.New(), nil).History(context.Background(), "nobody")
	if err != nil || h == nil || len(h) != 0 {
		t.Fatalf("history=%v err=%v", h, err)
	}
}

// pausingRepo holds the first CurrentPlan call after it has read the plan.
type pausingRepo struct {
	*memory.Store
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *pausingRepo) CurrentPlan(ctx context.Context, userID string) (*core.BudgetPlan, error) {
	plan, err := r.Store.CurrentPlan(ctx, userID)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return plan, err
}

func TestPlanStoreReadRacingSaveDoesNotCacheStalePlan(t *testing.T) {
	ctx := context.Background()
	repo := &pausingRepo{Store: memory.New(), read: make(chan struct{}), release: make(chan struct{})}
	lru := cache.NewLRUCache[core.BudgetPlan](4, time.Minute)
	store := NewPlanStore(repo, lru)
	ids := []string{"p1", "p2"}
	store.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	// Seeded directly so the paused read is the first CurrentPlan call.
	if err := repo.Store.AppendPlan(ctx, core.BudgetPlan{ID: "seed", UserID: "u1", Categories: FallbackPlan().Categories}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	done := make(chan *core.BudgetPlan)
	go func() {
		cur, _ := store.Current(ctx, "u1")
		done <- cur
	}()
	<-repo.read

	saved, err := store.Save(ctx, "u1", FallbackPlan(), core.SourceFallback, core.NewMoney(100))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	close(repo.release)
	if stale := <-done; stale == nil || stale.ID != "seed" {
		t.Fatalf("in-flight read=%v want seed", stale)
	}

	cur, err := store.Current(ctx, "u1")
	if err != nil || cur == nil || cur.ID != saved.ID {
		t.Fatalf("current=%v err=%v want %s", cur, err, saved.ID)
	}
	history, _ := store.History(ctx, "u1")
	if last := history[len(history)-1]; last.ID != cur.ID {
		t.Fatalf("current %s differs from last history entry %s", cur.ID, last.ID)
	}
}
