package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBulkhead_AcquireRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2, MaxWait: -1})

	r1, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.InUse() != 2 || b.Available() != 0 {
		t.Errorf("expected 2 in use, got %d (available %d)", b.InUse(), b.Available())
	}
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}

	r1()
	r1() // idempotent
	if b.InUse() != 1 {
		t.Errorf("expected 1 in use after release, got %d", b.InUse())
	}
	r2()
	if b.Available() != 2 {
		t.Errorf("expected all slots free, got %d", b.Available())
	}
}

func TestBulkhead_ReleaseFromOtherGoroutine(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	release2, err := b.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected to get the slot once released, got %v", err)
	}
	release2()
}

func TestBulkhead_TimesOutWaiting(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	release, _ := b.Acquire(context.Background())
	defer release()

	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestBulkhead_RespectsContext(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	release, _ := b.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBulkhead_OnReject(t *testing.T) {
	var rejected []string
	b := NewBulkhead(BulkheadConfig{
		Name:          "slots",
		MaxConcurrent: 1,
		MaxWait:       -1,
		OnReject:      func(name string) { rejected = append(rejected, name) },
	})
	release, _ := b.Acquire(context.Background())
	defer release()
	_, _ = b.Acquire(context.Background())
	if len(rejected) != 1 || rejected[0] != "slots" {
		t.Errorf("expected one rejection for slots, got %v", rejected)
	}
}

func TestBulkhead_ExecuteBoundsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 3})
	var mu sync.Mutex
	running, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func() error {
				mu.Lock()
				running++
				peak = max(peak, running)
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if peak > 3 {
		t.Errorf("expected at most 3 concurrent, got %d", peak)
	}
	if b.InUse() != 0 {
		t.Errorf("expected no slot held, got %d", b.InUse())
	}
}
