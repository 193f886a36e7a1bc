package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if err := q.Push(ctx, i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if q.Len() != 3 || q.Cap() != 4 {
		t.Errorf("len/cap = %d/%d", q.Len(), q.Cap())
	}
	for want := 1; want <= 3; want++ {
		got, ok := q.Pop(ctx)
		if !ok || got != want {
			t.Fatalf("pop = %d,%v want %d", got, ok, want)
		}
	}
}

func TestQueue_TryPushFull(t *testing.T) {
	q := New[string](1)
	if !q.TryPush("a") {
		t.Fatal("first TryPush should succeed")
	}
	if q.TryPush("b") {
		t.Error("TryPush on a full queue should fail")
	}
	if q.Utilization() != 1 {
		t.Errorf("utilization = %v", q.Utilization())
	}
}

func TestQueue_PushBlocksUntilCancelled(t *testing.T) {
	q := New[int](1)
	_ = q.TryPush(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Push(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestQueue_CloseDrains(t *testing.T) {
	q := New[int](4)
	_ = q.TryPush(1)
	_ = q.TryPush(2)
	q.Close()
	q.Close() // idempotent

	if err := q.Push(context.Background(), 3); !errors.Is(err, ErrClosed) {
		t.Errorf("push after close: %v", err)
	}
	if q.TryPush(3) {
		t.Error("TryPush after close should fail")
	}
	var got []int
	for {
		v, ok := q.Pop(context.Background())
		if !ok {
			break
		}
		got = append(got, v)
	}
	if len(got) != 2 {
		t.Errorf("drained %v", got)
	}
}

func TestQueue_PopCancelled(t *testing.T) {
	q := New[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.Pop(ctx); ok {
		t.Error("pop on cancelled ctx should return ok=false")
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int](16)
	ctx := context.Background()
	const producers, perProducer = 8, 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Push(ctx, i)
			}
		}()
	}
	done := make(chan int)
	go func() {
		n := 0
		for {
			if _, ok := q.Pop(context.Background()); !ok {
				break
			}
			n++
		}
		done <- n
	}()
	wg.Wait()
	q.Close()
	if n := <-done; n != producers*perProducer {
		t.Errorf("consumed %d, want %d", n, producers*perProducer)
	}
}
