package worker

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"tilewalk/client/internal/telemetry"
)

func TestQueueWraparoundAndGrowth(t *testing.T) {
	queue := New(Config{InitialCapacity: 2}, nil, nil)
	var order []int
	for i := 0; i < 2; i++ {
		i := i
		queue.Post(func() { order = append(order, i) })
	}
	if got := queue.RunPending(); got != 2 {
		t.Fatalf("expected 2 executed tasks, got %d", got)
	}
	// Push past capacity to exercise growth.
	for i := 2; i < 7; i++ {
		i := i
		queue.Post(func() { order = append(order, i) })
	}
	if queue.Len() != 5 {
		t.Fatalf("expected 5 staged tasks, got %d", queue.Len())
	}
	queue.RunPending()
	for i, v := range order {
		if v != i {
			t.Fatalf("unexpected execution order: %v", order)
		}
	}
}

func TestRunPendingRunsTasksPostedDuringExecution(t *testing.T) {
	queue := New(Config{}, nil, nil)
	var trace []string
	queue.Post(func() {
		trace = append(trace, "first")
		queue.Post(func() { trace = append(trace, "nested") })
	})
	queue.Post(func() { trace = append(trace, "second") })
	queue.RunPending()
	want := []string{"first", "second", "nested"}
	if strings.Join(trace, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected trace %v, want %v", trace, want)
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	counters := telemetry.NewCounters()
	queue := New(Config{}, telemetry.WrapLogger(log.New(&buf, "", 0)), counters)
	ran := false
	queue.Post(func() { panic("boom") })
	queue.Post(func() { ran = true })
	queue.RunPending()
	if !ran {
		t.Fatalf("expected task after panic to run")
	}
	if counters.Value(telemetry.KeyWorkerPanics) != 1 {
		t.Fatalf("expected panic to be counted")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected panic to be logged, got %q", buf.String())
	}
}

func TestQueueRunPreservesOrderAcrossProducers(t *testing.T) {
	queue := New(Config{InitialCapacity: 4}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- queue.Run(ctx) }()

	var mu sync.Mutex
	seen := make(map[int][]int)
	var wg sync.WaitGroup
	for producer := 0; producer < 4; producer++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				i := i
				queue.Post(func() {
					mu.Lock()
					seen[producer] = append(seen[producer], i)
					mu.Unlock()
				})
			}
		}(producer)
	}
	wg.Wait()

	finished := make(chan struct{})
	queue.Post(func() { close(finished) })
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not drain queue")
	}

	mu.Lock()
	defer mu.Unlock()
	for producer, values := range seen {
		if len(values) != 200 {
			t.Fatalf("producer %d: expected 200 tasks, got %d", producer, len(values))
		}
		for i, v := range values {
			if v != i {
				t.Fatalf("producer %d: out of order at %d: %d", producer, i, v)
			}
		}
	}

	queue.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit after close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not exit after close")
	}
	if queue.Post(func() {}) {
		t.Fatalf("expected post after close to fail")
	}
}

func TestQueueWarnsOnBacklog(t *testing.T) {
	var buf bytes.Buffer
	queue := New(Config{WarningStep: 3}, telemetry.WrapLogger(log.New(&buf, "", 0)), nil)
	for i := 0; i < 6; i++ {
		queue.Post(func() {})
	}
	if got := strings.Count(buf.String(), "backlog"); got != 2 {
		t.Fatalf("expected 2 backlog warnings, got %d: %q", got, buf.String())
	}
}
