package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
)

func TestRunJobAsync_DeclaresTopologyAndPublishes(t *testing.T) {
	b, ch := newTestBroker()

	jobID, err := b.RunJobAsync(context.Background(), "Addition", map[string]any{"a": 1, "b": 2}, broker.PriorityHigh, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a non-empty job id")
	}

	if !ch.exchanges["Addition"] {
		t.Fatal("expected task exchange to be declared")
	}
	if !ch.queues["Addition"] {
		t.Fatal("expected task queue to be declared")
	}

	if len(ch.publishes) != 1 {
		t.Fatalf("got %d publishes, want 1", len(ch.publishes))
	}
	pub := ch.publishes[0]
	if pub.CorrelationId != jobID {
		t.Fatalf("got correlation_id %q, want %q", pub.CorrelationId, jobID)
	}
	if pub.Priority != 2 {
		t.Fatalf("got priority %d, want 2 (high)", pub.Priority)
	}
	if pub.ReplyTo == "" {
		t.Fatal("expected reply_to to be set")
	}

	var env taskEnvelope
	if err := json.Unmarshal(pub.Body, &env); err != nil {
		t.Fatalf("unmarshal published body: %v", err)
	}
	if env.Task != "Addition" || env.ID != jobID || env.Retries != 3 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Kwargs["a"] != float64(1) {
		t.Fatalf("unexpected kwargs: %+v", env.Kwargs)
	}
}

func TestRunJobAsync_ReusesReplyQueueAcrossCalls(t *testing.T) {
	b, _ := newTestBroker()
	ctx := context.Background()

	if _, err := b.RunJobAsync(ctx, "Addition", nil, broker.PriorityNormal, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conn, _ := b.getConn(ctx)
	first, ok := conn.ReplyQueueNameIfExists("Addition")
	if !ok {
		t.Fatal("expected a reply queue to be remembered")
	}

	if _, err := b.RunJobAsync(ctx, "Addition", nil, broker.PriorityNormal, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := conn.ReplyQueueNameIfExists("Addition")
	if first != second {
		t.Fatalf("expected the same reply queue to be reused, got %q then %q", first, second)
	}
}
