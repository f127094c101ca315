package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
)

func withFixedJobID(t *testing.T, id string) {
	orig := newJobID
	newJobID = func() string { return id }
	t.Cleanup(func() { newJobID = orig })
}

func TestRunJobSync_MatchingResultReturnsImmediately(t *testing.T) {
	b, ch := newTestBroker()
	withFixedJobID(t, "job-1")

	conn, _ := b.getConn(context.Background())
	replyTo := conn.ReplyQueueName("Addition", func() string { return "reply-addition" })

	go func() {
		// Wait for RunJobSync's consumer to register before delivering,
		// same as a worker replying to an in-flight RPC.
		for {
			ch.mu.Lock()
			_, ok := ch.consumers[replyTo]
			ch.mu.Unlock()
			if ok {
				break
			}
			time.Sleep(time.Millisecond)
		}
		body, _ := json.Marshal(newSuccessEnvelope("job-1", float64(3)))
		ch.deliverTo(replyTo, amqp.Delivery{
			Acknowledger:  noopAcknowledger{},
			CorrelationId: "job-1",
			Body:          body,
		})
	}()

	result, err := b.RunJobSync(context.Background(), "Addition", map[string]any{"a": 1, "b": 2}, broker.PriorityNormal, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != float64(3) {
		t.Fatalf("got %v, want 3", result)
	}
}

func TestRunJobSync_CachesOutOfOrderResultsForOtherWaiters(t *testing.T) {
	b, ch := newTestBroker()

	conn, _ := b.getConn(context.Background())
	replyTo := conn.ReplyQueueName("Addition", func() string { return "reply-addition" })

	callJobID := "job-mine"
	withFixedJobID(t, callJobID)

	go func() {
		for {
			ch.mu.Lock()
			_, ok := ch.consumers[replyTo]
			ch.mu.Unlock()
			if ok {
				break
			}
			time.Sleep(time.Millisecond)
		}

		otherBody, _ := json.Marshal(newSuccessEnvelope("job-other", float64(99)))
		ch.deliverTo(replyTo, amqp.Delivery{Acknowledger: noopAcknowledger{}, CorrelationId: "job-other", Body: otherBody})

		mineBody, _ := json.Marshal(newSuccessEnvelope(callJobID, float64(7)))
		ch.deliverTo(replyTo, amqp.Delivery{Acknowledger: noopAcknowledger{}, CorrelationId: callJobID, Body: mineBody})
	}()

	result, err := b.RunJobSync(context.Background(), "Addition", nil, broker.PriorityNormal, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != float64(7) {
		t.Fatalf("got %v, want 7", result)
	}

	cache := b.cacheFor("Addition")
	if cache.Len() != 1 {
		t.Fatalf("expected the mismatched result to remain cached, got %d entries", cache.Len())
	}
	body, ok := cache.Take("job-other")
	if !ok {
		t.Fatal("expected job-other's result to be retrievable from the cache")
	}
	var env resultEnvelope
	_ = json.Unmarshal(body, &env)
	if env.Result != float64(99) {
		t.Fatalf("got cached result %v, want 99", env.Result)
	}
}

func TestRunJobSync_TakesFromCacheWithoutConsuming(t *testing.T) {
	b, _ := newTestBroker()
	withFixedJobID(t, "job-precached")

	// Acquire the connection first: the first getConn resets the cache
	// map, which would drop an entry put before it.
	if _, err := b.getConn(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache := b.cacheFor("Addition")
	body, _ := json.Marshal(newSuccessEnvelope("job-precached", "cached-value"))
	cache.Put("job-precached", body)

	result, err := b.RunJobSync(context.Background(), "Addition", nil, broker.PriorityNormal, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "cached-value" {
		t.Fatalf("got %v, want cached-value", result)
	}
}

func TestRunJobSync_FailureStatusReturnsErrJobFailed(t *testing.T) {
	b, ch := newTestBroker()
	withFixedJobID(t, "job-fail")

	conn, _ := b.getConn(context.Background())
	replyTo := conn.ReplyQueueName("Addition", func() string { return "reply-addition" })

	go func() {
		for {
			ch.mu.Lock()
			_, ok := ch.consumers[replyTo]
			ch.mu.Unlock()
			if ok {
				break
			}
			time.Sleep(time.Millisecond)
		}
		body, _ := json.Marshal(newFailureEnvelope("job-fail", errors.New("boom")))
		ch.deliverTo(replyTo, amqp.Delivery{Acknowledger: noopAcknowledger{}, CorrelationId: "job-fail", Body: body})
	}()

	_, err := b.RunJobSync(context.Background(), "Addition", nil, broker.PriorityNormal, 0)
	if !errors.Is(err, broker.ErrJobFailed) {
		t.Fatalf("got %v, want ErrJobFailed", err)
	}
}

func TestRunJobSync_ContextCanceledWhileWaiting(t *testing.T) {
	b, _ := newTestBroker()
	withFixedJobID(t, "job-cancel")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.RunJobSync(ctx, "Addition", nil, broker.PriorityNormal, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}
