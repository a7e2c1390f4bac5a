package mq

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/pstest"
	"github.com/tko-aly/usersvc/config"
)

func newTestPubSub(t *testing.T) (*PubSubClient, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	client, err := NewPubSubClient(context.Background(), config.PubSubConfig{ProjectID: "usersvc-test"})
	if err != nil {
		t.Fatalf("pubsub client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPubSubConcurrentPublishSharesTopic(t *testing.T) {
	client, srv := newTestPubSub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const publishers = 8
	var wg sync.WaitGroup
	errs := make(chan error, publishers)
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Publish(ctx, "user-events", []byte(`{}`), map[string]string{AttrContentType: "application/json"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("publish: %v", err)
	}

	client.mu.Lock()
	cached := len(client.topics)
	client.mu.Unlock()
	if cached != 1 {
		t.Fatalf("expected one cached topic, got %d", cached)
	}
	if got := len(srv.Messages()); got != publishers {
		t.Fatalf("expected %d messages, got %d", publishers, got)
	}
}

func TestPubSubPublishUsesExistingTopic(t *testing.T) {
	client, srv := newTestPubSub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := client.client.CreateTopic(ctx, "user-events")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	existing.Stop()
	if _, err := client.Publish(ctx, "user-events", []byte(`{}`), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := len(srv.Messages()); got != 1 {
		t.Fatalf("expected 1 message, got %d", got)
	}
}
