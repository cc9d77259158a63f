// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

const (
	testTopic       = "activity.user_actions"
	testPoisonTopic = "activity.poison"
)

func testConsumerConfig(poisonTopic string) ConsumerConfig {
	return ConsumerConfig{
		Topic:           testTopic,
		PoisonTopic:     poisonTopic,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		CloseTimeout:    time.Second,
	}
}

type fakeStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	events   chan *models.ActivityEvent
}

func newFakeStore(failures int) *fakeStore {
	return &fakeStore{failures: failures, events: make(chan *models.ActivityEvent, 10)}
}

func (s *fakeStore) InsertActivityEvent(_ context.Context, ev *models.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("database is locked")
	}
	s.events <- ev
	return nil
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []string
}

func (b *fakeBroadcaster) BroadcastJSON(messageType string, _ *int64, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, messageType)
}

func (b *fakeBroadcaster) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.messages...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*message.Message
	err      error
}

func (p *recordingPublisher) Publish(_ string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func testUser() *models.User {
	return &models.User{ID: 7, DistinctID: "distinct-7", Email: "ada@example.com"}
}

func testTeam() *models.Team {
	return &models.Team{ID: 3, OrganizationID: uuid.MustParse("0190c4a4-9a9e-7b3c-8f00-0123456789ab")}
}

func newPersistentChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
}

func waitForEvent(t *testing.T, ch <-chan *models.ActivityEvent) *models.ActivityEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for activity event")
		return nil
	}
}

func TestReporter_NilSafe(t *testing.T) {
	t.Parallel()

	var r *Reporter
	r.Report(context.Background(), testUser(), nil, "annotation created", nil)
}

func TestReporter_SkipsAnonymous(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	NewReporter(pub, testTopic).Report(context.Background(), nil, testTeam(), "annotation created", nil)

	if len(pub.messages) != 0 {
		t.Errorf("published %d messages for a nil user, want 0", len(pub.messages))
	}
}

func TestReporter_Payload(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	r := NewReporter(pub, testTopic)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")
	r.Report(ctx, testUser(), testTeam(), "annotation created", map[string]interface{}{"scope": "project"})

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if got := msg.Metadata.Get(MetadataEvent); got != "annotation created" {
		t.Errorf("event metadata = %q", got)
	}
	if got := msg.Metadata.Get(MetadataCorrelationID); got != "corr-1" {
		t.Errorf("correlation metadata = %q", got)
	}

	var ev models.ActivityEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if ev.ID.String() != msg.UUID {
		t.Errorf("event id %s does not match message uuid %s", ev.ID, msg.UUID)
	}
	if !ev.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, fixed)
	}
	if ev.UserID != 7 || ev.DistinctID != "distinct-7" {
		t.Errorf("user fields = %d/%q", ev.UserID, ev.DistinctID)
	}
	if ev.TeamID == nil || *ev.TeamID != 3 {
		t.Errorf("TeamID = %v, want 3", ev.TeamID)
	}
	if ev.OrganizationID == nil || *ev.OrganizationID != testTeam().OrganizationID {
		t.Errorf("OrganizationID = %v", ev.OrganizationID)
	}
	if ev.Properties["scope"] != "project" {
		t.Errorf("Properties = %v", ev.Properties)
	}
}

func TestReporter_PublishFailureIsSwallowed(t *testing.T) {
	before := testutil.ToFloat64(metrics.ActivityPublished.WithLabelValues("invite sent", "error"))

	pub := &recordingPublisher{err: errors.New("broker down")}
	NewReporter(pub, testTopic).Report(context.Background(), testUser(), nil, "invite sent", nil)

	after := testutil.ToFloat64(metrics.ActivityPublished.WithLabelValues("invite sent", "error"))
	if after-before != 1 {
		t.Errorf("error counter moved by %v, want 1", after-before)
	}
}

func TestConsumer_PersistsAndBroadcasts(t *testing.T) {
	ch := newPersistentChannel()
	defer ch.Close()

	store := newFakeStore(0)
	hub := &fakeBroadcaster{}
	consumer := NewConsumer(ch, ch, testConsumerConfig(testPoisonTopic), store, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- consumer.Serve(ctx) }()

	NewReporter(ch, testTopic).Report(context.Background(), testUser(), testTeam(), "annotation updated",
		map[string]interface{}{"scope": "organization"})

	ev := waitForEvent(t, store.events)
	if ev.Event != "annotation updated" {
		t.Errorf("Event = %q", ev.Event)
	}
	if ev.Properties["scope"] != "organization" {
		t.Errorf("Properties = %v", ev.Properties)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(hub.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := hub.snapshot(); len(got) != 1 || got[0] != MessageTypeActivity {
		t.Errorf("broadcast messages = %v", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestConsumer_RetriesAfterStoreError(t *testing.T) {
	ch := newPersistentChannel()
	defer ch.Close()

	before := testutil.ToFloat64(metrics.ActivityPersisted.WithLabelValues("error"))

	store := newFakeStore(1)
	consumer := NewConsumer(ch, ch, testConsumerConfig(testPoisonTopic), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Serve(ctx) }()

	NewReporter(ch, testTopic).Report(context.Background(), testUser(), nil, "invite accepted", nil)

	waitForEvent(t, store.events)
	if got := store.callCount(); got != 2 {
		t.Errorf("store called %d times, want 2", got)
	}
	if delta := testutil.ToFloat64(metrics.ActivityPersisted.WithLabelValues("error")) - before; delta != 1 {
		t.Errorf("error counter moved by %v, want 1", delta)
	}
}

func TestConsumer_DropsMalformed(t *testing.T) {
	ch := newPersistentChannel()
	defer ch.Close()

	before := testutil.ToFloat64(metrics.ActivityPersisted.WithLabelValues("malformed"))

	store := newFakeStore(0)
	consumer := NewConsumer(ch, ch, testConsumerConfig(testPoisonTopic), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Serve(ctx) }()

	if err := ch.Publish(testTopic, message.NewMessage(watermill.NewUUID(), []byte("{not json"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(metrics.ActivityPersisted.WithLabelValues("malformed")) == before {
		if time.Now().After(deadline) {
			t.Fatal("malformed message was not counted")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := store.callCount(); got != 0 {
		t.Errorf("store called %d times for a malformed message", got)
	}
}

func TestConsumer_PermanentFailureIsPoisoned(t *testing.T) {
	ch := newPersistentChannel()
	defer ch.Close()

	before := testutil.ToFloat64(metrics.ActivityPersisted.WithLabelValues("poisoned"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poisoned, err := ch.Subscribe(ctx, testPoisonTopic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	store := newFakeStore(1 << 30)
	consumer := NewConsumer(ch, ch, testConsumerConfig(testPoisonTopic), store, nil)
	go func() { _ = consumer.Serve(ctx) }()

	NewReporter(ch, testTopic).Report(context.Background(), testUser(), nil, "annotation created", nil)

	select {
	case msg := <-poisoned:
		msg.Ack()
		if got := msg.Metadata.Get(MetadataEvent); got != "annotation created" {
			t.Errorf("poisoned event metadata = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("failing message never reached the poison topic")
	}

	// The message is acked after poisoning, so the store sees no more attempts.
	time.Sleep(200 * time.Millisecond)
	if got := store.callCount(); got != 3 {
		t.Errorf("store called %d times, want 3 (1 attempt + 2 retries)", got)
	}
	if delta := testutil.ToFloat64(metrics.ActivityPersisted.WithLabelValues("poisoned")) - before; delta != 1 {
		t.Errorf("poisoned counter moved by %v, want 1", delta)
	}
}

func TestConsumer_PermanentFailureIsDroppedWithoutPoisonTopic(t *testing.T) {
	ch := newPersistentChannel()
	defer ch.Close()

	before := testutil.ToFloat64(metrics.ActivityPersisted.WithLabelValues("dropped"))

	store := newFakeStore(1 << 30)
	consumer := NewConsumer(ch, nil, testConsumerConfig(""), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Serve(ctx) }()

	NewReporter(ch, testTopic).Report(context.Background(), testUser(), nil, "invite sent", nil)

	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(metrics.ActivityPersisted.WithLabelValues("dropped")) == before {
		if time.Now().After(deadline) {
			t.Fatal("failing message was never dropped")
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	if got := store.callCount(); got != 3 {
		t.Errorf("store called %d times, want 3", got)
	}
}

func TestConsumerConfigFrom(t *testing.T) {
	t.Parallel()

	got := ConsumerConfigFrom(&config.EventsConfig{
		Topic:                testTopic,
		PoisonTopic:          testPoisonTopic,
		RetryMaxRetries:      4,
		RetryInitialInterval: 50 * time.Millisecond,
		RetryMaxInterval:     time.Second,
		RetryMultiplier:      1.5,
		CloseTimeout:         3 * time.Second,
	})
	want := ConsumerConfig{
		Topic:           testTopic,
		PoisonTopic:     testPoisonTopic,
		MaxRetries:      4,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      1.5,
		CloseTimeout:    3 * time.Second,
	}
	if got != want {
		t.Errorf("ConsumerConfigFrom() = %+v, want %+v", got, want)
	}
}

func TestNewBus_UnknownTransport(t *testing.T) {
	t.Parallel()

	_, err := NewBus(&config.EventsConfig{Transport: "kafka"})
	if !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("NewBus() error = %v, want ErrUnknownTransport", err)
	}
}

func TestNewBus_Memory(t *testing.T) {
	t.Parallel()

	bus, err := NewBus(&config.EventsConfig{Transport: TransportMemory, BufferSize: 8})
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	if bus.Embedded() != nil {
		t.Error("memory bus must not start a NATS server")
	}
	if err := bus.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewBus_EmbeddedNATS(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a NATS server")
	}

	bus, err := NewBus(&config.EventsConfig{
		Transport:     TransportNATS,
		NATSEmbedded:  true,
		NATSPort:      -1,
		QueueGroup:    "activity-writers",
		SubscriberNum: 1,
		CloseTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()
	if bus.Embedded() == nil || !bus.Embedded().IsRunning() {
		t.Fatal("embedded server is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	messages, err := bus.Subscriber.Subscribe(ctx, testTopic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	reporter := NewReporter(bus.Publisher, testTopic)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		reporter.Report(ctx, testUser(), nil, "annotation created", nil)
		select {
		case msg := <-messages:
			msg.Ack()
			if got := msg.Metadata.Get(MetadataEvent); got != "annotation created" {
				t.Errorf("event metadata = %q", got)
			}
			return
		case <-ctx.Done():
			t.Fatal("no message received over embedded NATS")
		case <-ticker.C:
		}
	}
}
