package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishReachesSubscribers(t *testing.T) {
	hub := NewHub(nil)

	sub1 := hub.Subscribe(TopicAlerts, 4)
	sub2 := hub.Subscribe(TopicAlerts, 4)
	other := hub.Subscribe(UserTopic("u-1"), 4)
	defer sub1.Close()
	defer sub2.Close()
	defer other.Close()

	hub.Publish(TopicAlerts, "payload")

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, TopicAlerts, ev.Topic)
			assert.Equal(t, "payload", ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	// The user topic saw nothing.
	select {
	case ev := <-other.Events():
		t.Fatalf("unexpected event on user topic: %+v", ev)
	default:
	}
}

func TestHubPublishWithoutSubscribersIsANoop(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(TopicAlerts, "nobody listening")
}

func TestHubSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(TopicAlerts, 1)
	defer sub.Close()

	hub.Publish(TopicAlerts, 1)
	hub.Publish(TopicAlerts, 2) // buffer full, dropped

	ev := <-sub.Events()
	assert.Equal(t, 1, ev.Payload)
	select {
	case ev := <-sub.Events():
		t.Fatalf("expected second event to be dropped, got %+v", ev)
	default:
	}
}

func TestHubCloseDeregisters(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(TopicAlerts, 4)
	require.Equal(t, 1, hub.SubscriberCount(TopicAlerts))

	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount(TopicAlerts))

	// Double close is safe; publishing after close does not panic.
	sub.Close()
	hub.Publish(TopicAlerts, "late")

	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestHubConcurrentConnectDisconnect(t *testing.T) {
	hub := NewHub(nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sub := hub.Subscribe(TopicAlerts, 1)
				hub.Publish(TopicAlerts, j)
				sub.Close()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.SubscriberCount(TopicAlerts))
}
