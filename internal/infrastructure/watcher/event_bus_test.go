package watcher

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/webforge/backend/internal/domain/events"
)

func newTestEvent(t events.EventType) *events.ProjectFileEvent {
	return &events.ProjectFileEvent{
		EventType:   t,
		FilePath:    "/tmp/generated_apps/site/index.html",
		ProjectName: "site",
		EventTime:   time.Now(),
	}
}

func TestEventBus_SubscribeAndPublish(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var count atomic.Int32
	for i := 0; i < 3; i++ {
		unsub := bus.Subscribe(events.ProjectFileModified, events.HandlerFunc(func(event events.Event) error {
			count.Add(1)
			return nil
		}))
		defer unsub()
	}

	bus.Publish(newTestEvent(events.ProjectFileModified))

	assert.Eventually(t, func() bool { return count.Load() == 3 }, time.Second, 10*time.Millisecond)
}

func TestEventBus_SubscribeMultiple(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var count atomic.Int32
	unsub := bus.SubscribeMultiple(events.ProjectFileEvents, events.HandlerFunc(func(event events.Event) error {
		count.Add(1)
		return nil
	}))
	defer unsub()

	bus.Publish(newTestEvent(events.ProjectFileCreated))
	bus.Publish(newTestEvent(events.ProjectFileModified))
	bus.Publish(newTestEvent(events.ProjectFileDeleted))

	assert.Eventually(t, func() bool { return count.Load() == 3 }, time.Second, 10*time.Millisecond)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var kept, removed atomic.Int32
	unsub := bus.Subscribe(events.ProjectFileCreated, events.HandlerFunc(func(event events.Event) error {
		removed.Add(1)
		return nil
	}))
	bus.Subscribe(events.ProjectFileCreated, events.HandlerFunc(func(event events.Event) error {
		kept.Add(1)
		return nil
	}))

	unsub()
	unsub() // 重复调用无副作用

	bus.Publish(newTestEvent(events.ProjectFileCreated))

	assert.Eventually(t, func() bool { return kept.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), removed.Load())
}

func TestEventBus_ErrorIsolation(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var successCount atomic.Int32
	bus.Subscribe(events.ProjectFileCreated, events.HandlerFunc(func(event events.Event) error {
		return errors.New("handler error")
	}))
	bus.Subscribe(events.ProjectFileCreated, events.HandlerFunc(func(event events.Event) error {
		successCount.Add(1)
		return nil
	}))

	bus.Publish(newTestEvent(events.ProjectFileCreated))

	assert.Eventually(t, func() bool { return successCount.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestEventBus_PanicRecovery(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	var successCount atomic.Int32
	bus.Subscribe(events.ProjectFileDeleted, events.HandlerFunc(func(event events.Event) error {
		panic("boom")
	}))
	bus.Subscribe(events.ProjectFileDeleted, events.HandlerFunc(func(event events.Event) error {
		successCount.Add(1)
		return nil
	}))

	bus.Publish(newTestEvent(events.ProjectFileDeleted))

	assert.Eventually(t, func() bool { return successCount.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestEventBus_CloseWaitsAndRejects(t *testing.T) {
	bus := NewEventBus()

	var count atomic.Int32
	bus.Subscribe(events.ProjectFileModified, events.HandlerFunc(func(event events.Event) error {
		time.Sleep(50 * time.Millisecond)
		count.Add(1)
		return nil
	}))

	bus.Publish(newTestEvent(events.ProjectFileModified))
	bus.Close()
	assert.Equal(t, int32(1), count.Load(), "Close should wait for in-flight handlers")

	bus.Publish(newTestEvent(events.ProjectFileModified))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load(), "events after Close are dropped")

	bus.Close()
}
