//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/slotbooking/internal/adapters/events"
	"github.com/zatekoja/slotbooking/internal/adapters/lease"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
)

func waitForBookingEvent(t *testing.T, ch <-chan *entities.BookingEvent) *entities.BookingEvent {
	t.Helper()
	select {
	case event := <-ch:
		require.NotNil(t, event)
		return event
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for booking event")
		return nil
	}
}

func TestRedisEventBusFanoutIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)

	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	providerID := uuid.NewString()
	channel := providers.GetProviderChannel(providerID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1, err := eventBus.Subscribe(ctx, channel)
	require.NoError(t, err)
	sub2, err := eventBus.Subscribe(ctx, channel)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	event := entities.NewBookingEvent(entities.BookingEventCreated, &entities.Booking{
		ID:          uuid.NewString(),
		ProviderID:  providerID,
		RequesterID: uuid.NewString(),
		SlotID:      uuid.NewString(),
	}, nil)
	require.NoError(t, eventBus.Publish(context.Background(), channel, event))

	received1 := waitForBookingEvent(t, sub1)
	received2 := waitForBookingEvent(t, sub2)

	assert.Equal(t, event.ID, received1.ID)
	assert.Equal(t, event.ID, received2.ID)
	assert.Equal(t, entities.BookingEventCreated, received1.Type)
}

func TestRedisLeaseSingleHolderIntegration(t *testing.T) {
	redisClient := newTestRedisClient(t)
	leases := lease.NewRedisLeaseProvider(redisClient)
	key := "integration-" + uuid.NewString()
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired []providers.Lease
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, ok, err := leases.TryAcquire(ctx, key, 5*time.Second)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				acquired = append(acquired, l)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, acquired, 1)

	require.NoError(t, acquired[0].Release(ctx))
	l, ok, err := leases.TryAcquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Release(ctx))
}
