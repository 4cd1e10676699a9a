package events

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRoutesByUser(t *testing.T) {
	b := NewBroker(nil)
	bob := b.Subscribe("bob")
	carol := b.Subscribe("carol")
	defer b.Unsubscribe(bob)
	defer b.Unsubscribe(carol)

	b.Publish(&models.Event{Type: models.EventInvitationCreated, UserID: "bob", ContainerID: "b1"})

	require.Len(t, bob.Ch, 1)
	assert.Empty(t, carol.Ch)
	ev := <-bob.Ch
	assert.Equal(t, models.EventInvitationCreated, ev.Type)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(nil)
	sub := b.Subscribe("bob")
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)

	_, open := <-sub.Ch
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())
}

// For any number of published events, a subscriber never holds more than
// its buffer and Publish never blocks.
func TestPublishNeverBlocks(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("full subscribers drop events", prop.ForAll(
		func(n int) bool {
			b := NewBroker(nil)
			sub := b.Subscribe("u")
			for i := 0; i < n; i++ {
				b.Publish(&models.Event{Type: models.EventMemberRemoved, UserID: "u", ContainerID: fmt.Sprint(i)})
			}
			want := n
			if want > subscriberBuffer {
				want = subscriberBuffer
			}
			return len(sub.Ch) == want
		},
		gen.IntRange(0, 3*subscriberBuffer),
	))

	properties.TestingRun(t)
}
