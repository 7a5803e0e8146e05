package stream

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/npezzotti/mob-vibe/internal/logging"
	"github.com/rs/zerolog"
)

// FriendshipsTopic carries the ids of users whose friend lists changed.
const FriendshipsTopic = "friendships.changed"

type friendshipsChanged struct {
	UserIds []int `json:"user_ids"`
}

// Notifier publishes change notifications on an in-process pub/sub.
type Notifier struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger
}

func NewNotifier(l zerolog.Logger) *Notifier {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logging.NewWatermillAdapter(l))

	return &Notifier{
		pubsub: pubsub,
		log:    l.With().Str("component", "notifier").Logger(),
	}
}

func (n *Notifier) FriendshipsChanged(userIds ...int) error {
	payload, err := json.Marshal(friendshipsChanged{UserIds: userIds})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.pubsub.Publish(FriendshipsTopic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", FriendshipsTopic, err)
	}

	return nil
}

// Forward relays friendship changes to the hub until ctx ends or the notifier
// is closed.
func (n *Notifier) Forward(ctx context.Context, h *Hub) error {
	msgs, err := n.pubsub.Subscribe(ctx, FriendshipsTopic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", FriendshipsTopic, err)
	}

	go func() {
		for msg := range msgs {
			var ev friendshipsChanged
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				n.log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("decode friendship change")
				msg.Ack()
				continue
			}

			h.NotifyUsers(ev.UserIds...)
			msg.Ack()
		}
	}()

	return nil
}

func (n *Notifier) Close() error {
	return n.pubsub.Close()
}
