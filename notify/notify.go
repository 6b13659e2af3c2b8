// Package notify delivers member notifications over Telegram or e-mail,
// falling back to the log when neither channel can reach the member.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/models"
)

// ErrUnreachable means the channel has no address for the member.
var ErrUnreachable = errors.New("notify: recipient unreachable on this channel")

type Message struct {
	RecipientID string
	Title       string
	Body        string
	Link        string
}

// Notifier is what the marketplace depends on.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Sink is a single delivery channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, to models.Member, msg Message) error
}

// MemberDirectory resolves recipients.
type MemberDirectory interface {
	GetMember(ctx context.Context, id string) (models.Member, error)
}

// Dispatcher tries each sink in order until one delivers.
type Dispatcher struct {
	members MemberDirectory
	sinks   []Sink
	log     *zap.Logger
}

var _ Notifier = (*Dispatcher)(nil)

func NewDispatcher(members MemberDirectory, log *zap.Logger, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{members: members, sinks: sinks, log: log}
}

func (d *Dispatcher) Notify(ctx context.Context, msg Message) error {
	member, err := d.members.GetMember(ctx, msg.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", msg.RecipientID, err)
	}

	var errs []error
	for _, sink := range d.sinks {
		err := sink.Deliver(ctx, member, msg)
		if err == nil {
			d.log.Debug("notification delivered",
				zap.String("channel", sink.Name()), zap.String("member_id", member.ID))
			return nil
		}
		if errors.Is(err, ErrUnreachable) {
			continue
		}
		d.log.Warn("notification channel failed",
			zap.String("channel", sink.Name()), zap.String("member_id", member.ID), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return fmt.Errorf("member %s: %w", member.ID, ErrUnreachable)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
