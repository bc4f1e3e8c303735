package mailfake

import (
	"context"
	"sync"

	"github.com/leetbase/auth-service/mail"
)

var _ mail.Notifier = (*FakeNotifier)(nil)

// Sent records one delivered message.
type Sent struct {
	Kind  string // "verify" or "reset"
	Email string
	Pin   string
}

// FakeNotifier records sends instead of delivering. FailNext makes the next
// send fail once, to exercise fire-and-forget and resend error paths.
type FakeNotifier struct {
	lock     sync.Mutex
	sent     []Sent
	FailNext error
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) SendVerifyOTP(_ context.Context, email, pin string) error {
	return n.record("verify", email, pin)
}

func (n *FakeNotifier) SendResetOTP(_ context.Context, email, pin string) error {
	return n.record("reset", email, pin)
}

func (n *FakeNotifier) record(kind, email, pin string) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.FailNext != nil {
		err := n.FailNext
		n.FailNext = nil
		return err
	}
	n.sent = append(n.sent, Sent{Kind: kind, Email: email, Pin: pin})
	return nil
}

// SentMessages returns a copy of everything recorded so far.
func (n *FakeNotifier) SentMessages() []Sent {
	n.lock.Lock()
	defer n.lock.Unlock()

	out := make([]Sent, len(n.sent))
	copy(out, n.sent)
	return out
}
