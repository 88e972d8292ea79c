package challenge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const staticCodeTTL = 10 * time.Minute

// StaticBroker is an in-process Broker that hands out a fixed code per phone
// number. It exists for local development and tests, where hitting a real
// SMS provider is unwanted.
type StaticBroker struct {
	code string

	mu     sync.Mutex
	issued map[string]staticChallenge
}

type staticChallenge struct {
	id        string
	expiresAt time.Time
}

var _ Broker = (*StaticBroker)(nil)

// NewStaticBroker creates a broker that accepts code for any phone it has
// sent to within the last ten minutes.
func NewStaticBroker(code string) *StaticBroker {
	return &StaticBroker{
		code:   code,
		issued: make(map[string]staticChallenge),
	}
}

func (b *StaticBroker) SendCode(_ context.Context, phone string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued[phone] = staticChallenge{
		id:        uuid.NewString(),
		expiresAt: time.Now().Add(staticCodeTTL),
	}
	return "pending", nil
}

func (b *StaticBroker) CheckCode(_ context.Context, phone, code string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.issued[phone]
	if !ok || time.Now().After(ch.expiresAt) {
		return ResultExpired, nil
	}
	if code != b.code {
		return ResultDenied, nil
	}
	// A code is single-use: consume the challenge on success.
	delete(b.issued, phone)
	return ResultApproved, nil
}
