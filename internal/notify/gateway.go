// Package notify fans achievement notifications out to connected clients.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

// TypeAchievementUnlocked is the notification type for a new badge.
const TypeAchievementUnlocked = "achievement_unlocked"

const defaultBuffer = 16

// Notification is one message pushed to a user.
type Notification struct {
	Type        string                `json:"type"`
	UserID      string                `json:"user_id"`
	Achievement *progress.Achievement `json:"achievement,omitempty"`
	SentAt      time.Time             `json:"sent_at"`
}

// Subscription receives the notifications of one user until closed.
type Subscription struct {
	C <-chan Notification

	ch     chan Notification
	userID string
	gw     *Gateway
	once   sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.gw.remove(s)
	})
}

// Gateway routes notifications to the subscriptions of each user.
type Gateway struct {
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	mu     sync.RWMutex
}

// NewGateway creates a new notification gateway. buffer is the per-subscriber
// queue length; notifications beyond it are dropped for that subscriber.
func NewGateway(buffer int) *Gateway {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Gateway{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscription for userID. On a closed gateway the
// returned subscription is already closed.
func (g *Gateway) Subscribe(userID string) *Subscription {
	ch := make(chan Notification, g.buffer)
	s := &Subscription{C: ch, ch: ch, userID: userID, gw: g}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		close(ch)
		return s
	}
	if g.subs[userID] == nil {
		g.subs[userID] = make(map[*Subscription]struct{})
	}
	g.subs[userID][s] = struct{}{}
	slog.Debug("notification subscriber added", "user_id", userID)
	return s
}

// Subscribers returns the number of open subscriptions of a user.
func (g *Gateway) Subscribers(userID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.subs[userID])
}

// Publish delivers n to every subscription of n.UserID without blocking and
// returns how many received it.
func (g *Gateway) Publish(_ context.Context, n Notification) int {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	delivered := 0
	for s := range g.subs[n.UserID] {
		select {
		case s.ch <- n:
			delivered++
		default:
			slog.Warn("notification dropped, subscriber queue full",
				"user_id", n.UserID,
				"type", n.Type,
			)
		}
	}
	return delivered
}

// NotifyAchievement publishes an achievement_unlocked notification.
func (g *Gateway) NotifyAchievement(ctx context.Context, userID string, a progress.Achievement) error {
	delivered := g.Publish(ctx, Notification{
		Type:        TypeAchievementUnlocked,
		UserID:      userID,
		Achievement: &a,
	})
	slog.Debug("achievement notification published",
		"user_id", userID,
		"achievement_id", a.ID,
		"delivered", delivered,
	)
	return nil
}

// Close closes every subscription. Later subscriptions are closed at once.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for userID, set := range g.subs {
		for s := range set {
			close(s.ch)
		}
		delete(g.subs, userID)
	}
}

func (g *Gateway) remove(s *Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.subs[s.userID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(g.subs, s.userID)
	}
	close(s.ch)
}

// MockNotifier is a test double recording achievement notifications.
type MockNotifier struct {
	Err error

	mu   sync.Mutex
	sent []Notification
}

func (m *MockNotifier) NotifyAchievement(_ context.Context, userID string, a progress.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Notification{Type: TypeAchievementUnlocked, UserID: userID, Achievement: &a})
	return m.Err
}

// Sent returns the recorded notifications.
func (m *MockNotifier) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.sent...)
}
