package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/anonsched/scheduler/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu         sync.Mutex
	msgs       map[string]*model.OutboxMessage
	order      []string
	enqueueErr error
}

func newMemStore() *memStore {
	return &memStore{msgs: make(map[string]*model.OutboxMessage)}
}

func (s *memStore) Enqueue(ctx context.Context, msg *model.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	c := *msg
	s.msgs[msg.ID] = &c
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *memStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.OutboxMessage
	for _, id := range s.order {
		m := s.msgs[id]
		if m.Status != model.OutboxStatusPending || m.NextAttemptAt.After(now) {
			continue
		}
		if len(out) == limit {
			break
		}
		c := *m
		out = append(out, &c)
		m.NextAttemptAt = now.Add(claimLease)
	}
	return out, nil
}

func (s *memStore) MarkSent(ctx context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		m := s.msgs[id]
		m.Status = model.OutboxStatusSent
		m.Attempts++
		m.SentAt = &at
	}
	return nil
}

func (s *memStore) MarkRetry(ctx context.Context, id, errMsg string, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return ErrMessageNotFound
	}
	m.Attempts++
	m.LastError = errMsg
	m.NextAttemptAt = next
	return nil
}

func (s *memStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return ErrMessageNotFound
	}
	m.Status = model.OutboxStatusFailed
	m.Attempts++
	m.LastError = errMsg
	return nil
}

func (s *memStore) QueueDepth(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.msgs {
		if m.Status == model.OutboxStatusPending {
			n++
		}
	}
	return n, nil
}

func (s *memStore) get(id string) model.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.msgs[id]
}

type delivery struct {
	to, subject, body string
}

type fakeSender struct {
	mu        sync.Mutex
	delivered []delivery
	failFor   map[string]bool
}

func (f *fakeSender) Deliver(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to] {
		return errors.New("mailbox unavailable")
	}
	f.delivered = append(f.delivered, delivery{to, subject, body})
	return nil
}
