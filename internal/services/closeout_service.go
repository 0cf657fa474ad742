// Package services orchestrates the close-out engine and the reporting
// aggregator on top of the storage layer.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"homebudget/internal/storage"
)

// EventPublisher receives best-effort domain events after a committed
// close-out or fresh start. A nil publisher disables publishing.
type EventPublisher interface {
	PublishMonthClosed(ctx context.Context, userID int64, result storage.CloseOutResult) error
	PublishLedgerReset(ctx context.Context, userID int64) error
}

// CloseOutService runs the month close-out and fresh-start workflows.
// Calls are serialized per user so a doubled form submission cannot read
// the same pre-close totals twice and double-count savings or archives.
type CloseOutService struct {
	repo      *storage.SQLiteRepository
	publisher EventPublisher
	now       func() time.Time

	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

func NewCloseOutService(repo *storage.SQLiteRepository, publisher EventPublisher) *CloseOutService {
	return &CloseOutService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		users:     make(map[int64]*sync.Mutex),
	}
}

func (s *CloseOutService) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.users[userID] = lock
	}
	return lock
}

// EndMonth closes the user's open period. The month key is the wall-clock
// month at call time; calling twice in one calendar month stacks a second
// archive batch under the same key.
func (s *CloseOutService) EndMonth(ctx context.Context, userID int64) (storage.CloseOutResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	month := s.now().Format("2006-01")
	result, err := s.repo.CloseOutMonth(ctx, userID, month)
	if err != nil {
		return result, fmt.Errorf("close out month %s: %w", month, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMonthClosed(ctx, userID, result); err != nil {
			// The close-out is committed; a lost event never fails the request.
			slog.WarnContext(ctx, "Month-closed event not published",
				"user_id", userID, "month", month, "error", err)
		}
	}
	return result, nil
}

// FreshStart wipes the user's live and archived history unconditionally.
// Any confirmation prompt is the UI's concern.
func (s *CloseOutService) FreshStart(ctx context.Context, userID int64) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.repo.FreshStart(ctx, userID); err != nil {
		return fmt.Errorf("fresh start: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishLedgerReset(ctx, userID); err != nil {
			slog.WarnContext(ctx, "Ledger-reset event not published",
				"user_id", userID, "error", err)
		}
	}
	return nil
}
