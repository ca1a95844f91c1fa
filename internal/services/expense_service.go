package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/ports"
	"expenses/internal/storage"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, event *amqp.ExpenseEvent) error
}

// Store is the persistence the service needs.
type Store interface {
	ports.ExpenseWriter
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
}

// ExpenseService validates form input, persists it and announces changes.
type ExpenseService struct {
	store     Store
	catalog   core.Catalog
	publisher EventPublisher
}

// NewExpenseService builds the service. publisher may be nil, in which case
// no events are emitted.
func NewExpenseService(store Store, catalog core.Catalog, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
	}
}

// Catalog returns the categories and payment methods the service validates against.
func (s *ExpenseService) Catalog() core.Catalog {
	return s.catalog
}

// CreateExpense validates in and stores it, returning the saved row.
func (s *ExpenseService) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	e, err := in.ToExpense(s.catalog)
	if err != nil {
		return core.Expense{}, err
	}

	id, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.publish(ctx, amqp.EventCreated, e)
	return e, nil
}

// UpdateExpense replaces every field of expense id with in. It returns
// storage.ErrNotFound when id does not exist.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	if _, err := s.store.GetExpense(ctx, id); err != nil {
		return core.Expense{}, err
	}

	e, err := in.ToExpense(s.catalog)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, amqp.EventUpdated, e)
	return e, nil
}

// DeleteExpense removes expense id. Deleting a missing id succeeds silently.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	e, err := s.store.GetExpense(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publish(ctx, amqp.EventDeleted, e)
	return nil
}

// publish emits a change event. Failures are logged and never surface to
// the caller since the row is already saved.
func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.publisher == nil {
		return
	}

	var month string
	if k, err := e.Month(); err == nil {
		month = k.String()
	}

	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, e.ID, month)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", t, "id", e.ID, "error", err)
	}
}
