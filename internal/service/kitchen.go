package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"retail-service/internal/diagnostics"
	"retail-service/internal/model"
	"retail-service/internal/store"
	"retail-service/prometheus"
)

// DefaultKitchenLimit caps the kitchen feed on every backend
const DefaultKitchenLimit = 50

// KitchenOptions tunes the kitchen feed
type KitchenOptions struct {
	Limit             int
	StrictTransitions bool
}

// KitchenService is the recency-limited kitchen ticket feed. It keeps its own
// collection and its own ledger.
type KitchenService struct {
	backend store.Backend
	diag    *diagnostics.Bus
	log     *zap.Logger
	opts    KitchenOptions
	ledger  *ledger
	now     func() time.Time
}

func NewKitchenService(backend store.Backend, diag *diagnostics.Bus, log *zap.Logger, opts KitchenOptions) *KitchenService {
	if opts.Limit <= 0 {
		opts.Limit = DefaultKitchenLimit
	}
	return &KitchenService{
		backend: backend,
		diag:    diag,
		log:     log,
		opts:    opts,
		ledger:  newLedger(),
		now:     time.Now,
	}
}

func (k *KitchenService) Close() {
	k.ledger.Close()
}

func (k *KitchenService) query() store.Query {
	return store.Query{OrderBy: "timestamp", Desc: true, Limit: k.opts.Limit}
}

func (k *KitchenService) finish(operation string, err error) error {
	prometheus.RecordSyncOperation(operation, err)
	if err != nil {
		k.log.Warn("Kitchen operation failed", zap.String("operation", operation), zap.Error(err))
	}
	return absorbPermission(k.diag, store.KitchenOrders.Name, err)
}

// Subscribe delivers the newest tickets, up to the configured limit
func (k *KitchenService) Subscribe(ctx context.Context, fn func([]model.KitchenOrder)) store.Unsubscribe {
	return subscribe(ctx, k.backend, k.log, store.KitchenOrders, k.query(), fn)
}

func (k *KitchenService) List(ctx context.Context) ([]model.KitchenOrder, error) {
	return load[model.KitchenOrder](ctx, k.backend, k.log, store.KitchenOrders, k.query())
}

// PlaceOrder stamps the ticket PENDING with the current time and stores it
func (k *KitchenService) PlaceOrder(ctx context.Context, ticket model.KitchenTicket) (model.KitchenOrder, error) {
	if err := ticket.Validate(); err != nil {
		return model.KitchenOrder{}, err
	}
	order := model.KitchenOrder{
		TableID:   ticket.Table,
		Items:     append([]model.KitchenItem(nil), ticket.Items...),
		Status:    model.KitchenPending,
		Timestamp: model.ISOTime(k.now()),
		UserID:    ticket.Origin,
	}
	err := k.ledger.Do(ctx, func(ctx context.Context) error {
		doc, err := store.Encode(order)
		if err != nil {
			return err
		}
		id, err := k.backend.Insert(ctx, store.KitchenOrders, doc)
		if err != nil {
			return err
		}
		order.ID = id
		return nil
	})
	return order, k.finish("place_kitchen_order", err)
}

// MarkDelivered sets the ticket DELIVERED. In strict mode delivering a
// ticket twice is a *model.TransitionError.
func (k *KitchenService) MarkDelivered(ctx context.Context, id string) error {
	err := k.ledger.Do(ctx, func(ctx context.Context) error {
		if k.opts.StrictTransitions {
			docs, err := k.backend.Load(ctx, store.KitchenOrders, store.Query{})
			if err != nil {
				return err
			}
			var current *store.Document
			for i := range docs {
				if docs[i].ID() == id {
					current = &docs[i]
					break
				}
			}
			if current == nil {
				return fmt.Errorf("kitchen order %s: %w", id, store.ErrNotFound)
			}
			if status, _ := (*current)["status"].(string); status == string(model.KitchenDelivered) {
				return &model.TransitionError{Entity: "kitchen order", ID: id, From: status, To: string(model.KitchenDelivered)}
			}
		}
		if err := k.backend.Update(ctx, store.KitchenOrders, id, store.Document{"status": string(model.KitchenDelivered)}); err != nil {
			return fmt.Errorf("deliver kitchen order %s: %w", id, err)
		}
		return nil
	})
	return k.finish("deliver_kitchen_order", err)
}
