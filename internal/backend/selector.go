// Package backend picks, once per process, which store backs every service.
package backend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"retail-service/internal/catalog"
	"retail-service/internal/diagnostics"
	"retail-service/internal/model"
	"retail-service/internal/store"
	"retail-service/internal/store/cloud"
	"retail-service/internal/store/local"
	"retail-service/pkg/config"
	"retail-service/pkg/database"
)

// Status is the banner state shown to operators
type Status string

const (
	StatusConnected     Status = "connected"
	StatusMisconfigured Status = "misconfigured"
	StatusOffline       Status = "offline"
)

// Selection is the backend chosen at startup. It does not change afterwards.
type Selection struct {
	Backend store.Backend
	Status  Status
	Message string
	stop    context.CancelFunc
}

// Info is the public view of a selection
type Info struct {
	Kind    store.Kind `json:"kind"`
	Status  Status     `json:"status"`
	Message string     `json:"message"`
}

func (s *Selection) Info() Info {
	return Info{Kind: s.Backend.Kind(), Status: s.Status, Message: s.Message}
}

// Close stops the change listener, if any, and closes the backend
func (s *Selection) Close() error {
	if s.stop != nil {
		s.stop()
	}
	return s.Backend.Close()
}

// LocalSeeds returns what each local collection holds before its first write
func LocalSeeds(now time.Time) map[store.Collection]any {
	return map[store.Collection]any{
		store.Products:       catalog.Products(),
		store.Sales:          catalog.Sales(now),
		store.Assets:         catalog.Assets(),
		store.WhatsAppOrders: catalog.WhatsAppOrders(now),
		store.KitchenOrders:  []model.KitchenOrder{},
	}
}

// Select inspects the cloud descriptor. Real values that connect give the
// cloud backend; placeholder or empty values give the local backend; real
// values that fail to connect are reported and also give the local backend.
func Select(ctx context.Context, cfg *config.Config, diag *diagnostics.Bus, log *zap.Logger) (*Selection, error) {
	if !cfg.Cloud.Configured() {
		sel, err := openLocal(cfg, log)
		if err != nil {
			return nil, err
		}
		sel.Status = StatusOffline
		sel.Message = "Cloud database not configured, data is kept on this device"
		log.Info("Using local store", zap.String("dir", cfg.Local.Dir))
		diag.Publish(diagnostics.Event{Kind: diagnostics.KindStatus, Message: sel.Message, Source: "backend"})
		return sel, nil
	}

	client, err := openCloud(&cfg.Cloud)
	if err != nil {
		log.Error("Cloud database initialization failed, using local store", zap.Error(err))
		diag.Publish(diagnostics.Event{
			Kind:    diagnostics.KindConfiguration,
			Message: fmt.Sprintf("Cloud database is configured but unavailable: %v", err),
			Source:  "backend",
		})
		sel, lerr := openLocal(cfg, log)
		if lerr != nil {
			return nil, lerr
		}
		sel.Status = StatusMisconfigured
		sel.Message = "Cloud database configuration is invalid, data is kept on this device"
		return sel, nil
	}

	b := cloud.NewBackend(client, diag, log)
	listenCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	listener := cloud.NewListener(cfg.Cloud.GetDSN(), cfg.Cloud.NotifyChannel, b.Refresh, log)
	go listener.Run(listenCtx)

	log.Info("Using cloud store", zap.String("host", cfg.Cloud.Host), zap.String("db_name", cfg.Cloud.DBName))
	return &Selection{
		Backend: b,
		Status:  StatusConnected,
		Message: "Connected to the cloud database",
		stop:    stop,
	}, nil
}

func openCloud(cfg *config.CloudConfig) (*cloud.PostgresClient, error) {
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	client, err := cloud.NewPostgresClient(db, cfg.NotifyChannel)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return client, nil
}

func openLocal(cfg *config.Config, log *zap.Logger) (*Selection, error) {
	st, err := local.Open(cfg.Local.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	b, err := local.NewBackend(st, LocalSeeds(time.Now()), log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &Selection{Backend: b}, nil
}
