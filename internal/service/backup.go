package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"retail-service/internal/model"
	"retail-service/internal/store"
)

// Backup is a full export of the synchronized collections
type Backup struct {
	Timestamp      string                `json:"timestamp"`
	Products       []model.Product       `json:"products"`
	Sales          []model.Sale          `json:"sales"`
	Assets         []model.Asset         `json:"assets"`
	WhatsAppOrders []model.WhatsAppOrder `json:"whatsappOrders"`
}

// backupSections maps export keys to collections. The first two are required on import.
var backupSections = []struct {
	key        string
	collection store.Collection
	required   bool
}{
	{"products", store.Products, true},
	{"sales", store.Sales, true},
	{"assets", store.Assets, false},
	{"whatsappOrders", store.WhatsAppOrders, false},
}

// Export reads the four collections as they are now
func (s *SyncService) Export(ctx context.Context) (Backup, error) {
	backup := Backup{Timestamp: model.ISOTime(s.now())}
	var err error
	if backup.Products, err = s.ListProducts(ctx); err != nil {
		return Backup{}, fmt.Errorf("export products: %w", err)
	}
	if backup.Sales, err = s.ListSales(ctx); err != nil {
		return Backup{}, fmt.Errorf("export sales: %w", err)
	}
	if backup.Assets, err = s.ListAssets(ctx); err != nil {
		return Backup{}, fmt.Errorf("export assets: %w", err)
	}
	if backup.WhatsAppOrders, err = s.ListWhatsAppOrders(ctx); err != nil {
		return Backup{}, fmt.Errorf("export whatsapp orders: %w", err)
	}
	return backup, nil
}

// Import replaces collections wholesale with the contents of an export.
// products and sales must be present; assets and whatsappOrders are replaced
// only when present. Everything is validated before the first write. Only
// backends that can replace a collection accept it; the cloud one gives
// ErrImportDisabled.
func (s *SyncService) Import(ctx context.Context, raw []byte) error {
	overwriter, ok := s.backend.(store.Overwriter)
	if !ok {
		return ErrImportDisabled
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return &model.ValidationError{Field: "backup", Reason: "not a JSON object"}
	}

	type replacement struct {
		collection store.Collection
		docs       []store.Document
	}
	var replacements []replacement
	for _, section := range backupSections {
		body, present := sections[section.key]
		if !present || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
			if section.required {
				return &model.ValidationError{Field: section.key, Reason: "is required"}
			}
			continue
		}
		docs, err := store.ParseDocuments(body)
		if err != nil {
			return &model.ValidationError{Field: section.key, Reason: "must be a list of records"}
		}
		if err := validateSection(section.collection, docs); err != nil {
			return &model.ValidationError{Field: section.key, Reason: err.Error()}
		}
		replacements = append(replacements, replacement{collection: section.collection, docs: docs})
	}

	err := s.ledger.Do(ctx, func(ctx context.Context) error {
		for _, r := range replacements {
			if err := overwriter.Overwrite(ctx, r.collection, r.docs); err != nil {
				return fmt.Errorf("import %s: %w", r.collection.LocalKey, err)
			}
		}
		return nil
	})
	if err == nil {
		s.log.Info("Backup imported", zap.Int("collections", len(replacements)))
	}
	return s.finish("import", store.Products, err)
}

// validateSection checks that every record decodes as its entity type
func validateSection(c store.Collection, docs []store.Document) error {
	for i, doc := range docs {
		var err error
		switch c {
		case store.Products:
			_, err = store.Decode[model.Product](doc)
		case store.Sales:
			_, err = store.Decode[model.Sale](doc)
		case store.Assets:
			_, err = store.Decode[model.Asset](doc)
		case store.WhatsAppOrders:
			_, err = store.Decode[model.WhatsAppOrder](doc)
		}
		if err != nil {
			return fmt.Errorf("record %d: %v", i, err)
		}
	}
	return nil
}
