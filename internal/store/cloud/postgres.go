package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"retail-service/internal/store"
	"retail-service/pkg/database"
)

// insufficient_privilege, raised for missing grants and row level security denials
const codeInsufficientPrivilege = "42501"

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DocumentRow is one document of one collection
type DocumentRow struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         string    `gorm:"primaryKey;size:64"`
	Data       string    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

func (DocumentRow) TableName() string {
	return "documents"
}

// PostgresClient stores every collection in one jsonb document table and
// announces each committed write on a NOTIFY channel with the collection name
// as payload.
type PostgresClient struct {
	db      *gorm.DB
	channel string
}

// NewPostgresClient migrates the document table
func NewPostgresClient(db *gorm.DB, channel string) (*PostgresClient, error) {
	if err := db.AutoMigrate(&DocumentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents: %w", classify(err))
	}
	return &PostgresClient{db: db, channel: channel}, nil
}

// classify maps driver errors onto the store error set
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeInsufficientPrivilege {
		return fmt.Errorf("%w: %s", store.ErrPermissionDenied, pgErr.Message)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func encode(doc store.Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func (c *PostgresClient) Find(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	query := c.db.WithContext(ctx).Where("collection = ?", collection)
	if q.OrderBy != "" {
		if !fieldName.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("invalid order field %q", q.OrderBy)
		}
		direction := "ASC"
		if q.Desc {
			direction = "DESC"
		}
		query = query.Order(fmt.Sprintf("data->>'%s' %s NULLS LAST", q.OrderBy, direction))
	}
	query = query.Order("created_at ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []DocumentRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, classify(err)
	}

	docs := make([]store.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := store.ParseDocument([]byte(row.Data))
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", collection, row.ID, err)
		}
		docs = append(docs, doc.WithID(row.ID))
	}
	return docs, nil
}

// write runs fn in a transaction that also notifies listeners of collections
func (c *PostgresClient) write(ctx context.Context, collections []string, fn func(tx *gorm.DB) error) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		for _, collection := range collections {
			if err := tx.Exec("SELECT pg_notify(?, ?)", c.channel, collection).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return classify(err)
}

func (c *PostgresClient) Create(ctx context.Context, collection string, doc store.Document) (string, error) {
	data, err := encode(doc)
	if err != nil {
		return "", err
	}
	row := DocumentRow{Collection: collection, ID: uuid.NewString(), Data: data}
	err = c.write(ctx, []string{collection}, func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

func (c *PostgresClient) update(ctx context.Context, collection, id string, data any) error {
	return c.write(ctx, []string{collection}, func(tx *gorm.DB) error {
		result := tx.Model(&DocumentRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"data": data, "updated_at": time.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
		}
		return nil
	})
}

// Merge shallow-merges fields into the stored document
func (c *PostgresClient) Merge(ctx context.Context, collection, id string, fields store.Document) error {
	data, err := encode(fields)
	if err != nil {
		return err
	}
	return c.update(ctx, collection, id, gorm.Expr("data || ?::jsonb", data))
}

func (c *PostgresClient) Set(ctx context.Context, collection, id string, doc store.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	return c.update(ctx, collection, id, data)
}

// Increment adds delta to an integer field inside the database, so concurrent
// increments from several devices never overwrite each other
func (c *PostgresClient) Increment(ctx context.Context, collection, id, field string, delta int) error {
	if !fieldName.MatchString(field) {
		return fmt.Errorf("invalid field %q", field)
	}
	path := "{" + field + "}"
	return c.update(ctx, collection, id,
		gorm.Expr("jsonb_set(data, ?::text[], to_jsonb(COALESCE((data->>?)::int, 0) + ?))", path, field, delta))
}

func (c *PostgresClient) Commit(ctx context.Context, ops []store.Op) error {
	rows := make([]DocumentRow, 0, len(ops))
	var collections []string
	seen := make(map[string]bool)
	for _, op := range ops {
		data, err := encode(op.Doc)
		if err != nil {
			return err
		}
		id := op.ID
		switch op.Kind {
		case store.OpInsert:
			id = uuid.NewString()
		case store.OpSet:
			if id == "" {
				return fmt.Errorf("set on %s without id", op.Collection.Name)
			}
		default:
			return fmt.Errorf("unknown op kind %d", op.Kind)
		}
		rows = append(rows, DocumentRow{Collection: op.Collection.Name, ID: id, Data: data})
		if !seen[op.Collection.Name] {
			seen[op.Collection.Name] = true
			collections = append(collections, op.Collection.Name)
		}
	}

	return c.write(ctx, collections, func(tx *gorm.DB) error {
		for i := range rows {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
			}).Create(&rows[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *PostgresClient) Close() error {
	return database.Close(c.db)
}
