package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/document"
)

const documentColumns = `id, type, name, img, pack, owners, system, created_at, updated_at`

// DocumentRepository persists actor documents with their system payload as JSONB.
// It implements document.Store.
type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewDocumentRepository creates a DocumentRepository backed by the given pool.
//
// Precondition: db and logger must be non-nil.
func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var d document.Document
	var system []byte
	if err := row.Scan(&d.ID, &d.Type, &d.Name, &d.Img, &d.Pack, &d.Owners, &system, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.System = system
	return &d, nil
}

// Get loads the document with id.
//
// Postcondition: Returns an error wrapping document.ErrNotFound when id does not exist.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*document.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}
	return d, nil
}

// List returns the documents of docType ordered by name then id. An empty
// docType lists all documents.
func (r *DocumentRepository) List(ctx context.Context, docType string) ([]*document.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE $1 = '' OR type = $1
		 ORDER BY name, id`, docType)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []*document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return out, nil
}

// Create inserts d, assigning an id when empty.
//
// Postcondition: Returns the stored document with timestamps set.
func (r *DocumentRepository) Create(ctx context.Context, d *document.Document) (*document.Document, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	system := []byte(d.System)
	if len(system) == 0 {
		system = []byte("{}")
	}
	owners := d.Owners
	if owners == nil {
		owners = []string{}
	}
	created, err := scanDocument(r.db.QueryRow(ctx,
		`INSERT INTO documents (id, type, name, img, pack, owners, system)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+documentColumns,
		id, d.Type, d.Name, d.Img, d.Pack, owners, system))
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("document %s already exists", id)
		}
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return created, nil
}

// Update applies p to the stored document inside a transaction holding the
// row lock, so concurrent single updates serialize.
//
// Postcondition: Returns an error wrapping document.ErrReadOnly for pack
// documents; on any error the row is unchanged.
func (r *DocumentRepository) Update(ctx context.Context, id string, p document.Patch) (*document.Document, error) {
	var updated *document.Document
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		d, err := scanDocument(tx.QueryRow(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", document.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("locking document %s: %w", id, err)
		}
		if d.Pack != "" {
			return fmt.Errorf("%w: %s is from pack %s", document.ErrReadOnly, id, d.Pack)
		}
		if err := p.Apply(d); err != nil {
			return err
		}
		updated, err = scanDocument(tx.QueryRow(ctx,
			`UPDATE documents SET name = $2, img = $3, system = $4, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+documentColumns,
			id, d.Name, d.Img, []byte(d.System)))
		if err != nil {
			return fmt.Errorf("updating document %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("document updated",
		zap.String("id", id),
		zap.Strings("paths", p.Paths()),
	)
	return updated, nil
}

// Delete removes the document with id.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	return nil
}
