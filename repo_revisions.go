package credentials

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultHistoryLimit caps the revisions loaded for a history page.
const DefaultHistoryLimit = 50

type Revisions interface {
	repository.Repository[*Revision]

	CreateManyTx(ctx context.Context, tx bun.IDB, revisions ...*Revision) error
	ListForRevisionable(ctx context.Context, revisionableType string, id uuid.UUID, limit int) ([]*Revision, error)
}

type revisions struct {
	repository.Repository[*Revision]
	db *bun.DB
}

var _ Revisions = (*revisions)(nil)

func NewRevisionsRepository(db *bun.DB) Revisions {
	repo := repository.NewRepository[*Revision](db, repository.ModelHandlers[*Revision]{
		NewRecord: func() *Revision { return &Revision{} },
		GetID: func(r *Revision) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Revision, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &revisions{Repository: repo, db: db}
}

func (r *revisions) CreateManyTx(ctx context.Context, tx bun.IDB, records ...*Revision) error {
	if len(records) == 0 {
		return nil
	}

	for _, record := range records {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
	}

	_, err := tx.NewInsert().Model(&records).Exec(ctx)
	return err
}

// ListForRevisionable returns the newest revisions first.
func (r *revisions) ListForRevisionable(ctx context.Context, revisionableType string, id uuid.UUID, limit int) ([]*Revision, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var records []*Revision
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.revisionable_type = ?", revisionableType).
		Where("?TableAlias.revisionable_id = ?", id).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}
