package credentials

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Groups interface {
	repository.Repository[*Group]

	FindByName(ctx context.Context, name string) (*Group, error)
	FindByNameTx(ctx context.Context, tx bun.IDB, name string) (*Group, error)
	// AddUserTx links user and group, reporting false when the link existed.
	AddUserTx(ctx context.Context, tx bun.IDB, userID, groupID uuid.UUID) (bool, error)
	NamesForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type groups struct {
	repository.Repository[*Group]
	db *bun.DB
}

var _ Groups = (*groups)(nil)

func NewGroupsRepository(db *bun.DB) Groups {
	repo := repository.NewRepository[*Group](db, repository.ModelHandlers[*Group]{
		NewRecord: func() *Group { return &Group{} },
		GetID: func(g *Group) uuid.UUID {
			if g == nil {
				return uuid.Nil
			}
			return g.ID
		},
		SetID: func(g *Group, id uuid.UUID) {
			if g != nil {
				g.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &groups{Repository: repo, db: db}
}

func (g *groups) FindByName(ctx context.Context, name string) (*Group, error) {
	return g.FindByNameTx(ctx, g.db, name)
}

func (g *groups) FindByNameTx(ctx context.Context, tx bun.IDB, name string) (*Group, error) {
	record := &Group{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", strings.TrimSpace(name)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return record, nil
}

func (g *groups) AddUserTx(ctx context.Context, tx bun.IDB, userID, groupID uuid.UUID) (bool, error) {
	link := &UserGroup{UserID: userID, GroupID: groupID}
	res, err := tx.NewInsert().
		Model(link).
		Ignore().
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *groups) NamesForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var names []string
	err := g.db.NewSelect().
		Model((*Group)(nil)).
		ColumnExpr(`"grp"."name"`).
		Join(`JOIN "users_groups" AS "ugr" ON "ugr"."group_id" = "grp"."id"`).
		Where(`"ugr"."user_id" = ?`, userID).
		OrderExpr(`"grp"."name" ASC`).
		Scan(ctx, &names)
	return names, err
}
