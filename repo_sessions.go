package sessionstore

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Sessions interface {
	repository.Repository[*Session]

	GetByToken(ctx context.Context, token string) (*Session, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Session, error)

	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*Session, error)
	GetByUserAndProviderTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, provider string) (*Session, error)

	Create(ctx context.Context, record *Session, criteria ...repository.InsertCriteria) (*Session, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Session, criteria ...repository.InsertCriteria) (*Session, error)

	DeleteByUserAndToken(ctx context.Context, userID uuid.UUID, token string) (int64, error)
}

type sessions struct {
	repository.Repository[*Session]
	db *bun.DB
}

var (
	_ Sessions                        = (*sessions)(nil)
	_ repository.Repository[*Session] = (*sessions)(nil)
)

func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*Session](db, repository.ModelHandlers[*Session]{
		NewRecord: func() *Session { return &Session{} },
		GetID: func(s *Session) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Session, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &sessions{
		Repository: repo,
		db:         db,
	}
}

// GetByToken resolves a bearer token to its session with the owning user
// eagerly loaded.
func (a *sessions) GetByToken(ctx context.Context, token string) (*Session, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

func (a *sessions) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Session, error) {
	record := &Session{}
	err := tx.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token": token,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *sessions) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*Session, error) {
	return a.GetByUserAndProviderTx(ctx, a.db, userID, provider)
}

func (a *sessions) GetByUserAndProviderTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, provider string) (*Session, error) {
	record := &Session{}
	err := tx.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.provider = ?", provider).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id":  userID.String(),
					"provider": provider,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *sessions) Create(ctx context.Context, record *Session, criteria ...repository.InsertCriteria) (*Session, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *sessions) CreateTx(ctx context.Context, tx bun.IDB, record *Session, criteria ...repository.InsertCriteria) (*Session, error) {
	prepareSessionDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// DeleteByUserAndToken destroys sessions matching the (user, token) pair.
// Token alone is never enough; a bearer can only destroy its own session.
func (a *sessions) DeleteByUserAndToken(ctx context.Context, userID uuid.UUID, token string) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*Session)(nil)).
		Where("user_id = ?", userID).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func prepareSessionDefaults(record *Session) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
