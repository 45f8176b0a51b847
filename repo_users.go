package sessionstore

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var SetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"salt" = ?,
	"password_hash" = ?,
	"requires_password" = FALSE
WHERE
	"usr"."id" = ?
RETURNING *;`

type Users interface {
	repository.Repository[*User]

	GetByUsername(ctx context.Context, username string, criteria ...repository.SelectCriteria) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string, criteria ...repository.SelectCriteria) (*User, error)

	GetLoginCandidate(ctx context.Context, username string) (*User, error)
	VerifyPasswordLogin(ctx context.Context, username, passwordHash string) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	SetPassword(ctx context.Context, id uuid.UUID, salt, passwordHash string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, salt, passwordHash string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByUsername(ctx context.Context, username string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username, criteria...)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string, criteria ...repository.SelectCriteria) (*User, error) {
	username = strings.TrimSpace(username)

	record := &User{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"username": username,
				})
		}
		return nil, err
	}

	return record, nil
}

// GetLoginCandidate finds a user eligible for password login: matching
// username with a settled password credential.
func (a *users) GetLoginCandidate(ctx context.Context, username string) (*User, error) {
	return a.GetByUsername(ctx, username, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.requires_password = FALSE")
	})
}

// VerifyPasswordLogin re-queries by username plus the derived hash so the
// comparison happens in the store, never against a stale in-memory record.
func (a *users) VerifyPasswordLogin(ctx context.Context, username, passwordHash string) (*User, error) {
	return a.GetByUsername(ctx, username, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("?TableAlias.password_hash = ?", passwordHash).
			Where("?TableAlias.requires_password = FALSE")
	})
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, salt, passwordHash string) error {
	return a.SetPasswordTx(ctx, a.db, id, salt, passwordHash)
}

func (a *users) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, salt, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, SetUserPasswordSQL, salt, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
