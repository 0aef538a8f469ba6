package userbuilder

import (
	"NYCU-SDC/survey-backend/internal/user"
	"NYCU-SDC/survey-backend/test/testdata"
	"NYCU-SDC/survey-backend/test/testdata/dbbuilder"
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

type Option func(*FactoryParams)

type FactoryParams struct {
	Name           string
	ExternalHandle string
	AvatarURL      string
}

func WithName(name string) Option {
	return func(p *FactoryParams) { p.Name = name }
}

func WithExternalHandle(handle string) Option {
	return func(p *FactoryParams) { p.ExternalHandle = handle }
}

type Builder struct {
	t  *testing.T
	db dbbuilder.DBTX
}

func New(t *testing.T, db dbbuilder.DBTX) *Builder {
	return &Builder{t: t, db: db}
}

func (b Builder) Queries() *user.Queries {
	return user.New(b.db)
}

func (b Builder) Create(opts ...Option) user.User {
	p := &FactoryParams{
		Name:           testdata.RandomName(),
		ExternalHandle: testdata.RandomHandle(),
		AvatarURL:      testdata.RandomAvatarURL(),
	}
	for _, opt := range opts {
		opt(p)
	}

	u, err := b.Queries().Create(context.Background(), user.CreateParams{
		Name:           pgtype.Text{String: p.Name, Valid: p.Name != ""},
		ExternalHandle: pgtype.Text{String: p.ExternalHandle, Valid: p.ExternalHandle != ""},
		AvatarUrl:      pgtype.Text{String: p.AvatarURL, Valid: p.AvatarURL != ""},
	})
	require.NoError(b.t, err)

	return u
}
