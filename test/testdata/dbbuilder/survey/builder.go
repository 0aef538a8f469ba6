package surveybuilder

import (
	"NYCU-SDC/survey-backend/internal/survey"
	"NYCU-SDC/survey-backend/test/testdata"
	"NYCU-SDC/survey-backend/test/testdata/dbbuilder"
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

type Builder struct {
	t  *testing.T
	db dbbuilder.DBTX
}

func New(t *testing.T, db dbbuilder.DBTX) *Builder {
	return &Builder{t: t, db: db}
}

func (b Builder) Queries() *survey.Queries {
	return survey.New(b.db)
}

// Create inserts a text-only survey with its choices and attributes; OwnerID must be set
func (b Builder) Create(opts ...Option) survey.Definition {
	p := &FactoryParams{
		Title:      testdata.RandomTitle(),
		ChoiceType: survey.ChoiceTypeTextOnly,
		VotingEnd:  time.Now().Add(24 * time.Hour),
		Choices:    []string{testdata.RandomChoice(), testdata.RandomChoice()},
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NotZero(b.t, p.OwnerID, "surveybuilder: owner is required")

	ctx := context.Background()
	queries := b.Queries()

	created, err := queries.Create(ctx, survey.CreateParams{
		Title:      p.Title,
		ChoiceType: p.ChoiceType,
		OwnerID:    p.OwnerID,
		VotingEnd:  pgtype.Timestamptz{Time: p.VotingEnd, Valid: true},
	})
	require.NoError(b.t, err)

	def := survey.Definition{}
	for i, text := range p.Choices {
		choice, err := queries.CreateChoice(ctx, survey.CreateChoiceParams{
			SurveyID: created.ID,
			Text:     pgtype.Text{String: text, Valid: true},
			Position: int32(i),
		})
		require.NoError(b.t, err)
		def.Choices = append(def.Choices, choice)
	}

	for i, a := range p.Attributes {
		setting, err := queries.CreateAttributeSetting(ctx, survey.CreateAttributeSettingParams{
			SurveyID: created.ID,
			Type:     a.Type,
			Title:    a.Title,
			Position: int32(i),
		})
		require.NoError(b.t, err)

		attribute := survey.AttributeDefinition{Setting: setting}
		for j, text := range a.Choices {
			choice, err := queries.CreateAttributeChoice(ctx, survey.CreateAttributeChoiceParams{
				AttributeSettingID: setting.ID,
				Text:               text,
				Position:           int32(j),
			})
			require.NoError(b.t, err)
			attribute.Choices = append(attribute.Choices, choice)
		}
		def.Attributes = append(def.Attributes, attribute)
	}

	row, err := queries.GetByID(ctx, created.ID)
	require.NoError(b.t, err)
	def.Survey = row

	return def
}
