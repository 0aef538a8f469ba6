package responsebuilder

import (
	"NYCU-SDC/survey-backend/internal/survey/response"
	"NYCU-SDC/survey-backend/test/testdata/dbbuilder"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Builder struct {
	t  *testing.T
	db dbbuilder.DBTX
}

func New(t *testing.T, db dbbuilder.DBTX) *Builder {
	return &Builder{t: t, db: db}
}

func (b Builder) Queries() *response.Queries {
	return response.New(b.db)
}

// Create inserts a response directly, bypassing deadline and attribute checks
func (b Builder) Create(surveyID, userID, choiceID uuid.UUID, answers ...response.AttributeAnswer) response.Response {
	ctx := context.Background()
	queries := b.Queries()

	created, err := queries.Create(ctx, response.CreateParams{
		SurveyID: surveyID,
		UserID:   userID,
		ChoiceID: choiceID,
	})
	require.NoError(b.t, err)

	for _, a := range answers {
		err := queries.CreateAttribute(ctx, response.CreateAttributeParams{
			ResponseID:         created.ID,
			SurveyID:           surveyID,
			AttributeSettingID: a.SettingID,
			AttributeChoiceID:  a.ChoiceID,
		})
		require.NoError(b.t, err)
	}

	return created
}
