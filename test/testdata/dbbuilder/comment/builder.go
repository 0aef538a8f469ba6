package commentbuilder

import (
	"NYCU-SDC/survey-backend/internal/comment"
	"NYCU-SDC/survey-backend/test/testdata"
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

func (b Builder) Queries() *comment.Queries {
	return comment.New(b.db)
}

func (b Builder) Create(surveyID, userID uuid.UUID) comment.CreateRow {
	created, err := b.Queries().Create(context.Background(), comment.CreateParams{
		SurveyID: surveyID,
		UserID:   userID,
		Content:  testdata.RandomComment(),
	})
	require.NoError(b.t, err)

	return created
}
