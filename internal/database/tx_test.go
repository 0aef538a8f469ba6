package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (f *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func TestInTx(t *testing.T) {
	testCases := []struct {
		name           string
		beginErr       error
		fnErr          error
		commitErr      error
		expectErr      bool
		expectCommit   bool
		expectRollback bool
	}{
		{name: "commit on success", expectCommit: true},
		{name: "rollback when fn fails", fnErr: errors.New("insert failed"), expectErr: true, expectRollback: true},
		{name: "begin failure", beginErr: errors.New("pool closed"), expectErr: true},
		{name: "commit failure rolls back", commitErr: errors.New("serialization"), expectErr: true, expectRollback: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := &fakeTx{commitErr: tc.commitErr}
			db := &fakeBeginner{tx: tx, beginErr: tc.beginErr}

			err := InTx(context.Background(), db, func(tx pgx.Tx) error {
				return tc.fnErr
			})

			if tc.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.expectCommit, tx.committed)
			require.Equal(t, tc.expectRollback, tx.rolledBack)
		})
	}
}

func TestViolationHelpers(t *testing.T) {
	unique := fmt.Errorf("insert response: %w", &pgconn.PgError{Code: "23505", ConstraintName: "responses_survey_id_user_id_key"})
	foreignKey := &pgconn.PgError{Code: "23503"}

	require.True(t, IsUniqueViolation(unique))
	require.False(t, IsForeignKeyViolation(unique))
	require.Equal(t, "responses_survey_id_user_id_key", ConstraintName(unique))

	require.True(t, IsForeignKeyViolation(foreignKey))
	require.False(t, IsUniqueViolation(errors.New("plain")))
	require.Equal(t, "", ConstraintName(errors.New("plain")))
}
