package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}

	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })

	require.NoError(t, err)
	assert.True(t, b.tx.committed)
	assert.False(t, b.tx.rolledBack)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")

	err := WithTx(context.Background(), b, func(pgx.Tx) error { return boom })

	require.ErrorIs(t, err, boom)
	assert.False(t, b.tx.committed)
	assert.True(t, b.tx.rolledBack)
}

func TestWithTxRollsBackWhenCommitFails(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}

	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })

	require.Error(t, err)
	assert.True(t, b.tx.rolledBack)
}

func TestWithTxBeginFailure(t *testing.T) {
	b := &fakeBeginner{err: errors.New("pool closed")}

	called := false
	err := WithTx(context.Background(), b, func(pgx.Tx) error { called = true; return nil })

	require.Error(t, err)
	assert.False(t, called)
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation})
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.Equal(t, "", PgErrorCode(nil))
}

func TestPgConstraintName(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "desk_states_one_initial_idx"})
	assert.Equal(t, "desk_states_one_initial_idx", PgConstraintName(err))
	assert.Equal(t, "", PgConstraintName(errors.New("other")))
}
