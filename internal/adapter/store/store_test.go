package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }

func incident(caseNumber, occurredAt, accessedAt string) domain.Incident {
	return domain.Incident{
		CaseNumber: strPtr(caseNumber),
		OccurredAt: strPtr(occurredAt),
		Category:   strPtr("THEFT"),
		Location:   strPtr("POINT (-122.27 37.80)"),
		AccessedAt: accessedAt,
	}
}

func TestStore_OpenUnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "")
	var storeErr *domain.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "open", storeErr.Op)
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestStore_AppendAndAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rows := []domain.Incident{
		incident("A", "2024-04-26T10:00:00.000", "2024-04-27T06:00:00.000000"),
		incident("B", "2024-04-26T09:00:00.000", "2024-04-27T06:00:00.000000"),
	}
	n, err := s.Append(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotZero(t, rows[0].ID, "ids are assigned")

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", domain.Text(all[0].CaseNumber), "insertion order")
	assert.Nil(t, all[0].ModifiedAt, "updated_at is never set on insert")
	assert.Nil(t, all[0].Description, "absent values round-trip as NULL")
}

func TestStore_AppendEmpty(t *testing.T) {
	s := newTestStore(t)
	n, err := s.Append(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_AppendIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bad := incident("X", "2024-04-26T10:00:00.000", "")
	bad.ID = 1
	dup := incident("Y", "2024-04-26T10:00:00.000", "")
	dup.ID = 1 // primary key collision inside the same append

	_, err := s.Append(ctx, []domain.Incident{bad, dup})
	var storeErr *domain.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "append", storeErr.Op)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "failed append leaves no rows")
}

func TestStore_LatestBatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	batch, err := s.LatestBatch(ctx)
	require.NoError(t, err)
	assert.True(t, batch.Empty(), "empty store")

	const first, second = "2024-04-26T06:00:00.000000", "2024-04-27T06:00:00.000000"
	_, err = s.Append(ctx, []domain.Incident{
		incident("old", "2024-04-25T10:00:00.000", first),
	})
	require.NoError(t, err)
	_, err = s.Append(ctx, []domain.Incident{
		incident("late", "2024-04-26T23:00:00.000", second),
		incident("early", "2024-04-26T01:00:00.000", second),
	})
	require.NoError(t, err)

	batch, err = s.LatestBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, batch.AccessedAt)
	require.Len(t, batch.Incidents, 2)
	assert.Equal(t, "early", domain.Text(batch.Incidents[0].CaseNumber), "ordered by occurrence")
	assert.Equal(t, "late", domain.Text(batch.Incidents[1].CaseNumber))
	for _, inc := range batch.Incidents {
		assert.Equal(t, second, inc.AccessedAt)
	}
}
