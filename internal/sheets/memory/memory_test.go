package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"famfin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter(t *testing.T) {
	ctx := context.Background()
	e := New()
	snap := core.AgencySnapshot{
		ID:                1,
		UserID:            3,
		CalculatedFor:     core.NewDate(2025, time.March, 10),
		CreditAgencyCents: 685925,
		BackedAgencyCents: 408000,
		Notes:             "weekly",
		CalculatedAt:      time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC),
	}

	ref, err := e.ExportSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	rows := e.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-03-10", rows[0][0])
	assert.Equal(t, int64(3), rows[0][1])
	assert.Equal(t, "6859.25", rows[0][2])
	assert.Equal(t, "4080.00", rows[0][3])
	assert.Equal(t, "weekly", rows[0][12])
	assert.Equal(t, "2025-03-10 06:00:00", rows[0][13])

	boom := errors.New("quota exceeded")
	e.FailNext(boom)
	_, err = e.ExportSnapshot(ctx, snap)
	assert.ErrorIs(t, err, boom)

	_, err = e.ExportSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, e.SnapshotIDs())
}
