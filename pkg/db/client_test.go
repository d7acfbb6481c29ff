package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

type stockRow struct {
	ID        int
	Name      string
	Available int
}

func openClient(t *testing.T) (*Client, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&stockRow{}))
	return FromConn(conn), conn
}

func countRows(t *testing.T, conn *gorm.DB, name string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&stockRow{}).Where("name = ?", name).Count(&n).Error)
	return n
}

func TestWithTxCommitAndRollback(t *testing.T) {
	client, conn := openClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&stockRow{Name: "kept"}).Error
	}))
	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&stockRow{Name: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int64(1), countRows(t, conn, "kept"))
	assert.Equal(t, int64(0), countRows(t, conn, "dropped"))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client, conn := openClient(t)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&stockRow{Name: "panicked"}).Error)
			panic("boom")
		})
	})
	assert.Equal(t, int64(0), countRows(t, conn, "panicked"))
}

func TestGuardedDecrementAppliesOnce(t *testing.T) {
	client, conn := openClient(t)
	row := stockRow{Name: "monitor", Available: 1}
	require.NoError(t, conn.Create(&row).Error)

	var affected []int64
	for range 2 {
		require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
			res := tx.Exec("UPDATE stock_rows SET available = available - 1 WHERE id = ? AND available > 0", row.ID)
			affected = append(affected, res.RowsAffected)
			return res.Error
		}))
	}
	assert.Equal(t, []int64{1, 0}, affected)
}

func TestPing(t *testing.T) {
	client, _ := openClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	buf := &bytes.Buffer{}
	ql := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Output: buf}), 100*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), stmt, nil)
	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Zero(t, buf.Len(), "fast queries and not-found lookups stay quiet")

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "slow query", entry["message"])
	assert.Equal(t, "SELECT 1", entry["sql"])

	buf.Reset()
	ql.Trace(ctx, time.Now(), stmt, errors.New("relation missing"))
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "query failed", entry["message"])
	assert.Equal(t, "relation missing", entry["error"])
}
