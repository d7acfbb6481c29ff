package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTripIsURLSafe(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2025, 3, 1, 12, 30, 0, 123456789, time.FixedZone("CET", 3600)),
		ID:        uuid.New(),
	}
	encoded := EncodeCursor(cursor)
	assert.False(t, strings.ContainsAny(encoded, "+/="))

	decoded, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.CreatedAt.Equal(cursor.CreatedAt))
	assert.Equal(t, cursor.ID, decoded.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	decoded, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = ParseCursor("%%%")
	assert.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{})[:4])
	assert.Error(t, err)
}

type pageRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func TestScopeWalksPagesNewestFirst(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&pageRow{}))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, conn.Create(&pageRow{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)}).Error)
	}

	cursorOf := func(r pageRow) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} }
	var seen []time.Time
	params := Params{Limit: 2}
	for pages := 0; pages < 5; pages++ {
		scope, err := Scope("page_rows", params)
		require.NoError(t, err)
		var rows []pageRow
		require.NoError(t, conn.Table("page_rows").Scopes(scope).Find(&rows).Error)
		page, next := Trim(rows, params.Limit, cursorOf)
		for _, r := range page {
			seen = append(seen, r.CreatedAt)
		}
		if next == "" {
			break
		}
		params.Cursor = next
	}

	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		assert.True(t, seen[i-1].After(seen[i]), "expected descending order at %d", i)
	}
}

func TestScopeRejectsInvalidCursor(t *testing.T) {
	_, err := Scope("assets", Params{Cursor: "not-a-cursor!"})
	assert.Error(t, err)
}
