package incident

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/edgeroom/core/internal/database"
	"github.com/edgeroom/core/internal/models"
	"github.com/edgeroom/core/internal/modules/room"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func triggerInput(key string) *TriggerDTO {
	return &TriggerDTO{
		IncidentKey: key,
		RoomName:    "Payments latency spike",
		InitialEvent: room.CreateEventDTO{
			Type:    models.EventTypeStatus,
			Message: "p95 4.2s",
			CreatedBy: room.PresenceDTO{
				UserID:      "u1",
				DisplayName: "Ada",
			},
		},
	}
}

func TestTriggerCreatesOnce(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Trigger(ctx, triggerInput("pd:INC-1"))
	req.NoError(err)
	req.True(first.Created)
	req.NotEmpty(first.RoomID)
	req.NotNil(first.Event)
	req.Equal("p95 4.2s", first.Event.Message)
	req.Equal(first.RoomID, first.Event.RoomID)

	second, err := svc.Trigger(ctx, triggerInput("pd:INC-1"))
	req.NoError(err)
	req.False(second.Created)
	req.Equal(first.RoomID, second.RoomID)
	req.Nil(second.Event)

	var roomCount int64
	req.NoError(db.Model(&models.RoomModel{}).Count(&roomCount).Error)
	req.EqualValues(1, roomCount)

	var r models.RoomModel
	req.NoError(db.First(&r, "id = ?", first.RoomID).Error)
	req.Equal("Payments latency spike", r.Name)
}

func TestTriggerConcurrentSameKey(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())

	const n = 4
	results := make([]*TriggerResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Trigger(context.Background(), triggerInput("pd:INC-race"))
		}(i)
	}
	wg.Wait()

	created := 0
	roomID := ""
	for i := 0; i < n; i++ {
		req.NoError(errs[i])
		if results[i].Created {
			created++
		}
		if roomID == "" {
			roomID = results[i].RoomID
		}
		req.Equal(roomID, results[i].RoomID, "every caller converges on the same room")
	}
	req.Equal(1, created, "exactly one trigger wins the creation race")

	var roomCount int64
	req.NoError(db.Model(&models.RoomModel{}).Count(&roomCount).Error)
	req.EqualValues(1, roomCount)
}

func TestTriggerDistinctKeysDistinctRooms(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	ctx := context.Background()

	a, err := svc.Trigger(ctx, triggerInput("pd:INC-1"))
	req.NoError(err)
	b, err := svc.Trigger(ctx, triggerInput("pd:INC-2"))
	req.NoError(err)

	req.True(a.Created)
	req.True(b.Created)
	req.NotEqual(a.RoomID, b.RoomID)
}

func TestListIncidents(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Trigger(ctx, triggerInput("pd:INC-1"))
	req.NoError(err)
	_, err = svc.Trigger(ctx, triggerInput("pd:INC-2"))
	req.NoError(err)

	items, err := svc.List(ctx, 50, 0)
	req.NoError(err)
	req.Len(items, 2)
	for _, item := range items {
		req.Equal(models.IncidentStatusOpen, item.Status)
		req.Equal("Payments latency spike", item.Room.Name)
		req.Nil(item.ResolvedAt)
	}

	items, err = svc.List(ctx, 1, 0)
	req.NoError(err)
	req.Len(items, 1)
}

func TestGetByKey(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	ctx := context.Background()

	result, err := svc.Trigger(ctx, triggerInput("pd:INC-1"))
	req.NoError(err)

	detail, err := svc.GetByKey(ctx, "pd:INC-1")
	req.NoError(err)
	req.NotNil(detail)
	req.Equal("pd:INC-1", detail.IncidentKey)
	req.Equal(result.RoomID, detail.Room.ID)
	req.Len(detail.Events, 1)
	req.Equal("p95 4.2s", detail.Events[0].Message)
	req.Empty(detail.Tasks)

	missing, err := svc.GetByKey(ctx, "pd:nope")
	req.NoError(err)
	req.Nil(missing)
}

func TestUpdateStatus(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	ctx := context.Background()

	result, err := svc.Trigger(ctx, triggerInput("pd:INC-1"))
	req.NoError(err)

	m, err := svc.UpdateStatus(ctx, "pd:INC-1", models.IncidentStatusResolved)
	req.NoError(err)
	req.NotNil(m)
	req.Equal(models.IncidentStatusResolved, m.Status)
	req.NotNil(m.ResolvedAt)
	req.Equal(result.RoomID, m.RoomID, "room mapping never changes")

	m, err = svc.UpdateStatus(ctx, "pd:INC-1", models.IncidentStatusOpen)
	req.NoError(err)
	req.NotNil(m)
	req.Equal(models.IncidentStatusOpen, m.Status)
	req.Nil(m.ResolvedAt)

	missing, err := svc.UpdateStatus(ctx, "pd:nope", models.IncidentStatusResolved)
	req.NoError(err)
	req.Nil(missing)
}
