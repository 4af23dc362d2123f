package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/stagecanvas/internal/canvas"
	"github.com/vbonduro/stagecanvas/internal/db"
	"github.com/vbonduro/stagecanvas/internal/domain"
	"github.com/vbonduro/stagecanvas/internal/store"
)

func seededService(t *testing.T, policy canvas.OccupancyPolicy) (*CanvasService, *domain.Item, *domain.Item, func()) {
	t.Helper()
	svc, cleanup := newTestService(t, policy)
	ctx := context.Background()

	_, err := svc.CreateArea(ctx, stagingArea())
	require.NoError(t, err)
	m, err := svc.CreateItem(ctx, material("M", 0, 0))
	require.NoError(t, err)
	n, err := svc.CreateItem(ctx, material("N", 2, 3))
	require.NoError(t, err)
	return svc, m, n, cleanup
}

func receive(t *testing.T, ch <-chan canvas.Snapshot) canvas.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return canvas.Snapshot{}
	}
}

func TestSessionServiceOpenSession(t *testing.T) {
	svc, _, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()

	id, snap, err := svc.OpenSession(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, snap.Areas, 1)
	assert.Equal(t, 2, snap.Areas[0].ItemCount)
	assert.Len(t, snap.Items, 2)
	assert.Empty(t, snap.Selection)
	assert.Equal(t, 1.0, snap.Viewport.Scale)
	assert.Equal(t, "strict", snap.Policy)
}

func TestSessionServiceUnknownSession(t *testing.T) {
	svc, cleanup := newTestService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	_, err := svc.Snapshot(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Dispatch(ctx, "nope", canvas.Event{Kind: canvas.EventResetView})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = svc.Subscribe(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.CloseSession("nope"), ErrSessionNotFound)
}

func TestSessionServiceDropCommitsToStore(t *testing.T) {
	svc, m, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	id, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)

	res, err := svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventDrop, ItemID: m.ID, X: 195, Y: 115})
	require.NoError(t, err)
	require.NotNil(t, res.Drop)
	assert.Equal(t, canvas.DropCommitted, res.Drop.Outcome)
	assert.True(t, res.Changed)

	stored, err := svc.GetItem(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{AreaID: "area-1", Row: 0, Col: 1}, stored.Position)
	assert.Equal(t, m.Quantity, stored.Quantity)
}

func TestSessionServiceDropOntoOccupiedCell(t *testing.T) {
	svc, m, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	id, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)

	// N sits at row 2, col 3.
	res, err := svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventDrop, ItemID: m.ID, X: 100 + 3*90 + 10, Y: 80 + 2*70 + 10})
	require.NoError(t, err)
	assert.Equal(t, canvas.DropOccupied, res.Drop.Outcome)
	require.NotNil(t, res.Drop.RevertTo)
	assert.Equal(t, canvas.Point{X: 145, Y: 115}, *res.Drop.RevertTo)

	stored, err := svc.GetItem(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{AreaID: "area-1", Row: 0, Col: 0}, stored.Position)
}

func TestSessionServiceSubscribePublishesChanges(t *testing.T) {
	svc, m, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	id, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)
	ch, cancel, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)
	defer cancel()

	first := receive(t, ch)
	assert.Empty(t, first.Selection)

	_, err = svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventSelect, ItemID: m.ID})
	require.NoError(t, err)
	snap := receive(t, ch)
	assert.Equal(t, []string{m.ID}, snap.Selection)
	assert.Greater(t, snap.Version, first.Version)

	// No change, no publish.
	_, err = svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventSelect, ItemID: m.ID})
	require.NoError(t, err)
	select {
	case <-ch:
		t.Fatal("unexpected snapshot for a no-op event")
	default:
	}
}

func TestSessionServiceDropRefreshesOtherSessions(t *testing.T) {
	svc, m, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	a, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)
	b, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)

	ch, cancel, err := svc.Subscribe(ctx, b)
	require.NoError(t, err)
	defer cancel()
	receive(t, ch)

	_, err = svc.Dispatch(ctx, a, canvas.Event{Kind: canvas.EventDrop, ItemID: m.ID, X: 195, Y: 115})
	require.NoError(t, err)

	snap := receive(t, ch)
	for _, it := range snap.Items {
		if it.ID == m.ID {
			assert.Equal(t, "A2", it.Cell)
			return
		}
	}
	t.Fatalf("item %s missing from snapshot", m.ID)
}

func TestSessionServiceDeleteItemPrunesSelection(t *testing.T) {
	svc, m, n, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	id, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventSelect, ItemID: m.ID})
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventSelect, ItemID: n.ID, Additive: true})
	require.NoError(t, err)

	ch, cancel, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)
	defer cancel()
	receive(t, ch)

	require.NoError(t, svc.DeleteItem(ctx, m.ID))

	snap := receive(t, ch)
	assert.Equal(t, []string{n.ID}, snap.Selection)
	assert.Len(t, snap.Items, 1)
}

func TestSessionServiceDropAfterExternalDelete(t *testing.T) {
	svc, m, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	id, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)
	res, err := svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventDragStart, ItemID: m.ID})
	require.NoError(t, err)
	assert.True(t, res.Started)

	require.NoError(t, svc.DeleteItem(ctx, m.ID))

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "idle", snap.Gesture)
	assert.Empty(t, snap.Selection)

	res, err = svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventDrop, ItemID: m.ID, X: 195, Y: 115})
	require.NoError(t, err)
	assert.Equal(t, canvas.DropStale, res.Drop.Outcome)
}

func TestSessionServiceNewAreaReachesOpenSessions(t *testing.T) {
	svc, _, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	id, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)

	second := stagingArea()
	second.ID = "area-2"
	second.OriginX = 1200
	_, err = svc.CreateArea(ctx, second)
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	require.Len(t, snap.Areas, 2)
	assert.Equal(t, "area-2", snap.Areas[1].ID)
}

// pausingAreaStore holds its first List call open until release is closed.
type pausingAreaStore struct {
	*store.AreaStore
	once    sync.Once
	listed  chan struct{}
	release chan struct{}
}

func (p *pausingAreaStore) List(ctx context.Context) ([]*domain.Area, error) {
	areas, err := p.AreaStore.List(ctx)
	p.once.Do(func() {
		close(p.listed)
		<-p.release
	})
	return areas, err
}

func TestSessionServiceAreaCreatedWhileSessionOpens(t *testing.T) {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	areas := &pausingAreaStore{
		AreaStore: store.NewAreaStore(d),
		listed:    make(chan struct{}),
		release:   make(chan struct{}),
	}
	svc := NewCanvasService(areas, store.NewItemStore(d), canvas.PolicyStrict, slog.Default())
	ctx := context.Background()

	type opened struct {
		id  string
		err error
	}
	openDone := make(chan opened, 1)
	go func() {
		id, _, err := svc.OpenSession(ctx)
		openDone <- opened{id: id, err: err}
	}()
	<-areas.listed

	createDone := make(chan error, 1)
	go func() {
		_, err := svc.CreateArea(ctx, stagingArea())
		createDone <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(areas.release)

	o := <-openDone
	require.NoError(t, o.err)
	require.NoError(t, <-createDone)

	snap, err := svc.Snapshot(ctx, o.id)
	require.NoError(t, err)
	require.Len(t, snap.Areas, 1)
	assert.Equal(t, "area-1", snap.Areas[0].ID)

	m, err := svc.CreateItem(ctx, material("M", 0, 0))
	require.NoError(t, err)
	res, err := svc.Dispatch(ctx, o.id, canvas.Event{Kind: canvas.EventDrop, ItemID: m.ID, X: 195, Y: 115})
	require.NoError(t, err)
	assert.Equal(t, canvas.DropCommitted, res.Drop.Outcome)
}

func TestSessionServiceCloseSession(t *testing.T) {
	svc, _, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	id, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)
	ch, cancel, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)
	receive(t, ch)

	require.NoError(t, svc.CloseSession(id))
	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	_, err = svc.Snapshot(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionServiceGestureConflict(t *testing.T) {
	svc, m, _, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	id, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventPanStart})
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, id, canvas.Event{Kind: canvas.EventDragStart, ItemID: m.ID})
	assert.ErrorIs(t, err, canvas.ErrGestureActive)
}

func TestSessionServiceConcurrentDrops(t *testing.T) {
	svc, m, n, cleanup := seededService(t, canvas.PolicyStrict)
	defer cleanup()
	ctx := context.Background()

	a, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)
	b, _, err := svc.OpenSession(ctx)
	require.NoError(t, err)

	// Both items race for row 5, col 9; strict occupancy lets exactly one in.
	x, y := 100+9*90+5.0, 80+5*70+5.0
	var (
		wg       sync.WaitGroup
		outcomes [2]canvas.DropOutcome
	)
	for i, pair := range [][2]string{{a, m.ID}, {b, n.ID}} {
		wg.Add(1)
		go func(i int, session, item string) {
			defer wg.Done()
			res, err := svc.Dispatch(ctx, session, canvas.Event{Kind: canvas.EventDrop, ItemID: item, X: x, Y: y})
			if assert.NoError(t, err) {
				outcomes[i] = res.Drop.Outcome
			}
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	assert.ElementsMatch(t, []canvas.DropOutcome{canvas.DropCommitted, canvas.DropOccupied}, outcomes[:])
}
