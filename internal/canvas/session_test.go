package canvas

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

func newTestSession(t *testing.T, policy OccupancyPolicy, items ...*domain.Item) (*Session, *memItems) {
	t.Helper()
	store := newMemItems(items...)
	s := NewSession(store, policy, slog.Default())
	require.NoError(t, s.RegisterArea(stagingAreaA()))
	return s, store
}

func TestSessionRegisterArea(t *testing.T) {
	s, _ := newTestSession(t, PolicyStrict)

	err := s.RegisterArea(stagingAreaA())
	assert.ErrorIs(t, err, ErrDuplicateArea)

	bad := stagingAreaA()
	bad.ID = "bad"
	bad.Rows = 0
	assert.ErrorIs(t, s.RegisterArea(bad), ErrInvalidArea)
	_, ok := s.Grid("bad")
	assert.False(t, ok)
	assert.Len(t, s.Grids(), 1)
}

func TestSessionDropScenario(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, PolicyStrict, material("M", "area-1", 0, 0))

	started, err := s.BeginItemDrag(ctx, "M")
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []string{"M"}, s.Selection())

	res, err := s.RequestDrop(ctx, "M", Point{X: 195, Y: 115})
	require.NoError(t, err)
	assert.Equal(t, DropCommitted, res.Outcome)
	assert.Equal(t, domain.Position{AreaID: "area-1", Row: 0, Col: 1}, store.get("M").Position)

	_, dragging := s.DraggingItem()
	assert.False(t, dragging)
}

func TestSessionDragStartOnMissingItemIsCancelled(t *testing.T) {
	s, _ := newTestSession(t, PolicyStrict)

	started, err := s.BeginItemDrag(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, started)
	assert.Empty(t, s.Selection())
}

func TestSessionDragPreservesMultiSelection(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, PolicyStrict, material("A", "area-1", 0, 0), material("B", "area-1", 0, 1))
	s.RequestSelect("A", true)
	s.RequestSelect("B", true)

	_, err := s.BeginItemDrag(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, s.Selection())
}

func TestSessionSingleGesture(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, PolicyStrict, material("A", "area-1", 0, 0), material("B", "area-1", 0, 1))

	require.NoError(t, s.BeginPan())
	_, err := s.BeginItemDrag(ctx, "A")
	assert.ErrorIs(t, err, ErrGestureActive)
	_, err = s.RequestDrop(ctx, "A", Point{X: 195, Y: 115})
	assert.ErrorIs(t, err, ErrGestureActive)
	assert.True(t, s.EndPan())

	_, err = s.BeginItemDrag(ctx, "A")
	require.NoError(t, err)
	assert.ErrorIs(t, s.BeginPan(), ErrGestureActive)
	_, err = s.RequestDrop(ctx, "B", Point{X: 195, Y: 115})
	assert.ErrorIs(t, err, ErrGestureActive)
	assert.True(t, s.CancelItemDrag())
}

func TestSessionPanGesture(t *testing.T) {
	s, _ := newTestSession(t, PolicyStrict)

	require.NoError(t, s.BeginPan())
	s.MovePan(Point{X: 10, Y: 5})
	s.MovePan(Point{X: 3, Y: -2})
	assert.True(t, s.EndPan())
	assert.Equal(t, 13.0, s.Viewport().OffsetX)
	assert.Equal(t, 3.0, s.Viewport().OffsetY)

	require.NoError(t, s.BeginPan())
	s.MovePan(Point{X: 100, Y: 100})
	assert.True(t, s.CancelPan())
	assert.Equal(t, 13.0, s.Viewport().OffsetX)
	assert.Equal(t, 3.0, s.Viewport().OffsetY)

	assert.False(t, s.MovePan(Point{X: 1, Y: 1}))
}

func TestSessionDeletionConsistency(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, PolicyStrict, material("A", "area-1", 0, 0))
	s.RequestSelect("A", false)

	store.remove("A")
	assert.True(t, s.NotifyItemRemoved("A"))
	assert.Empty(t, s.Selection())

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Selection)
	assert.Empty(t, snap.Items)
}

func TestSessionSnapshotPrunesMissedDeletion(t *testing.T) {
	s, store := newTestSession(t, PolicyStrict, material("A", "area-1", 0, 0), material("B", "area-1", 1, 1))
	s.RequestSelect("A", true)
	s.RequestSelect("B", true)
	store.remove("A")

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, snap.Selection)
}

func TestSessionDropStaleDeselects(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, PolicyStrict, material("A", "area-1", 0, 0))
	_, err := s.BeginItemDrag(ctx, "A")
	require.NoError(t, err)

	store.remove("A")
	res, err := s.RequestDrop(ctx, "A", Point{X: 195, Y: 115})
	require.NoError(t, err)
	assert.Equal(t, DropStale, res.Outcome)
	assert.Empty(t, s.Selection())
}

func TestSessionSnapshot(t *testing.T) {
	item := material("A", "area-1", 2, 3)
	orphan := material("O", "nowhere", 0, 0)
	orphan.Color = "#123456"
	s, _ := newTestSession(t, PolicyPermissive, item, orphan)
	s.RequestSelect("A", false)
	s.RequestZoom(Point{X: 0, Y: 0}, 1.5)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "permissive", snap.Policy)
	assert.Equal(t, "idle", snap.Gesture)
	assert.Equal(t, 150, snap.Viewport.ZoomPercent)
	require.Len(t, snap.Areas, 1)
	assert.Equal(t, 1, snap.Areas[0].ItemCount)
	assert.Equal(t, 900.0, snap.Areas[0].Width)
	assert.Equal(t, 420.0, snap.Areas[0].Height)

	require.Len(t, snap.Items, 2)
	a := snap.Items[0]
	require.NotNil(t, a.Center)
	assert.Equal(t, Point{X: 100 + 3*90 + 45, Y: 80 + 2*70 + 35}, *a.Center)
	assert.Equal(t, "C4", a.Cell)
	assert.True(t, a.Selected)
	assert.Equal(t, "#10B981", a.DisplayColor)
	assert.Equal(t, domain.DefaultItemSize, a.DisplaySize)

	o := snap.Items[1]
	assert.Nil(t, o.Center)
	assert.Equal(t, "#123456", o.DisplayColor)
	assert.False(t, o.Selected)
}

func TestSessionVersionTracksChanges(t *testing.T) {
	s, _ := newTestSession(t, PolicyStrict, material("A", "area-1", 0, 0))
	v := s.Version()

	assert.False(t, s.RequestClearSelection())
	assert.Equal(t, v, s.Version())

	assert.True(t, s.RequestSelect("A", false))
	assert.Equal(t, v+1, s.Version())
}

func TestSessionDispatch(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, PolicyStrict, material("M", "area-1", 0, 0))

	res, err := s.Dispatch(ctx, Event{Kind: EventWheel, X: 400, Y: 300, DeltaY: 1})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.InDelta(t, WheelZoomFactor, s.Viewport().Scale, 1e-12)

	_, err = s.Dispatch(ctx, Event{Kind: EventResetView})
	require.NoError(t, err)

	res, err = s.Dispatch(ctx, Event{Kind: EventDragStart, ItemID: "M"})
	require.NoError(t, err)
	assert.True(t, res.Started)

	res, err = s.Dispatch(ctx, Event{Kind: EventDrop, ItemID: "M", X: 195, Y: 115})
	require.NoError(t, err)
	require.NotNil(t, res.Drop)
	assert.Equal(t, DropCommitted, res.Drop.Outcome)
	assert.Equal(t, 1, store.get("M").Position.Col)

	res, err = s.Dispatch(ctx, Event{Kind: EventBackgroundClick})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, s.Selection())

	_, err = s.Dispatch(ctx, Event{Kind: "teleport"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestSessionRelabelArea(t *testing.T) {
	s, _ := newTestSession(t, PolicyStrict)
	v := s.Version()

	assert.True(t, s.RelabelArea("area-1", "North Yard", "#111111"))
	assert.Equal(t, v+1, s.Version())
	g, _ := s.Grid("area-1")
	assert.Equal(t, "North Yard", g.Area().Name)
	assert.Equal(t, 6, g.Rows())

	assert.False(t, s.RelabelArea("area-1", "North Yard", "#111111"))
	assert.False(t, s.RelabelArea("nope", "X", ""))
	assert.Equal(t, v+1, s.Version())
}
