package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vbonduro/stagecanvas/internal/canvas"
)

// liveSession is one open canvas. mu serialises every event and snapshot for
// the session; subscribers receive the latest snapshot after each change.
type liveSession struct {
	id     string
	mu     sync.Mutex
	canvas *canvas.Session
	subs   map[chan canvas.Snapshot]struct{}
}

// OpenSession creates a session with every stored area registered in
// creation order.
func (s *CanvasService) OpenSession(ctx context.Context) (string, canvas.Snapshot, error) {
	s.areaMu.Lock()
	defer s.areaMu.Unlock()

	areas, err := s.areaStore.List(ctx)
	if err != nil {
		return "", canvas.Snapshot{}, fmt.Errorf("failed to list areas: %w", err)
	}

	id := uuid.NewString()
	cs := canvas.NewSession(s.itemStore, s.policy, s.logger.With("session_id", id))
	for _, a := range areas {
		if err := cs.RegisterArea(a); err != nil {
			s.logger.Error("skipping stored area", "session_id", id, "area_id", a.ID, "error", err)
		}
	}

	ls := &liveSession{id: id, canvas: cs, subs: make(map[chan canvas.Snapshot]struct{})}
	snap, err := cs.Snapshot(ctx)
	if err != nil {
		return "", canvas.Snapshot{}, err
	}

	s.mu.Lock()
	s.sessions[id] = ls
	s.mu.Unlock()

	s.logger.Info("session opened", "session_id", id, "areas", len(cs.Grids()))
	return id, snap, nil
}

// CloseSession discards a session and closes its subscriber channels.
func (s *CanvasService) CloseSession(id string) error {
	s.mu.Lock()
	ls, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	ls.mu.Lock()
	for ch := range ls.subs {
		close(ch)
		delete(ls.subs, ch)
	}
	ls.mu.Unlock()

	s.logger.Info("session closed", "session_id", id)
	return nil
}

func (s *CanvasService) Snapshot(ctx context.Context, id string) (canvas.Snapshot, error) {
	ls, err := s.session(id)
	if err != nil {
		return canvas.Snapshot{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.canvas.Snapshot(ctx)
}

// Dispatch applies ev to the session. Subscribers of the session are sent a
// fresh snapshot when its state changed; a committed drop also refreshes
// every other open session.
func (s *CanvasService) Dispatch(ctx context.Context, id string, ev canvas.Event) (canvas.Result, error) {
	ls, err := s.session(id)
	if err != nil {
		return canvas.Result{}, err
	}

	ls.mu.Lock()
	s.writeMu.Lock()
	res, err := ls.canvas.Dispatch(ctx, ev)
	s.writeMu.Unlock()
	if err == nil && res.Changed {
		s.publishLocked(ctx, ls)
	}
	ls.mu.Unlock()
	if err != nil {
		return res, err
	}

	if res.Drop != nil && res.Drop.Outcome == canvas.DropCommitted {
		s.logger.Info("item placed", "session_id", id, "item_id", ev.ItemID,
			"area_id", res.Drop.Target.AreaID, "row", res.Drop.Target.Row, "col", res.Drop.Target.Col)
		s.broadcastExcept(ctx, id)
	}
	return res, nil
}

// Subscribe returns a channel that receives the session's snapshot after
// every change, starting with the current one. The channel only ever holds
// the latest snapshot; slow readers skip intermediate states. It is closed
// when the session closes or cancel is called.
func (s *CanvasService) Subscribe(ctx context.Context, id string) (<-chan canvas.Snapshot, func(), error) {
	ls, err := s.session(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan canvas.Snapshot, 1)
	ls.mu.Lock()
	snap, err := ls.canvas.Snapshot(ctx)
	if err != nil {
		ls.mu.Unlock()
		return nil, nil, err
	}
	ch <- snap
	ls.subs[ch] = struct{}{}
	ls.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ls.mu.Lock()
			defer ls.mu.Unlock()
			if _, ok := ls.subs[ch]; ok {
				delete(ls.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func (s *CanvasService) session(id string) (*liveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ls, nil
}

// eachSession calls fn for every open session. The session map lock is not
// held while fn runs.
func (s *CanvasService) eachSession(fn func(ls *liveSession)) {
	s.mu.RLock()
	all := make([]*liveSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		all = append(all, ls)
	}
	s.mu.RUnlock()

	for _, ls := range all {
		fn(ls)
	}
}

func (s *CanvasService) broadcast(ctx context.Context) {
	s.broadcastExcept(ctx, "")
}

func (s *CanvasService) broadcastExcept(ctx context.Context, skip string) {
	s.eachSession(func(ls *liveSession) {
		if ls.id == skip {
			return
		}
		ls.mu.Lock()
		defer ls.mu.Unlock()
		s.publishLocked(ctx, ls)
	})
}

// publishLocked sends the current snapshot to every subscriber of ls,
// replacing any snapshot the subscriber has not read yet. ls.mu must be held.
func (s *CanvasService) publishLocked(ctx context.Context, ls *liveSession) {
	if len(ls.subs) == 0 {
		return
	}
	snap, err := ls.canvas.Snapshot(ctx)
	if err != nil {
		s.logger.Error("failed to build snapshot", "session_id", ls.id, "error", err)
		return
	}
	for ch := range ls.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
