package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	models "cloudfiles/internal/domain/models/drive"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
)

// ErrSessionClosed is returned by Navigate after Close
var ErrSessionClosed = errors.New("folder view session closed")

// Watcher opens live folder views
type Watcher struct {
	folderRepo           driveRepo.FolderRepository
	fileRepo             driveRepo.FileRepository
	feed                 driveSvc.ChangeFeed
	resolver             *Resolver
	logger               *slog.Logger
	firstSnapshotTimeout time.Duration
}

// WatcherOption customises a Watcher
type WatcherOption func(*Watcher)

// WithFirstSnapshotTimeout fails a live query whose first snapshot takes
// longer than d. Zero waits indefinitely.
func WithFirstSnapshotTimeout(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.firstSnapshotTimeout = d
		}
	}
}

// NewWatcher creates a Watcher
func NewWatcher(
	folderRepo driveRepo.FolderRepository,
	fileRepo driveRepo.FileRepository,
	feed driveSvc.ChangeFeed,
	logger *slog.Logger,
	opts ...WatcherOption,
) *Watcher {
	w := &Watcher{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		feed:       feed,
		resolver:   NewResolver(folderRepo, logger),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Session is a handle on one live folder view. It owns the folder
// subscription and the two child-list subscriptions of the folder it
// currently observes; Navigate swaps them, Close releases them. The session
// also closes when the context passed to Open ends.
type Session struct {
	w      *Watcher
	userID string
	ctx    context.Context
	cancel context.CancelFunc

	// navMu serializes Navigate and Close
	navMu     sync.Mutex
	genCancel context.CancelFunc
	sub       driveSvc.FeedSubscription

	mu     sync.Mutex
	gen    uint64
	ref    models.FolderRef
	state  ViewState
	closed bool

	updatesMu     sync.Mutex
	updates       chan ViewState
	updatesClosed bool
}

// Open starts observing ref for userID. known may carry an already-fetched
// copy of the folder to display while the authoritative read is in flight.
func (w *Watcher) Open(ctx context.Context, userID string, ref models.FolderRef, known *models.Folder) (*Session, error) {
	sessCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		w:       w,
		userID:  userID,
		ctx:     sessCtx,
		cancel:  cancel,
		updates: make(chan ViewState, 1),
	}

	s.navMu.Lock()
	err := s.attach(ref, known)
	s.navMu.Unlock()
	if err != nil {
		s.Close()
		return nil, err
	}

	go func() {
		<-sessCtx.Done()
		s.Close()
	}()

	return s, nil
}

// Navigate detaches the current folder's subscriptions, then attaches fresh
// ones for ref. Results still in flight for the previous folder are dropped.
func (s *Session) Navigate(ref models.FolderRef, known *models.Folder) error {
	s.navMu.Lock()
	defer s.navMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	if err := s.detach(); err != nil {
		s.w.logger.Debug("closing previous feed subscription failed", "error", err)
	}
	return s.attach(ref, known)
}

// Snapshot returns a copy of the current view
func (s *Session) Snapshot() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Updates delivers the latest view after every change. Intermediate states
// may be skipped; the channel is closed when the session closes.
func (s *Session) Updates() <-chan ViewState {
	return s.updates
}

// Ref returns the folder currently observed
func (s *Session) Ref() models.FolderRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref
}

// Close releases every subscription. Safe to call more than once.
func (s *Session) Close() error {
	s.navMu.Lock()
	defer s.navMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	s.mu.Unlock()

	err := s.detach()
	s.cancel()

	s.updatesMu.Lock()
	s.updatesClosed = true
	close(s.updates)
	s.updatesMu.Unlock()

	return err
}

// detach cancels the current generation. Caller holds navMu.
func (s *Session) detach() error {
	s.mu.Lock()
	s.gen++
	for p := part(0); p < partCount; p++ {
		st := s.state.status(p)
		if st.State != StateError {
			st.State = StateUnsubscribed
		}
	}
	s.mu.Unlock()

	var err error
	if s.genCancel != nil {
		s.genCancel()
		s.genCancel = nil
	}
	if s.sub != nil {
		err = multierr.Append(err, s.sub.Close())
		s.sub = nil
	}
	return err
}

// attach starts a new generation observing ref. Caller holds navMu.
func (s *Session) attach(ref models.FolderRef, known *models.Folder) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.ref = ref
	s.state = ViewState{
		Generation:    gen,
		FolderID:      ref.ID(),
		Folders:       []models.Folder{},
		Files:         []models.File{},
		FolderStatus:  PartStatus{State: StateSubscribing},
		FoldersStatus: PartStatus{State: StateSubscribing},
		FilesStatus:   PartStatus{State: StateSubscribing},
	}
	if seed := s.w.resolver.Seed(ref, known); seed != nil {
		s.state.Folder = seed
		s.state.Found = true
	}
	snapshot := s.state.clone()
	s.mu.Unlock()
	s.notify(snapshot)

	genCtx, cancel := context.WithCancel(s.ctx)
	s.genCancel = cancel

	// Subscribe before the first reads so no change between read and
	// subscribe is missed.
	sub, err := s.w.feed.Subscribe(genCtx, s.userID)
	if err != nil {
		err = fmt.Errorf("subscribe to folder changes: %w", err)
		for p := part(0); p < partCount; p++ {
			s.apply(gen, p, nil, err)
		}
		return err
	}
	s.sub = sub

	var kicks [partCount]chan struct{}
	for p := part(0); p < partCount; p++ {
		kicks[p] = make(chan struct{}, 1)
		go s.run(genCtx, gen, ref, p, kicks[p])
	}
	go s.dispatch(genCtx, gen, ref, sub, kicks)

	return nil
}

// dispatch routes feed events to the live queries they affect
func (s *Session) dispatch(ctx context.Context, gen uint64, ref models.FolderRef, sub driveSvc.FeedSubscription, kicks [partCount]chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			for p := part(0); p < partCount; p++ {
				if s.affects(gen, ref, p, ev) {
					select {
					case kicks[p] <- struct{}{}:
					default: // a refresh is already pending
					}
				}
			}
		}
	}
}

// affects reports whether ev can change part p of the view
func (s *Session) affects(gen uint64, ref models.FolderRef, p part, ev models.ChangeEvent) bool {
	if ev.UserID != s.userID {
		return false
	}
	if ev.Op == models.OpResync {
		return true
	}

	switch p {
	case partFolder:
		if ref.IsRoot() || ev.Collection != models.CollectionFolders {
			return false
		}
		if ev.ID == ref.ID() {
			return true
		}
		// Renaming an ancestor changes the path
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || s.state.Folder == nil {
			return false
		}
		for _, entry := range s.state.Folder.Path {
			if entry.ID == ev.ID {
				return true
			}
		}
		return false
	case partFolders:
		return ev.Collection == models.CollectionFolders && ev.ParentID == ref.ID()
	case partFiles:
		return ev.Collection == models.CollectionFiles && ev.ParentID == ref.ID()
	}
	return false
}

// run performs the first read of part p, then re-reads on every kick
func (s *Session) run(ctx context.Context, gen uint64, ref models.FolderRef, p part, kick <-chan struct{}) {
	first := true
	for {
		fetchCtx, cancel := ctx, context.CancelFunc(func() {})
		if first && s.w.firstSnapshotTimeout > 0 {
			fetchCtx, cancel = context.WithTimeout(ctx, s.w.firstSnapshotTimeout)
		}
		result, err := s.fetch(fetchCtx, ref, p)
		timedOut := err != nil && first && errors.Is(fetchCtx.Err(), context.DeadlineExceeded)
		cancel()

		if ctx.Err() != nil {
			return
		}
		if timedOut {
			err = fmt.Errorf("no %s snapshot within %s", p, s.w.firstSnapshotTimeout)
		}
		if !s.apply(gen, p, result, err) || err != nil {
			return
		}
		first = false

		select {
		case <-ctx.Done():
			return
		case <-kick:
		}
	}
}

func (s *Session) fetch(ctx context.Context, ref models.FolderRef, p part) (any, error) {
	switch p {
	case partFolder:
		return s.w.resolver.Resolve(ctx, s.userID, ref)
	case partFolders:
		return s.w.folderRepo.ListChildren(ctx, ref.ID(), s.userID)
	default:
		return s.w.fileRepo.ListByFolder(ctx, ref.ID(), s.userID)
	}
}

// apply stores a query result. Results from an older generation are
// dropped and apply reports false so the caller stops.
func (s *Session) apply(gen uint64, p part, result any, err error) bool {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return false
	}

	st := s.state.status(p)
	if st.State == StateError {
		s.mu.Unlock()
		return false
	}

	if err != nil {
		st.State = StateError
		st.Error = err.Error()
		s.w.logger.Warn("live folder query failed",
			"part", p.String(),
			"folder_id", s.state.FolderID,
			"user_id", s.userID,
			"error", err,
		)
	} else {
		st.State = StateLive
		st.Loaded = true
		switch p {
		case partFolder:
			folder, _ := result.(*models.Folder)
			s.state.Folder = folder
			s.state.Found = folder != nil
		case partFolders:
			s.state.Folders, _ = result.([]models.Folder)
		case partFiles:
			s.state.Files, _ = result.([]models.File)
		}
	}
	s.state.Ready = s.state.FoldersStatus.Loaded && s.state.FilesStatus.Loaded
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return true
}

// notify replaces any undelivered update with the latest one
func (s *Session) notify(v ViewState) {
	s.updatesMu.Lock()
	defer s.updatesMu.Unlock()
	if s.updatesClosed {
		return
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- v
}
