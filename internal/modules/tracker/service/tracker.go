package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"smc_bot/internal/models"
	"smc_bot/pkg/logger"
	"smc_bot/pkg/tracing"
)

var (
	ErrClosed       = errors.New("signal already closed")
	ErrNotTradeable = errors.New("neutral signals cannot be tracked")
)

type Store interface {
	Get(ctx context.Context, id string) (models.Signal, error)
	Update(ctx context.Context, id string, patch models.SignalPatch) error
	OpenTracked(ctx context.Context, userID string) ([]models.Signal, error)
	Tracked(ctx context.Context, userID string) ([]models.Signal, error)
}

type TickFeed interface {
	SubscribeTicks(ctx context.Context, symbol string) (<-chan models.Tick, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg string)
}

type Config struct {
	UserID         string
	PersistRetries int
	PersistBackoff time.Duration
	ResyncEvery    time.Duration
}

type entry struct {
	mu  sync.Mutex
	sig models.Signal
	gen uint64
}

type subscription struct {
	cancel context.CancelFunc
}

// Tracker watches open tracked signals and moves them through their
// lifecycle as ticks arrive. Ticks of one symbol are consumed by a single
// goroutine; symbols run concurrently.
type Tracker struct {
	cfg      Config
	store    Store
	feed     TickFeed
	notifier Notifier

	mu       sync.RWMutex
	signals  map[string]*entry
	bySymbol map[string]map[string]struct{}
	// ids closed or forgotten here that a stale store snapshot may still list
	dropped map[string]struct{}
	gen     uint64

	loadMu sync.Mutex

	subMu sync.Mutex
	subs  map[string]*subscription
	base  context.Context

	wg   sync.WaitGroup
	stop context.CancelFunc

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewTracker(cfg Config, store Store, feed TickFeed, notifier Notifier) *Tracker {
	if cfg.PersistRetries <= 0 {
		cfg.PersistRetries = 3
	}
	if cfg.PersistBackoff <= 0 {
		cfg.PersistBackoff = 200 * time.Millisecond
	}
	if cfg.ResyncEvery <= 0 {
		cfg.ResyncEvery = 5 * time.Minute
	}
	return &Tracker{
		cfg:      cfg,
		store:    store,
		feed:     feed,
		notifier: notifier,
		signals:  make(map[string]*entry),
		bySymbol: make(map[string]map[string]struct{}),
		dropped:  make(map[string]struct{}),
		subs:     make(map[string]*subscription),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Start loads the open signals, attaches tick subscriptions and keeps
// resyncing with the store until ctx is cancelled or Stop is called.
func (t *Tracker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	t.subMu.Lock()
	t.base = ctx
	t.stop = cancel
	t.subMu.Unlock()

	if err := t.Load(ctx); err != nil {
		logger.Error("[TRACKER] initial load: %v", err)
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		tk := time.NewTicker(t.cfg.ResyncEvery)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if err := t.Load(ctx); err != nil {
					logger.Warn("[TRACKER] resync: %v", err)
				}
			}
		}
	}()
	return nil
}

func (t *Tracker) Stop() {
	t.subMu.Lock()
	if t.stop != nil {
		t.stop()
	}
	for sym, s := range t.subs {
		s.cancel()
		delete(t.subs, sym)
	}
	t.subMu.Unlock()
	t.wg.Wait()
}

// Load replaces the in-memory set with the store's open tracked signals.
// Entries already held keep their lock; their state is refreshed but never
// moved backwards. Signals closed or forgotten in memory after the snapshot
// was read are not brought back.
func (t *Tracker) Load(ctx context.Context) error {
	t.loadMu.Lock()
	defer t.loadMu.Unlock()

	t.mu.RLock()
	gen := t.gen
	t.mu.RUnlock()

	open, err := t.store.OpenTracked(ctx, t.cfg.UserID)
	if err != nil {
		return fmt.Errorf("load open signals: %w", err)
	}

	fresh := make(map[string]models.Signal, len(open))
	for _, s := range open {
		if s.Active() {
			fresh[s.ID] = s
		}
	}

	t.mu.Lock()
	for id := range t.dropped {
		if _, ok := fresh[id]; ok {
			delete(fresh, id)
		} else {
			// the store caught up
			delete(t.dropped, id)
		}
	}
	for id, e := range t.signals {
		// added after the snapshot was read
		if e.gen > gen {
			continue
		}
		if _, ok := fresh[id]; !ok {
			t.removeLocked(id, e.sig.Symbol)
		}
	}
	for id, s := range fresh {
		if e, ok := t.signals[id]; ok {
			e.mu.Lock()
			e.sig = merge(e.sig, s)
			e.mu.Unlock()
			continue
		}
		t.addLocked(s)
	}
	n := len(t.signals)
	t.mu.Unlock()

	logger.Info("[TRACKER] loaded %d open signals", n)
	t.reconcile()
	return nil
}

// Track promotes a stored signal into live monitoring.
func (t *Tracker) Track(ctx context.Context, id string) (models.Signal, error) {
	s, err := t.store.Get(ctx, id)
	if err != nil {
		return models.Signal{}, err
	}
	if s.Closed {
		return s, ErrClosed
	}
	if s.Direction != models.DirectionBuy && s.Direction != models.DirectionSell {
		return s, ErrNotTradeable
	}
	if !s.Tracked {
		patch := models.SignalPatch{Tracked: models.Ptr(true)}
		if err := t.store.Update(ctx, id, patch); err != nil {
			return s, fmt.Errorf("track %s: %w", id, err)
		}
		s = patch.Apply(s)
	}

	t.mu.Lock()
	delete(t.dropped, id)
	if _, ok := t.signals[id]; !ok {
		t.addLocked(s)
	}
	t.mu.Unlock()
	t.reconcile()

	logger.Info("[TRACKER] tracking %s %s %s", id, s.Symbol, s.Direction)
	return s, nil
}

// Untrack stops monitoring a signal and clears its tracked flag.
func (t *Tracker) Untrack(ctx context.Context, id string) error {
	if err := t.store.Update(ctx, id, models.SignalPatch{Tracked: models.Ptr(false)}); err != nil {
		return fmt.Errorf("untrack %s: %w", id, err)
	}
	t.Forget(id)
	return nil
}

// Forget drops a signal from memory without touching the store.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	if e, ok := t.signals[id]; ok {
		t.removeLocked(id, e.sig.Symbol)
		t.dropped[id] = struct{}{}
	}
	t.mu.Unlock()
	t.reconcile()
}

// Open returns a copy of the signals currently held in memory.
func (t *Tracker) Open() []models.Signal {
	t.mu.RLock()
	entries := make([]*entry, 0, len(t.signals))
	for _, e := range t.signals {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	out := make([]models.Signal, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.sig)
		e.mu.Unlock()
	}
	return out
}

// Symbols is the derived subscription set.
func (t *Tracker) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.bySymbol))
	for sym := range t.bySymbol {
		out = append(out, sym)
	}
	return out
}

// OnTick fans a tick out to every open signal of its symbol.
func (t *Tracker) OnTick(ctx context.Context, tick models.Tick) {
	t.mu.RLock()
	ids := t.bySymbol[tick.Symbol]
	entries := make([]*entry, 0, len(ids))
	for id := range ids {
		if e, ok := t.signals[id]; ok {
			entries = append(entries, e)
		}
	}
	t.mu.RUnlock()

	at := tick.Time
	if at.IsZero() {
		at = t.now()
	}
	for _, e := range entries {
		t.process(ctx, e, tick.Price, at)
	}
}

func (t *Tracker) process(ctx context.Context, e *entry, price float64, at time.Time) {
	e.mu.Lock()
	if !e.sig.Active() {
		e.mu.Unlock()
		return
	}
	ev, patch, ok := Evaluate(e.sig, price, at)
	if !ok {
		e.mu.Unlock()
		return
	}

	span, sctx := tracing.StartSpan(ctx, "tracker.transition",
		opentracing.Tag{Key: "signal", Value: e.sig.ID},
		opentracing.Tag{Key: "event", Value: string(ev.Kind)},
	)

	if err := t.persist(sctx, ev.SignalID, patch); err != nil {
		e.mu.Unlock()
		span.SetTag("error", true)
		span.Finish()
		logger.Error("[TRACKER] %s %s dropped: %v", ev.SignalID, ev.Kind, err)
		return
	}
	e.sig = patch.Apply(e.sig)
	id, sym, closed := e.sig.ID, e.sig.Symbol, e.sig.Closed
	e.mu.Unlock()
	span.Finish()

	logger.Info("[TRACKER] %s %s %s at %.5f", id, sym, ev.Kind, price)
	t.notifier.Notify(ctx, ev.String())

	if closed {
		t.mu.Lock()
		t.removeLocked(id, sym)
		t.dropped[id] = struct{}{}
		t.mu.Unlock()
		t.reconcile()
	}
}

// persist writes the patch with bounded exponential backoff.
func (t *Tracker) persist(ctx context.Context, id string, patch models.SignalPatch) error {
	backoff := t.cfg.PersistBackoff
	var err error
	for attempt := 1; attempt <= t.cfg.PersistRetries; attempt++ {
		if err = t.store.Update(ctx, id, patch); err == nil {
			return nil
		}
		if errors.Is(err, models.ErrSignalNotFound) {
			return err
		}
		if attempt == t.cfg.PersistRetries {
			break
		}
		logger.Warn("[TRACKER] persist %s attempt %d: %v", id, attempt, err)
		if serr := t.sleep(ctx, backoff); serr != nil {
			return serr
		}
		backoff *= 2
	}
	return fmt.Errorf("persist after %d attempts: %w", t.cfg.PersistRetries, err)
}

// merge refreshes cur from a store copy unless the copy is behind it in the
// lifecycle: hit flags, breakeven and close only ever move forward.
func merge(cur, fresh models.Signal) models.Signal {
	if cur.Closed || progress(fresh) < progress(cur) {
		return cur
	}
	return fresh
}

func progress(s models.Signal) int {
	n := 0
	for _, v := range []bool{s.TP1Hit, s.BreakevenSet, s.TP2Hit, s.TP3Hit, s.Closed} {
		if v {
			n++
		}
	}
	return n
}

func (t *Tracker) addLocked(s models.Signal) {
	t.gen++
	t.signals[s.ID] = &entry{sig: s, gen: t.gen}
	set, ok := t.bySymbol[s.Symbol]
	if !ok {
		set = make(map[string]struct{})
		t.bySymbol[s.Symbol] = set
	}
	set[s.ID] = struct{}{}
}

func (t *Tracker) removeLocked(id, symbol string) {
	delete(t.signals, id)
	if set, ok := t.bySymbol[symbol]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(t.bySymbol, symbol)
		}
	}
}

// reconcile attaches feeds for newly referenced symbols and cancels the ones
// no open signal needs any more.
func (t *Tracker) reconcile() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	if t.base == nil || t.base.Err() != nil {
		return
	}
	want := t.Symbols()

	need := make(map[string]struct{}, len(want))
	for _, sym := range want {
		need[sym] = struct{}{}
		if _, ok := t.subs[sym]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(t.base)
		ch, err := t.feed.SubscribeTicks(ctx, sym)
		if err != nil {
			cancel()
			logger.Warn("[TRACKER] subscribe %s: %v", sym, err)
			continue
		}
		sub := &subscription{cancel: cancel}
		t.subs[sym] = sub
		t.wg.Add(1)
		go t.consume(ctx, sym, sub, ch)
		logger.Info("[TRACKER] subscribed %s", sym)
	}
	for sym, sub := range t.subs {
		if _, ok := need[sym]; !ok {
			sub.cancel()
			delete(t.subs, sym)
			logger.Info("[TRACKER] unsubscribed %s", sym)
		}
	}
}

func (t *Tracker) consume(ctx context.Context, symbol string, sub *subscription, ch <-chan models.Tick) {
	defer t.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ch:
			if !ok {
				// feed gave up; drop the slot so the next resync reattaches
				t.subMu.Lock()
				if t.subs[symbol] == sub {
					delete(t.subs, symbol)
				}
				t.subMu.Unlock()
				sub.cancel()
				return
			}
			t.OnTick(ctx, tick)
		}
	}
}

// Stats summarises every tracked signal of the operator, closed included.
func (t *Tracker) Stats(ctx context.Context) (models.Stats, error) {
	list, err := t.store.Tracked(ctx, t.cfg.UserID)
	if err != nil {
		return models.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return ComputeStats(list), nil
}

func ComputeStats(list []models.Signal) models.Stats {
	var st models.Stats
	for _, s := range list {
		st.Total++
		if !s.Closed {
			st.Active++
			continue
		}
		st.Closed++
		if s.Winning() {
			st.Winning++
		} else {
			st.Losing++
		}
	}
	if st.Closed > 0 {
		st.WinRate = float64(st.Winning) / float64(st.Closed) * 100
	}
	return st
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tm.C:
		return nil
	}
}
