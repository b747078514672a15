package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"media-picker/internal/extract"
	"media-picker/internal/logging"
	"media-picker/internal/metrics"
	"media-picker/internal/pipeline"
	"media-picker/internal/query"
	"media-picker/internal/repository"
	"media-picker/internal/workers"
)

var (
	// ErrPickerOpen is delivered when a picker session is already open.
	ErrPickerOpen = errors.New("Picker is already open")
	// ErrPermissionDenied is delivered to a suspended request whose
	// permission prompt was refused.
	ErrPermissionDenied = errors.New("Permission denied")
	// ErrUnknownToken is returned for a token that is not pending, either
	// because it never existed or because it was already redeemed.
	ErrUnknownToken = errors.New("unknown or redeemed permission token")
)

var tracer = otel.Tracer("media-picker/orchestrator")

const (
	commandPick = "getMedias"
	commandList = "getLastMedias"
)

// Result is the outcome of one run. Err is set instead of Records whenever
// anything failed, including a single item.
type Result struct {
	Records []pipeline.MediaRecord
	Err     error
}

// Callback receives a run's Result on the Loop goroutine.
type Callback func(Result)

// Suspended is a listing request waiting for a permission outcome.
type Suspended struct {
	Token        string       `json:"token"`
	Capabilities []Capability `json:"capabilities"`
	Caller       string       `json:"caller"`
	RequestedAt  time.Time    `json:"requestedAt"`

	ctx  context.Context
	opts ListOptions
	cb   Callback
}

// Config wires an Orchestrator to its collaborators.
type Config struct {
	Pool      *workers.Pool
	Loop      *Loop
	Pipeline  *pipeline.Pipeline
	Query     *query.Engine
	Picker    Picker
	Busy      BusyIndicator
	Requester PermissionRequester
	Tier      extract.Tier
	// CacheDir is the only directory metadata lookups may read from.
	CacheDir string
	// Granted lists capabilities held from the start.
	Granted []Capability
}

// Orchestrator coordinates picker sessions and listing requests.
type Orchestrator struct {
	pool      *workers.Pool
	loop      *Loop
	pipeline  *pipeline.Pipeline
	query     *query.Engine
	picker    Picker
	busy      BusyIndicator
	requester PermissionRequester
	tier      extract.Tier
	cacheDir  string

	mu         sync.Mutex
	pickerOpen bool
	granted    map[Capability]bool
	pending    map[string]*Suspended
	callers    map[string]*sync.Mutex
}

// New returns an Orchestrator. Requester defaults to LogRequester.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		pool:      cfg.Pool,
		loop:      cfg.Loop,
		pipeline:  cfg.Pipeline,
		query:     cfg.Query,
		picker:    cfg.Picker,
		busy:      cfg.Busy,
		requester: cfg.Requester,
		tier:      cfg.Tier,
		cacheDir:  absDir(cfg.CacheDir),
		granted:   make(map[Capability]bool),
		pending:   make(map[string]*Suspended),
		callers:   make(map[string]*sync.Mutex),
	}
	if o.requester == nil {
		o.requester = LogRequester{}
	}
	for _, c := range cfg.Granted {
		o.granted[c] = true
	}
	return o
}

// Tier returns the platform capability tier.
func (o *Orchestrator) Tier() extract.Tier {
	return o.tier
}

// PickMedia opens the picker and processes the selection. While a session
// is open further calls are answered with ErrPickerOpen and leave the open
// session untouched.
func (o *Orchestrator) PickMedia(ctx context.Context, opts PickOptions, cb Callback) {
	o.mu.Lock()
	if o.pickerOpen {
		o.mu.Unlock()
		metrics.RunsTotal.WithLabelValues(commandPick, "busy").Inc()
		o.deliver(cb, Result{Err: ErrPickerOpen})
		return
	}
	o.pickerOpen = true
	o.mu.Unlock()
	metrics.PickerSessionOpen.Set(1)

	req := PickRequest{
		ID:        uuid.NewString(),
		Limit:     opts.SelectionLimit,
		MediaType: opts.MediaType,
		Filters:   opts.MediaType.MimeFilters(),
	}
	logging.Debug("Opening picker session %s (limit %d, %s)", req.ID, req.Limit, req.MediaType)

	go func() {
		refs, err := o.picker.Pick(ctx, req)

		o.mu.Lock()
		o.pickerOpen = false
		o.mu.Unlock()
		metrics.PickerSessionOpen.Set(0)

		if err != nil {
			metrics.RunsTotal.WithLabelValues(commandPick, "error").Inc()
			o.deliver(cb, Result{Err: err})
			return
		}
		if len(refs) == 0 {
			metrics.RunsTotal.WithLabelValues(commandPick, "cancelled").Inc()
			o.deliver(cb, Result{Records: []pipeline.MediaRecord{}})
			return
		}
		if len(refs) > opts.SelectionLimit {
			refs = refs[:opts.SelectionLimit]
		}

		o.submit(ctx, commandPick, opts.ShowLoader, cb, func(ctx context.Context) Result {
			return o.process(ctx, refs, 0)
		})
	}()
}

// ListRecentMedia delivers the most recent media matching opts. When the
// required capabilities are not granted, the request is suspended and its
// token returned; it resumes when ResolvePermission is called with that
// token. An empty token means the request is already processing.
func (o *Orchestrator) ListRecentMedia(ctx context.Context, caller string, opts ListOptions, cb Callback) string {
	caps := CapabilitiesFor(o.tier, opts.MediaType)

	o.mu.Lock()
	if o.hasAll(caps) {
		o.mu.Unlock()
		o.list(ctx, caller, opts, cb)
		return ""
	}

	s := &Suspended{
		Token:        uuid.NewString(),
		Capabilities: caps,
		Caller:       caller,
		RequestedAt:  time.Now(),
		ctx:          context.WithoutCancel(ctx),
		opts:         opts,
		cb:           cb,
	}
	o.pending[s.Token] = s
	o.mu.Unlock()

	metrics.PendingPermissionRequests.Inc()
	o.requester.RequestPermissions(s.Token, caps)
	return s.Token
}

// ResolvePermission redeems token with the user's decision. A grant is
// remembered for later requests and resumes the suspended request; a
// denial delivers ErrPermissionDenied to that request only.
func (o *Orchestrator) ResolvePermission(token string, granted bool) error {
	o.mu.Lock()
	s, ok := o.pending[token]
	if ok {
		delete(o.pending, token)
		if granted {
			for _, c := range s.Capabilities {
				o.granted[c] = true
			}
		}
	}
	o.mu.Unlock()

	if !ok {
		return ErrUnknownToken
	}
	metrics.PendingPermissionRequests.Dec()

	if !granted {
		logging.Info("Permission request %s denied", token)
		metrics.RunsTotal.WithLabelValues(commandList, "denied").Inc()
		o.deliver(s.cb, Result{Err: ErrPermissionDenied})
		return nil
	}

	logging.Info("Permission request %s granted, resuming", token)
	o.list(s.ctx, s.Caller, s.opts, s.cb)
	return nil
}

// Pending returns the suspended requests, oldest first.
func (o *Orchestrator) Pending() []Suspended {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Suspended, 0, len(o.pending))
	for _, s := range o.pending {
		out = append(out, Suspended{
			Token:        s.Token,
			Capabilities: s.Capabilities,
			Caller:       s.Caller,
			RequestedAt:  s.RequestedAt,
		})
	}
	sortSuspended(out)
	return out
}

// Granted reports whether every capability in caps is held.
func (o *Orchestrator) Granted(caps ...Capability) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hasAll(caps)
}

func (o *Orchestrator) hasAll(caps []Capability) bool {
	for _, c := range caps {
		if !o.granted[c] {
			return false
		}
	}
	return true
}

func (o *Orchestrator) list(ctx context.Context, caller string, opts ListOptions, cb Callback) {
	o.submit(ctx, commandList, opts.ShowLoader, cb, func(ctx context.Context) Result {
		lock := o.callerLock(caller)
		lock.Lock()
		defer lock.Unlock()

		candidates, err := o.query.Query(ctx, opts.MediaType, opts.Limit, opts.Offset)
		if err != nil {
			return Result{Err: fmt.Errorf("Internal error: %w", err)}
		}

		refs := make([]repository.Reference, len(candidates))
		for i, c := range candidates {
			refs[i] = c.Ref
		}
		return o.process(ctx, refs, opts.Offset)
	})
}

func (o *Orchestrator) process(ctx context.Context, refs []repository.Reference, base int) Result {
	records, log := o.pipeline.ProcessAll(ctx, refs, base)
	if err := log.Err(); err != nil {
		return Result{Err: err}
	}
	return Result{Records: records}
}

// submit runs work on the pool with the loader shown around it, then
// posts the result to the loop. Once submitted, a run is not cancelled by
// its caller going away.
func (o *Orchestrator) submit(ctx context.Context, command string, showLoader bool, cb Callback, work func(context.Context) Result) {
	busy := o.acquireBusy(showLoader)
	ctx = context.WithoutCancel(ctx)

	err := o.pool.Submit(func() {
		ctx, span := tracer.Start(ctx, "orchestrator."+command)
		defer span.End()

		start := time.Now()
		res := Result{Err: errors.New("Unexpected error: run aborted")}
		defer func() {
			busy.Release()
			o.deliver(cb, res)
		}()

		res = work(ctx)

		outcome := "success"
		if res.Err != nil {
			outcome = "error"
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.SetAttributes(attribute.Int("media.records", len(res.Records)))
		metrics.RunsTotal.WithLabelValues(command, outcome).Inc()
		metrics.RunDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
		logging.Debug("%s finished in %v: %d records, err=%v", command, time.Since(start), len(res.Records), res.Err)
	})
	if err != nil {
		busy.Release()
		metrics.RunsTotal.WithLabelValues(command, "error").Inc()
		o.deliver(cb, Result{Err: fmt.Errorf("Internal error: %w", err)})
	}
}

func (o *Orchestrator) acquireBusy(show bool) *busyHandle {
	if !show || o.busy == nil {
		return nil
	}
	o.loop.Post(o.busy.Show)
	return &busyHandle{release: func() { o.loop.Post(o.busy.Hide) }}
}

func (o *Orchestrator) deliver(cb Callback, res Result) {
	if cb == nil {
		return
	}
	o.loop.Post(func() { cb(res) })
}

func (o *Orchestrator) callerLock(caller string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, ok := o.callers[caller]
	if !ok {
		m = &sync.Mutex{}
		o.callers[caller] = m
	}
	return m
}
