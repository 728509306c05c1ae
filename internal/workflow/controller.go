// Package workflow owns the comparison state machine for each kind.
//
// A Controller holds one kind's selection, runs comparisons and persists a
// snapshot after every change once it has been hydrated. Store failures are
// logged and never reach the operator.
package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veriscope/console/internal/events"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/result"
	"github.com/veriscope/console/internal/selection"
	"github.com/veriscope/console/internal/snapshot"
	apperrors "github.com/veriscope/console/pkg/errors"
	"github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/logger"
	"github.com/veriscope/console/pkg/messaging"
)

// Phase is the workflow state
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseReady     Phase = "ready"
	PhaseComparing Phase = "comparing"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Comparer runs one comparison. *comparison.Client satisfies it.
type Comparer interface {
	Compare(ctx context.Context, kind registry.Kind, referenceURL string, providedURLs ...string) (*result.Result, error)
}

// View is a read-only copy of a controller's state
type View struct {
	Kind      registry.Kind             `json:"kind"`
	Phase     Phase                     `json:"phase"`
	Reference *registry.FileDescriptor  `json:"referenceFile"`
	Provided  []registry.FileDescriptor `json:"providedFiles"`
	Cursor    int                       `json:"currentProvidedIndex"`
	Current   *registry.FileDescriptor  `json:"currentProvided,omitempty"`
	Result    *result.Result            `json:"compareResult"`
	Error     string                    `json:"error,omitempty"`
	Hydrated  bool                      `json:"hydrated"`
}

// Controller is the comparison workflow for one kind
type Controller struct {
	kind     registry.Kind
	comparer Comparer
	store    snapshot.Store
	events   *events.ComparisonEventPublisher
	logger   *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    selection.State
	phase    Phase
	errMsg   string
	listing  registry.Listing
	hydrated bool
	// generation is bumped by ClearSession so a compare that was running
	// at the time drops its result
	generation uint64
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces time.Now for snapshot timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates an idle, unhydrated controller. store may be nil,
// in which case nothing is persisted; ev may be nil.
func NewController(kind registry.Kind, comparer Comparer, store snapshot.Store, ev *events.ComparisonEventPublisher, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		kind:     kind,
		comparer: comparer,
		store:    store,
		events:   ev,
		logger:   log.WithComponent("workflow").WithKind(string(kind)),
		now:      time.Now,
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kind returns the comparison kind the controller serves
func (c *Controller) Kind() registry.Kind {
	return c.kind
}

// View returns a snapshot of the current state
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	st := c.state.Clone()
	return View{
		Kind:      c.kind,
		Phase:     c.phase,
		Reference: st.Reference,
		Provided:  nonNil(st.Provided),
		Cursor:    st.Cursor,
		Current:   st.Current(),
		Result:    st.Result,
		Error:     c.errMsg,
		Hydrated:  c.hydrated,
	}
}

// Hydrate loads the persisted snapshot. It runs once; later calls return
// immediately. A missing, corrupt or outdated snapshot leaves the
// controller empty.
func (c *Controller) Hydrate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hydrated {
		return
	}
	c.hydrated = true

	if c.store == nil {
		return
	}

	data, err := c.store.Get(ctx, selection.StorageKey(c.kind))
	if errors.Is(err, snapshot.ErrNotFound) {
		return
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read snapshot")
		return
	}

	snap, err := selection.Decode(data, c.kind)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ignoring persisted snapshot")
		return
	}

	c.state = snap.State()
	c.phase = c.restingPhase()
	c.logger.Info().
		Int("provided", len(c.state.Provided)).
		Bool("has_result", c.state.Result != nil).
		Time("saved_at", snap.SavedAt).
		Msg("snapshot restored")
}

// SelectReference picks the reference by storage URL from the latest
// registry listing
func (c *Controller) SelectReference(ctx context.Context, url string) (View, error) {
	c.mu.Lock()
	fd, ok := c.listing.FindReference(url)
	c.mu.Unlock()

	if !ok {
		return View{}, apperrors.NotFound("reference file")
	}
	return c.SelectReferenceFile(ctx, fd), nil
}

// SelectReferenceFile picks fd as the reference
func (c *Controller) SelectReferenceFile(ctx context.Context, fd registry.FileDescriptor) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SetReference(fd)
	c.settle()
	c.persistLocked(ctx)
	return c.viewLocked()
}

// ConfirmProvided replaces the provided set with the files behind urls, in
// the order given. URLs must name provided files of the latest listing or
// files already selected.
func (c *Controller) ConfirmProvided(ctx context.Context, urls []string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	files := make([]registry.FileDescriptor, 0, len(urls))
	var unknown []string
	for _, u := range urls {
		if fd, ok := c.listing.FindProvided(u); ok {
			files = append(files, fd)
			continue
		}
		if fd, ok := findFile(c.state.Provided, u); ok {
			files = append(files, fd)
			continue
		}
		unknown = append(unknown, u)
	}
	if len(unknown) > 0 {
		return View{}, apperrors.BadRequest("unknown provided file: " + strings.Join(unknown, ", "))
	}

	c.state.SetProvided(files)
	c.settle()
	c.persistLocked(ctx)
	return c.viewLocked(), nil
}

// NextProvided moves the carousel forward
func (c *Controller) NextProvided(ctx context.Context) View {
	return c.moveCursor(ctx, func(s *selection.State) error { s.Next(); return nil })
}

// PrevProvided moves the carousel back
func (c *Controller) PrevProvided(ctx context.Context) View {
	return c.moveCursor(ctx, func(s *selection.State) error { s.Prev(); return nil })
}

// SetCursor jumps the carousel to index i
func (c *Controller) SetCursor(ctx context.Context, i int) (View, error) {
	var err error
	v := c.moveCursor(ctx, func(s *selection.State) error {
		err = s.SetCursor(i)
		return err
	})
	if err != nil {
		return View{}, apperrors.BadRequest(err.Error())
	}
	return v, nil
}

func (c *Controller) moveCursor(ctx context.Context, move func(*selection.State) error) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.state.Cursor
	if err := move(&c.state); err == nil && c.state.Cursor != before {
		c.persistLocked(ctx)
	}
	return c.viewLocked()
}

// DismissError clears the error banner
func (c *Controller) DismissError() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errMsg = ""
	if c.phase == PhaseFailed {
		c.phase = c.restingPhase()
	}
	return c.viewLocked()
}

// Compare runs a comparison of the current selection. Missing selections are
// rejected without a request. A second call while one is running fails with
// a COMPARE_IN_FLIGHT error. The selection survives a failed comparison.
func (c *Controller) Compare(ctx context.Context) (*result.Result, error) {
	c.mu.Lock()
	if c.phase == PhaseComparing {
		c.mu.Unlock()
		return nil, apperrors.CompareInFlight()
	}
	if c.state.Reference == nil {
		msg := missingReferenceMessage(c.kind)
		c.errMsg = msg
		c.mu.Unlock()
		return nil, apperrors.PreconditionFailed(msg)
	}
	if len(c.state.Provided) == 0 {
		msg := missingProvidedMessage(c.kind)
		c.errMsg = msg
		c.mu.Unlock()
		return nil, apperrors.PreconditionFailed(msg)
	}

	gen := c.generation
	referenceURL := fetchURL(*c.state.Reference)
	providedURLs := make([]string, len(c.state.Provided))
	for i, f := range c.state.Provided {
		providedURLs[i] = fetchURL(f)
	}
	outcome := events.Outcome{
		Kind:          c.kind,
		ReferenceName: c.state.Reference.Name,
		ProvidedCount: len(providedURLs),
		Operator:      httputil.GetUsername(ctx),
	}

	c.phase = PhaseComparing
	c.errMsg = ""
	c.state.Result = nil
	c.persistLocked(ctx)
	c.mu.Unlock()

	// the comparison, its snapshot write and its event outlive the caller
	ctx = context.WithoutCancel(ctx)
	correlationID := uuid.New().String()
	ctx = messaging.WithCorrelationID(ctx, correlationID)
	log := c.logger.WithCorrelationID(correlationID)
	log.Info().Int("provided", len(providedURLs)).Msg("comparison started")

	res, err := c.comparer.Compare(ctx, c.kind, referenceURL, providedURLs...)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Info().Msg("session cleared during comparison, result discarded")
		return nil, ErrDiscarded
	}

	if err != nil {
		msg := MessageFor(err, fallbackMessage(c.kind))
		c.errMsg = msg
		c.phase = PhaseFailed
		c.mu.Unlock()

		log.Warn().Err(err).Str("message", msg).Msg("comparison failed")
		c.events.PublishFailed(ctx, outcome, msg)
		return nil, compareError(err, msg)
	}

	c.state.Result = res
	c.phase = PhaseSucceeded
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.events.PublishSucceeded(ctx, outcome, res)
	return res, nil
}

// ClearSession drops the selection and result, erases the snapshot and
// returns to idle. A comparison still running will discard its result.
func (c *Controller) ClearSession(ctx context.Context) View {
	c.mu.Lock()
	c.state = selection.State{}
	c.phase = PhaseIdle
	c.errMsg = ""
	c.generation++

	if c.store != nil {
		if err := c.store.Delete(ctx, selection.StorageKey(c.kind)); err != nil {
			c.logger.Error().Err(err).Msg("failed to delete snapshot")
		}
	}
	v := c.viewLocked()
	c.mu.Unlock()

	c.events.PublishSessionCleared(ctx, c.kind, httputil.GetUsername(ctx))
	return v
}

// Reconcile applies a fresh registry listing. Provided files whose storage
// URL is listed get the listing's resolved URL and path; the rest are kept
// as they are. If the provided set is empty but a result is held, the set is
// rebuilt from the result's filenames.
func (c *Controller) Reconcile(ctx context.Context, listing registry.Listing) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listing = listing.Filter(c.kind)
	if !c.hydrated || len(c.listing.Provided) == 0 {
		return c.viewLocked()
	}

	changed := false
	if len(c.state.Provided) > 0 {
		for i, f := range c.state.Provided {
			fresh, ok := c.listing.FindProvided(f.StorageURL)
			if !ok {
				continue
			}
			if fresh.ResolvedURL != f.ResolvedURL || fresh.Path != f.Path {
				c.state.Provided[i].ResolvedURL = fresh.ResolvedURL
				c.state.Provided[i].Path = fresh.Path
				changed = true
			}
		}
	} else if c.state.Result != nil {
		if rebuilt := reconstruct(c.listing.Provided, c.state.Result.Filenames()); len(rebuilt) > 0 {
			c.state.SetProvided(rebuilt)
			changed = true
			c.logger.Info().Int("provided", len(c.state.Provided)).Msg("provided files rebuilt from result")
		}
	}

	if changed {
		c.persistLocked(ctx)
	}
	return c.viewLocked()
}

// reconstruct picks the registry files a result's filenames refer to: an
// exact name match, or a name containing the part of the filename before
// its first "-". Registry order is kept.
func reconstruct(available []registry.FileDescriptor, filenames []string) []registry.FileDescriptor {
	var out []registry.FileDescriptor
	for _, f := range available {
		for _, fn := range filenames {
			prefix, _, _ := strings.Cut(fn, "-")
			if f.Name == fn || (prefix != "" && strings.Contains(f.Name, prefix)) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// settle moves to the phase a selection change leads to
func (c *Controller) settle() {
	if c.phase == PhaseComparing {
		return
	}
	if c.state.Reference != nil && len(c.state.Provided) > 0 {
		c.phase = PhaseReady
		return
	}
	c.phase = PhaseIdle
}

// restingPhase is the phase implied by the state alone
func (c *Controller) restingPhase() Phase {
	if c.state.Result != nil {
		return PhaseSucceeded
	}
	if c.state.Reference != nil && len(c.state.Provided) > 0 {
		return PhaseReady
	}
	return PhaseIdle
}

// persistLocked writes the full snapshot. Nothing is written before
// hydration so an empty startup state cannot overwrite a saved one.
func (c *Controller) persistLocked(ctx context.Context) {
	if !c.hydrated || c.store == nil {
		return
	}

	data, err := selection.Encode(selection.NewSnapshot(c.kind, c.state, c.now()))
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode snapshot")
		return
	}
	if err := c.store.Set(ctx, selection.StorageKey(c.kind), data); err != nil {
		c.logger.Error().Err(err).Msg("failed to write snapshot")
	}
}

// fetchURL is where a file's bytes are downloaded from
func fetchURL(f registry.FileDescriptor) string {
	if f.ResolvedURL != "" {
		return f.ResolvedURL
	}
	return f.StorageURL
}

func findFile(files []registry.FileDescriptor, url string) (registry.FileDescriptor, bool) {
	for _, f := range files {
		if f.StorageURL == url {
			return f, true
		}
	}
	return registry.FileDescriptor{}, false
}

func nonNil(files []registry.FileDescriptor) []registry.FileDescriptor {
	if files == nil {
		return []registry.FileDescriptor{}
	}
	return files
}
