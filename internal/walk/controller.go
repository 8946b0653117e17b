package walk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/marcheroute/marcheroute/internal/maproom"
	"github.com/marcheroute/marcheroute/internal/overlay"
	"github.com/marcheroute/marcheroute/internal/plan"
	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"go.uber.org/zap"
)

// Status is the walk lifecycle position.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusLoading      Status = "loading"
	StatusPlanFetched  Status = "plan_fetched"
	StatusSummarized   Status = "summarized"
	StatusOverlayDrawn Status = "overlay_drawn"
	StatusError        Status = "error"
)

// State is the view state of one walk, as returned to the page.
type State struct {
	ID      string     `json:"id"`
	City    string     `json:"city,omitempty"`
	Status  Status     `json:"status"`
	Loading bool       `json:"loading"`
	Plan    *plan.Plan `json:"plan,omitempty"`
	// Failed is the error marker that replaces the plan after any failure.
	Failed       bool   `json:"failed,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Seq          uint64 `json:"seq"`
}

// Gateway is the planner backend contract the controller depends on.
type Gateway interface {
	RequestPlan(ctx context.Context, city string, durationMinutes int) (*plan.Plan, error)
	RequestSummary(ctx context.Context, prompt string) (string, error)
}

// Options tunes the controller.
type Options struct {
	// DurationMinutes is sent with every plan request.
	DurationMinutes int
	// OverlayID is the fixed source/layer id used for the route line.
	OverlayID string
	// FitPadding is the pixel padding around the fitted route.
	FitPadding int
}

type walkEntry struct {
	state      State
	seqCounter uint64
}

// Controller drives the generate-route sequence for each walk: plan request,
// summary request, then overlay draw. Each invocation gets a sequence
// number; once a newer invocation starts on the same walk, results of the
// older one are discarded.
type Controller struct {
	mu      sync.Mutex
	gateway Gateway
	maps    *maproom.Manager
	opts    Options
	walks   map[string]*walkEntry
}

// NewController wires the view controller.
func NewController(gateway Gateway, maps *maproom.Manager, opts Options) *Controller {
	if opts.DurationMinutes <= 0 {
		opts.DurationMinutes = plan.DefaultDurationMinutes
	}
	if opts.OverlayID == "" {
		opts.OverlayID = "walk-route"
	}
	if opts.FitPadding <= 0 {
		opts.FitPadding = 40
	}

	return &Controller{
		gateway: gateway,
		maps:    maps,
		opts:    opts,
		walks:   make(map[string]*walkEntry),
	}
}

// Create starts a new walk with its own map session and returns the initial
// state.
func (c *Controller) Create() State {
	id := uuid.New().String()

	c.mu.Lock()
	entry := &walkEntry{state: State{ID: id, Status: StatusIdle}}
	c.walks[id] = entry
	snapshot := entry.state
	c.mu.Unlock()

	c.maps.Ensure(id)
	return snapshot
}

// Get returns the current state of a walk.
func (c *Controller) Get(walkID string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.walks[walkID]
	if !ok {
		return State{}, common.NewNotFoundError("walk not found", nil)
	}
	return entry.state, nil
}

// Release tears the walk down and frees its map session.
func (c *Controller) Release(walkID string) {
	c.mu.Lock()
	_, ok := c.walks[walkID]
	delete(c.walks, walkID)
	c.mu.Unlock()

	if ok {
		c.maps.Release(walkID)
	}
}

// Generate runs the full sequence for city on the given walk. It blocks
// until the sequence finishes or is superseded; the returned state is the
// walk state as of this invocation's end.
func (c *Controller) Generate(ctx context.Context, walkID, city string) (State, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return State{}, common.NewValidationError("city is required")
	}

	seq, err := c.begin(walkID, city)
	if err != nil {
		return State{}, err
	}

	walkPlan, err := c.gateway.RequestPlan(ctx, city, c.opts.DurationMinutes)
	if err != nil {
		logger.WarnContext(ctx, "Plan request failed",
			zap.String("walk_id", walkID),
			zap.String("city", city),
			zap.Error(err),
		)
		return c.fail(walkID, seq, err)
	}

	if !c.commitPlan(walkID, seq, walkPlan) {
		return c.currentState(walkID)
	}

	summary, err := c.gateway.RequestSummary(ctx, BuildPrompt(city, c.opts.DurationMinutes, walkPlan))
	if err != nil {
		logger.WarnContext(ctx, "Summary request failed",
			zap.String("walk_id", walkID),
			zap.String("city", city),
			zap.Error(err),
		)
		return c.fail(walkID, seq, err)
	}

	if !c.commitSummary(walkID, seq, summary) {
		return c.currentState(walkID)
	}

	// Overlay drawing waits until the summary is in, so the page updates
	// text and map together.
	if walkPlan.HasPolyline() {
		c.draw(ctx, walkID, seq, walkPlan.Route.Polyline)
	}

	return c.currentState(walkID)
}

// begin registers a new invocation and moves the walk into loading. The
// returned sequence number identifies this invocation; a later call on the
// same walk supersedes it.
func (c *Controller) begin(walkID, city string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.walks[walkID]
	if !ok {
		return 0, common.NewNotFoundError("walk not found", nil)
	}

	entry.seqCounter++
	entry.state = State{
		ID:      walkID,
		City:    city,
		Status:  StatusLoading,
		Loading: true,
		Seq:     entry.seqCounter,
	}
	return entry.seqCounter, nil
}

// commitPlan stores the plan result. Returns false when seq was superseded,
// in which case nothing is written.
func (c *Controller) commitPlan(walkID string, seq uint64, walkPlan *plan.Plan) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.walks[walkID]
	if !ok || entry.seqCounter != seq {
		return false
	}

	entry.state.Plan = walkPlan
	entry.state.Status = StatusPlanFetched
	return true
}

// commitSummary stores the summary. Returns false when seq was superseded.
func (c *Controller) commitSummary(walkID string, seq uint64, summary string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.walks[walkID]
	if !ok || entry.seqCounter != seq {
		return false
	}

	entry.state.Summary = summary
	entry.state.Status = StatusSummarized
	entry.state.Loading = false
	return true
}

// fail replaces the plan with the error marker and clears loading, unless
// seq was superseded.
func (c *Controller) fail(walkID string, seq uint64, cause error) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.walks[walkID]
	if !ok {
		return State{}, common.NewNotFoundError("walk not found", nil)
	}
	if entry.seqCounter != seq {
		return entry.state, nil
	}

	entry.state.Plan = nil
	entry.state.Failed = true
	entry.state.ErrorMessage = errorMessage(cause)
	entry.state.Status = StatusError
	entry.state.Loading = false
	return entry.state, nil
}

// draw renders the route overlay and fits the camera, unless seq was
// superseded between the summary commit and now.
func (c *Controller) draw(ctx context.Context, walkID string, seq uint64, polyline []plan.LatLon) {
	feature, err := overlay.LineString(polyline)
	if err != nil {
		logger.WarnContext(ctx, "Route overlay skipped",
			zap.String("walk_id", walkID),
			zap.Error(err),
		)
		return
	}

	bbox, err := overlay.Bounds(polyline)
	if err != nil {
		return
	}

	session, ok := c.maps.Lookup(walkID)
	if !ok {
		return
	}

	// Check and draw under one lock; a newer invocation begins under the
	// same lock, so a superseded draw can never reach the map.
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.walks[walkID]
	if !ok || entry.seqCounter != seq {
		return
	}

	session.AddOverlay(c.opts.OverlayID, feature)
	session.FitBounds(bbox, c.opts.FitPadding)
	entry.state.Status = StatusOverlayDrawn
}

func (c *Controller) currentState(walkID string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.walks[walkID]
	if !ok {
		return State{}, common.NewNotFoundError("walk not found", nil)
	}
	return entry.state, nil
}

func errorMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "failed"
}

// BuildPrompt renders the narrative request sent to the generation endpoint.
func BuildPrompt(city string, durationMinutes int, walkPlan *plan.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest a %d-minute walking tour of %s.", durationMinutes, city)

	if walkPlan != nil && len(walkPlan.Stops) > 0 {
		names := make([]string, 0, len(walkPlan.Stops))
		for _, stop := range walkPlan.Stops {
			names = append(names, stop.Name)
		}
		fmt.Fprintf(&b, " The route passes these places: %s.", strings.Join(names, ", "))
	}

	b.WriteString(" Describe the walk in a short, friendly paragraph.")
	return b.String()
}
