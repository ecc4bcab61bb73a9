package scans

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
	"github.com/bryanwahyu/sentinelai/internal/logger"
)

// State of a scanner session
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingInput State = "awaiting_input"
	StateValidating    State = "validating"
	StateInFlight      State = "in_flight"
	StateResultReady   State = "result_ready"
	StateErrored       State = "errored"
)

// Analyzer is the gateway as seen by the orchestrator. It must always return
// a well-formed result.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) analysis.Result
}

// Clock abstraction supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Deps are shared by every orchestrator of a process. Archive and Alerter are
// optional.
type Deps struct {
	Analyzer Analyzer
	Clock    Clock
	Archive  domain.Archive
	Alerter  domain.Alerter
	Logger   logrus.FieldLogger
}

// Orchestrator drives one scanner instance: modality selection, validation,
// a single gateway call per submit and history recording.
// Orchestrator is safe for concurrent use; at most one scan is in flight.
type Orchestrator struct {
	id   string
	deps Deps
	log  *logrus.Entry

	history *History

	mu       sync.Mutex
	state    State
	modality analysis.Modality
	input    Input
	last     *domain.HistoryItem
	errMsg   string
	lastUsed time.Time
}

func NewOrchestrator(id string, deps Deps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &Orchestrator{
		id:       id,
		deps:     deps,
		log:      logger.Component(deps.Logger, "orchestrator").WithField("session", id),
		history:  NewHistory(),
		state:    StateIdle,
		lastUsed: deps.Clock.Now(),
	}
}

func (o *Orchestrator) ID() string { return o.id }

// History is the read accessor for this session's scans.
func (o *Orchestrator) History() *History { return o.history }

// Snapshot is a consistent view of the session for display.
type Snapshot struct {
	ID           string              `json:"id"`
	State        State               `json:"state"`
	Modality     analysis.Modality   `json:"modality,omitempty"`
	Error        string              `json:"error,omitempty"`
	Result       *domain.HistoryItem `json:"result,omitempty"`
	HistoryCount int                 `json:"historyCount"`
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		ID:           o.id,
		State:        o.state,
		Modality:     o.modality,
		Error:        o.errMsg,
		Result:       o.last,
		HistoryCount: o.history.Len(),
	}
}

// SelectModality clears pending input, result and error.
func (o *Orchestrator) SelectModality(m analysis.Modality) error {
	m, err := analysis.ParseModality(string(m))
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateInFlight {
		return ErrScanInFlight
	}
	o.modality = m
	o.input = Input{}
	o.last = nil
	o.errMsg = ""
	o.state = StateAwaitingInput
	o.touch()
	return nil
}

// SetInput replaces the pending input and clears a stale validation message.
func (o *Orchestrator) SetInput(in Input) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateInFlight {
		return ErrScanInFlight
	}
	if o.modality == "" {
		return ErrNoModality
	}
	o.input = in
	o.errMsg = ""
	o.touch()
	return nil
}

// Reset goes back to no modality; history is kept.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateInFlight {
		return ErrScanInFlight
	}
	o.modality = ""
	o.input = Input{}
	o.last = nil
	o.errMsg = ""
	o.state = StateIdle
	o.touch()
	return nil
}

// Submit validates the pending input and runs exactly one analysis. A second
// Submit while the first is running returns ErrScanInFlight. The gateway call
// is not canceled when ctx is.
func (o *Orchestrator) Submit(ctx context.Context) (*domain.HistoryItem, error) {
	o.mu.Lock()
	if o.state == StateInFlight {
		o.mu.Unlock()
		return nil, ErrScanInFlight
	}
	if o.modality == "" {
		o.mu.Unlock()
		return nil, ErrNoModality
	}
	o.state = StateValidating
	req, subject, sender, verr := buildRequest(o.modality, o.input)
	if verr != nil {
		o.errMsg = verr.Message
		o.state = StateAwaitingInput
		o.mu.Unlock()
		return nil, verr
	}
	o.state = StateInFlight
	o.errMsg = ""
	o.last = nil
	o.touch()
	o.mu.Unlock()

	// jalanin sampai selesai walau client disconnect
	callCtx := context.WithoutCancel(ctx)
	result, err := o.analyze(callCtx, req)

	o.mu.Lock()
	if err != nil {
		o.state = StateErrored
		o.errMsg = "Scan failed. Please try again."
		o.touch()
		o.mu.Unlock()
		o.log.WithError(err).Error("scan aborted")
		return nil, err
	}
	item := domain.HistoryItem{
		ID:        domain.ItemID(uuid.New().String()),
		SessionID: o.id,
		Timestamp: o.deps.Clock.Now(),
		Subject:   subject,
		Sender:    sender,
		Type:      req.Modality,
		Result:    result,
	}
	o.history.Append(item)
	o.last = &item
	o.state = StateResultReady
	o.touch()
	o.mu.Unlock()

	o.afterAppend(callCtx, &item)
	return &item, nil
}

func (o *Orchestrator) analyze(ctx context.Context, req analysis.Request) (res analysis.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrGatewayPanic, r)
		}
	}()
	return o.deps.Analyzer.Analyze(ctx, req), nil
}

func (o *Orchestrator) afterAppend(ctx context.Context, item *domain.HistoryItem) {
	entry := o.log.WithFields(logrus.Fields{"item": item.ID, "type": item.Type})
	if o.deps.Archive != nil {
		if err := o.deps.Archive.Save(ctx, item); err != nil {
			entry.WithError(err).Warn("archive save failed")
		}
	}
	if o.deps.Alerter != nil && item.Result.RiskLevel == analysis.RiskMalicious {
		if err := o.deps.Alerter.Alert(ctx, item); err != nil {
			entry.WithError(err).Warn("alert failed")
		}
	}
}

// must hold mu
func (o *Orchestrator) touch() { o.lastUsed = o.deps.Clock.Now() }

// idleSince reports the last activity time and whether a scan is running.
func (o *Orchestrator) idleSince() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastUsed, o.state == StateInFlight
}
