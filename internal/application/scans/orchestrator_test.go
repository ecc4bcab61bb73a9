package scans

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
	"github.com/bryanwahyu/sentinelai/internal/logger"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req analysis.Request) analysis.Result {
	args := m.Called(ctx, req)
	return args.Get(0).(analysis.Result)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Save(ctx context.Context, item *domain.HistoryItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockArchive) Latest(ctx context.Context, limit int) ([]*domain.HistoryItem, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*domain.HistoryItem), args.Error(1)
}

func (m *MockArchive) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	args := m.Called(ctx, sinceDays)
	return args.Get(0).(domain.Summary), args.Error(1)
}

type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) Alert(ctx context.Context, item *domain.HistoryItem) error {
	return m.Called(ctx, item).Error(0)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func safeResult() analysis.Result {
	return analysis.Normalize(map[string]any{"riskScore": 5, "riskLevel": "SAFE"})
}

func newTestOrchestrator(a Analyzer) *Orchestrator {
	return NewOrchestrator("s1", Deps{Analyzer: a, Clock: &fixedClock{now: testNow}, Logger: logger.Discard()})
}

func TestSubmitRejectsEmptyURLWithoutGatewayCall(t *testing.T) {
	m := new(MockAnalyzer)
	o := newTestOrchestrator(m)

	require.NoError(t, o.SelectModality(analysis.ModalityURL))
	require.NoError(t, o.SetInput(Input{URL: "   "}))

	item, err := o.Submit(context.Background())
	assert.Nil(t, item)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)
	assert.NotEmpty(t, verr.Message)

	snap := o.Snapshot()
	assert.Equal(t, StateAwaitingInput, snap.State)
	assert.Equal(t, "Please enter a URL to inspect.", snap.Error)
	assert.Equal(t, 0, o.History().Len())
	m.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestSubmitValidationPerModality(t *testing.T) {
	tests := []struct {
		modality analysis.Modality
		field    string
	}{
		{analysis.ModalityText, "text"},
		{analysis.ModalityURL, "url"},
		{analysis.ModalityAPIKey, "apikey"},
		{analysis.ModalityImage, "image"},
		{analysis.ModalitySMS, "sms"},
		{analysis.ModalityQR, "image"},
		{analysis.ModalityFile, "fileContent"},
	}
	for _, tt := range tests {
		t.Run(string(tt.modality), func(t *testing.T) {
			m := new(MockAnalyzer)
			o := newTestOrchestrator(m)
			require.NoError(t, o.SelectModality(tt.modality))

			_, err := o.Submit(context.Background())
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			m.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitWithoutModality(t *testing.T) {
	o := newTestOrchestrator(new(MockAnalyzer))
	_, err := o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoModality)
	assert.ErrorIs(t, o.SetInput(Input{URL: "x"}), ErrNoModality)
}

func TestSubmitTextParsesHeadersAndAppends(t *testing.T) {
	m := new(MockAnalyzer)
	m.On("Analyze", mock.Anything, mock.MatchedBy(func(r analysis.Request) bool {
		return r.Modality == analysis.ModalityText &&
			r.Subject == "ACTION REQUIRED: Your Microsoft 365 Password Expires Today" &&
			r.Sender == "Microsoft Security <security@ms-auth-portal-update.net>" &&
			r.Body == analysis.DefaultPresets.Email
	})).Return(analysis.Fallback(analysis.ModalityText)).Once()

	o := newTestOrchestrator(m)
	require.NoError(t, o.SelectModality(analysis.ModalityText))
	require.NoError(t, o.SetInput(Input{Text: analysis.DefaultPresets.Email}))

	item, err := o.Submit(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, testNow, item.Timestamp)
	assert.Equal(t, analysis.ModalityText, item.Type)
	assert.Equal(t, 50, item.Result.RiskScore)
	assert.Equal(t, analysis.RiskSuspicious, item.Result.RiskLevel)
	assert.Equal(t, []string{"Analysis Error"}, item.Result.Threats.NLP)

	snap := o.Snapshot()
	assert.Equal(t, StateResultReady, snap.State)
	assert.Equal(t, item.ID, snap.Result.ID)
	assert.Equal(t, 1, o.History().Len())
	m.AssertExpectations(t)
}

func TestSubmitMetadataPerModality(t *testing.T) {
	tests := []struct {
		modality analysis.Modality
		input    Input
		subject  string
		sender   string
	}{
		{analysis.ModalityURL, Input{URL: " https://x.top "}, "URL Inspection", "https://x.top"},
		{analysis.ModalityAPIKey, Input{Key: "AKIA1"}, "Credential Audit", "Source Code Scan"},
		{analysis.ModalitySMS, Input{SMS: "pay"}, "SMS Scan", "Mobile Message"},
		{analysis.ModalityQR, Input{Image: "data:image/png;base64,aGVsbG8="}, "QR Code Scan", "QR Decoder"},
		{analysis.ModalityImage, Input{Image: "aGVsbG8="}, "Image Scan", "Visual Analysis"},
		{analysis.ModalityFile, Input{FileName: "a.eml", FileContent: "x"}, "File Audit", "a.eml"},
		{analysis.ModalityText, Input{Text: "hello"}, "Unknown Subject", "Unknown Sender"},
	}
	for _, tt := range tests {
		t.Run(string(tt.modality), func(t *testing.T) {
			m := new(MockAnalyzer)
			m.On("Analyze", mock.Anything, mock.Anything).Return(safeResult())
			o := newTestOrchestrator(m)
			require.NoError(t, o.SelectModality(tt.modality))
			require.NoError(t, o.SetInput(tt.input))

			item, err := o.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.subject, item.Subject)
			assert.Equal(t, tt.sender, item.Sender)
		})
	}
}

func TestImageDataURLIsSplit(t *testing.T) {
	m := new(MockAnalyzer)
	m.On("Analyze", mock.Anything, mock.MatchedBy(func(r analysis.Request) bool {
		return r.ImageBase64 == "aGVsbG8=" && r.ImageMIME == "image/png"
	})).Return(safeResult())

	o := newTestOrchestrator(m)
	require.NoError(t, o.SelectModality(analysis.ModalityImage))
	require.NoError(t, o.SetInput(Input{Image: "data:image/png;base64,aGVsbG8="}))
	_, err := o.Submit(context.Background())
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestOversizedImageRejected(t *testing.T) {
	m := new(MockAnalyzer)
	o := newTestOrchestrator(m)
	require.NoError(t, o.SelectModality(analysis.ModalityImage))

	big := make([]byte, (MaxImageBytes/3+2)*4)
	for i := range big {
		big[i] = 'A'
	}
	require.NoError(t, o.SetInput(Input{Image: string(big)}))

	_, err := o.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "under 5MB")
	m.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestImageSizeLimitBoundary(t *testing.T) {
	exact := base64.StdEncoding.EncodeToString(make([]byte, MaxImageBytes))
	_, _, _, verr := buildRequest(analysis.ModalityImage, Input{Image: exact})
	assert.Nil(t, verr)

	over := base64.StdEncoding.EncodeToString(make([]byte, MaxImageBytes+1))
	_, _, _, verr = buildRequest(analysis.ModalityImage, Input{Image: over})
	require.NotNil(t, verr)
	assert.Equal(t, "File size too large. Please upload an image under 5MB.", verr.Message)
}

type blockingAnalyzer struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, req analysis.Request) analysis.Result {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	close(b.started)
	<-b.release
	return safeResult()
}

func TestSubmitIsSingleFlight(t *testing.T) {
	b := &blockingAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	o := newTestOrchestrator(b)
	require.NoError(t, o.SelectModality(analysis.ModalityURL))
	require.NoError(t, o.SetInput(Input{URL: "https://x.top"}))

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background())
		done <- err
	}()
	<-b.started

	assert.Equal(t, StateInFlight, o.Snapshot().State)
	_, err := o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrScanInFlight)
	assert.ErrorIs(t, o.SelectModality(analysis.ModalityText), ErrScanInFlight)
	assert.ErrorIs(t, o.Reset(), ErrScanInFlight)

	close(b.release)
	require.NoError(t, <-done)

	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, o.History().Len())
}

func TestSubmitSurvivesCanceledContext(t *testing.T) {
	m := new(MockAnalyzer)
	m.On("Analyze", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).
		Return(safeResult())

	o := newTestOrchestrator(m)
	require.NoError(t, o.SelectModality(analysis.ModalitySMS))
	require.NoError(t, o.SetInput(Input{SMS: "hi"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, o.History().Len())
}

type panicAnalyzer struct{}

func (panicAnalyzer) Analyze(context.Context, analysis.Request) analysis.Result { panic("boom") }

func TestGatewayPanicMovesToErrored(t *testing.T) {
	o := newTestOrchestrator(panicAnalyzer{})
	require.NoError(t, o.SelectModality(analysis.ModalityURL))
	require.NoError(t, o.SetInput(Input{URL: "https://x.top"}))

	_, err := o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrGatewayPanic)
	snap := o.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.NotEmpty(t, snap.Error)
	assert.Equal(t, 0, o.History().Len())
}

func TestSelectModalityAndResetClearTransientState(t *testing.T) {
	m := new(MockAnalyzer)
	m.On("Analyze", mock.Anything, mock.Anything).Return(safeResult())
	o := newTestOrchestrator(m)

	require.NoError(t, o.SelectModality(analysis.ModalityURL))
	require.NoError(t, o.SetInput(Input{URL: "https://x.top"}))
	_, err := o.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, o.SelectModality(analysis.ModalityAPIKey))
	snap := o.Snapshot()
	assert.Equal(t, StateAwaitingInput, snap.State)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Error)

	// pending input was cleared
	_, err = o.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, o.Reset())
	snap = o.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Modality)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 1, o.History().Len())

	assert.Error(t, o.SelectModality("fax"))
}

func TestHooksRunAfterAppend(t *testing.T) {
	m := new(MockAnalyzer)
	malicious := analysis.Normalize(map[string]any{"riskScore": 95, "riskLevel": "MALICIOUS"})
	m.On("Analyze", mock.Anything, mock.Anything).Return(malicious)

	archive := new(MockArchive)
	archive.On("Save", mock.Anything, mock.AnythingOfType("*scans.HistoryItem")).Return(errors.New("db down"))
	alerter := new(MockAlerter)
	alerter.On("Alert", mock.Anything, mock.AnythingOfType("*scans.HistoryItem")).Return(nil)

	o := NewOrchestrator("s1", Deps{Analyzer: m, Archive: archive, Alerter: alerter, Logger: logger.Discard()})
	require.NoError(t, o.SelectModality(analysis.ModalityURL))
	require.NoError(t, o.SetInput(Input{URL: "https://x.top"}))

	item, err := o.Submit(context.Background())
	require.NoError(t, err, "archive failures are not surfaced")
	assert.Equal(t, analysis.RiskMalicious, item.Result.RiskLevel)
	archive.AssertNumberOfCalls(t, "Save", 1)
	alerter.AssertNumberOfCalls(t, "Alert", 1)
}

func TestAlerterSkipsNonMalicious(t *testing.T) {
	m := new(MockAnalyzer)
	m.On("Analyze", mock.Anything, mock.Anything).Return(safeResult())
	alerter := new(MockAlerter)

	o := NewOrchestrator("s1", Deps{Analyzer: m, Alerter: alerter, Logger: logger.Discard()})
	require.NoError(t, o.SelectModality(analysis.ModalitySMS))
	require.NoError(t, o.SetInput(Input{SMS: "hello"}))
	_, err := o.Submit(context.Background())
	require.NoError(t, err)
	alerter.AssertNotCalled(t, "Alert", mock.Anything, mock.Anything)
}
