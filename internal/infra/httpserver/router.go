package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	appanalysis "github.com/bryanwahyu/sentinelai/internal/application/analysis"
	appscans "github.com/bryanwahyu/sentinelai/internal/application/scans"
	domai "github.com/bryanwahyu/sentinelai/internal/domain/ai"
	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
	"github.com/bryanwahyu/sentinelai/internal/infra/report"
	"github.com/bryanwahyu/sentinelai/internal/infra/textenc"
	"github.com/bryanwahyu/sentinelai/internal/logger"
	"github.com/bryanwahyu/sentinelai/internal/middleware"
)

// maxBodyBytes covers a 5MB image after base64 expansion plus JSON framing.
const maxBodyBytes = 8 << 20

// Advisor answers free-form security questions and site navigation questions.
type Advisor interface {
	AskAdvisor(ctx context.Context, question string) string
	AskSiteGuide(ctx context.Context, question string) string
}

// ReportSigner signs exported report documents.
type ReportSigner interface {
	Sign(doc []byte) ([]byte, error)
}

// Options wires the router. Archive, Reports, Signer and Checkers are optional.
type Options struct {
	Sessions    *appscans.Sessions
	Advisor     Advisor
	Archive     domain.Archive
	Reports     domain.ReportStore
	Signer      ReportSigner
	Checkers    map[string]middleware.HealthChecker
	APIKeys     *middleware.Keys
	CORSOrigins []string
	Limiter     *middleware.RateLimiter
	Logger      logrus.FieldLogger
}

type Router struct {
	sessions *appscans.Sessions
	advisor  Advisor
	archive  domain.Archive
	reports  domain.ReportStore
	signer   ReportSigner
	log      *logrus.Entry
}

func NewRouter(opts Options) http.Handler {
	r := &Router{
		sessions: opts.Sessions,
		advisor:  opts.Advisor,
		archive:  opts.Archive,
		reports:  opts.Reports,
		signer:   opts.Signer,
		log:      logger.Component(opts.Logger, "http"),
	}
	mux := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(r.log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	keys := opts.APIKeys
	if keys == nil {
		keys = middleware.NewKeys(nil)
	}
	mux.Use(middleware.APIKeyAuth(keys))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimit(opts.Limiter))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.Checkers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/presets", r.wrap(r.handlePresets))
		rt.Post("/advisor", r.wrap(r.handleAdvisor))
		rt.Post("/guide", r.wrap(r.handleGuide))

		rt.Post("/sessions", r.wrap(r.handleCreateSession))
		rt.Route("/sessions/{id}", func(st chi.Router) {
			st.Get("/", r.wrap(r.handleGetSession))
			st.Delete("/", r.wrap(r.handleDeleteSession))
			st.Put("/modality", r.wrap(r.handleSelectModality))
			st.Post("/scan", r.wrap(r.handleScan))
			st.Post("/reset", r.wrap(r.handleReset))
			st.Get("/history", r.wrap(r.handleHistory))
			st.Post("/history/{itemID}/report", r.wrap(r.handleReport))
		})

		rt.Get("/archive/latest", r.wrap(r.handleArchiveLatest))
		rt.Get("/archive/summary", r.wrap(r.handleArchiveSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries an explicit status for request-shape problems.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{status: http.StatusBadRequest, msg: msg} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var (
			verr *appscans.ValidationError
			herr *httpError
		)
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusUnprocessableEntity, verr.Message)
		case errors.As(err, &herr):
			writeError(w, herr.status, herr.msg)
		case errors.Is(err, appscans.ErrSessionNotFound), errors.Is(err, appscans.ErrItemNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, appscans.ErrScanInFlight), errors.Is(err, appscans.ErrNoModality):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, analysis.ErrInvalidModality):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			r.log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return &httpError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return badRequest("invalid JSON body")
	}
	return nil
}

func (r *Router) session(req *http.Request) (*appscans.Orchestrator, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return nil, appscans.ErrSessionNotFound
	}
	return r.sessions.Get(id)
}

// GET /v1/presets
func (r *Router) handlePresets(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, analysis.DefaultPresets)
}

// POST /v1/advisor
// Body: {"question": "..."}
func (r *Router) handleAdvisor(w http.ResponseWriter, req *http.Request) error {
	q, err := decodeQuestion(w, req)
	if err != nil {
		return err
	}

	middleware.IncrementAdvisor()
	answer := r.advisor.AskAdvisor(req.Context(), q)
	if answer == appanalysis.AdvisorFallback {
		middleware.IncrementAdvisorFailed()
	}
	return writeJSON(w, http.StatusOK, map[string]string{
		"answer":  answer,
		"display": analysis.StripMarkdown(answer),
	})
}

// POST /v1/guide
// Body: {"question": "..."}
func (r *Router) handleGuide(w http.ResponseWriter, req *http.Request) error {
	q, err := decodeQuestion(w, req)
	if err != nil {
		return err
	}

	middleware.IncrementGuide()
	answer := r.advisor.AskSiteGuide(req.Context(), q)
	if answer == appanalysis.GuideFallback {
		middleware.IncrementGuideFailed()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func decodeQuestion(w http.ResponseWriter, req *http.Request) (string, error) {
	var body struct {
		Question string `json:"question"`
	}
	if err := decode(w, req, &body); err != nil {
		return "", err
	}
	q := middleware.SanitizeString(body.Question)
	if q == "" {
		return "", &appscans.ValidationError{Field: "question", Message: "Please enter a question."}
	}
	return q, nil
}

// POST /v1/sessions
// Body (optional): {"modality": "url"}
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Modality string `json:"modality"`
	}
	if req.ContentLength != 0 {
		if err := decode(w, req, &body); err != nil {
			return err
		}
	}
	var m analysis.Modality
	if body.Modality != "" {
		parsed, err := analysis.ParseModality(body.Modality)
		if err != nil {
			return err
		}
		m = parsed
	}

	o := r.sessions.Create()
	if m != "" {
		if err := o.SelectModality(m); err != nil {
			return err
		}
	}
	return writeJSON(w, http.StatusCreated, o.Snapshot())
}

// GET /v1/sessions/{id}
func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) error {
	o, err := r.session(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, o.Snapshot())
}

// DELETE /v1/sessions/{id}
func (r *Router) handleDeleteSession(w http.ResponseWriter, req *http.Request) error {
	if _, err := r.session(req); err != nil {
		return err
	}
	if err := r.sessions.Delete(chi.URLParam(req, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// PUT /v1/sessions/{id}/modality
// Body: {"modality": "text|url|apikey|image|sms|qr|file"}
func (r *Router) handleSelectModality(w http.ResponseWriter, req *http.Request) error {
	o, err := r.session(req)
	if err != nil {
		return err
	}
	var body struct {
		Modality string `json:"modality"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if err := o.SelectModality(analysis.Modality(body.Modality)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, o.Snapshot())
}

// POST /v1/sessions/{id}/scan
// Body: {"modality"?: "...", "text"|"url"|"apikey"|"image"|"sms"|"fileName"+"fileContent": "..."}
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) error {
	o, err := r.session(req)
	if err != nil {
		return err
	}
	var body struct {
		Modality   string `json:"modality"`
		FileBase64 string `json:"fileBase64"`
		appscans.Input
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	body.Input.FileName = middleware.SanitizeFileName(body.Input.FileName)
	if body.FileBase64 != "" {
		content, err := fileText(body.FileBase64)
		if err != nil {
			return err
		}
		body.Input.FileContent = content
	}

	if body.Modality != "" {
		m, err := analysis.ParseModality(body.Modality)
		if err != nil {
			return err
		}
		if o.Snapshot().Modality != m {
			if err := o.SelectModality(m); err != nil {
				middleware.IncrementScansRejected()
				return err
			}
		}
	}
	if err := o.SetInput(body.Input); err != nil {
		middleware.IncrementScansRejected()
		return err
	}

	middleware.IncrementScansRunning()
	item, err := o.Submit(req.Context())
	middleware.DecrementScansRunning()
	if err != nil {
		middleware.IncrementScansRejected()
		return err
	}

	middleware.IncrementScans()
	if item.Result.Degraded() {
		middleware.IncrementScansDegraded()
	}
	if item.Result.RiskLevel == analysis.RiskMalicious {
		middleware.IncrementScansMalicious()
	}
	return writeJSON(w, http.StatusOK, item)
}

// POST /v1/sessions/{id}/reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	o, err := r.session(req)
	if err != nil {
		return err
	}
	if err := o.Reset(); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, o.Snapshot())
}

// GET /v1/sessions/{id}/history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	o, err := r.session(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, o.History().Items())
}

// POST /v1/sessions/{id}/history/{itemID}/report?format=markdown|json
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	o, err := r.session(req)
	if err != nil {
		return err
	}
	itemID := chi.URLParam(req, "itemID")
	if err := middleware.ValidateItemID(itemID); err != nil {
		return appscans.ErrItemNotFound
	}
	item, ok := o.History().Get(domain.ItemID(itemID))
	if !ok {
		return appscans.ErrItemNotFound
	}

	format, err := report.ParseFormat(req.URL.Query().Get("format"))
	if err != nil {
		return badRequest(err.Error())
	}
	doc, err := report.Render(item, format)
	if err != nil {
		return err
	}
	middleware.IncrementReports()

	var sig []byte
	if r.signer != nil {
		if sig, err = r.signer.Sign(doc); err != nil {
			return err
		}
	}

	if r.reports == nil {
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+itemID+"."+format.Ext()+`"`)
		if sig != nil {
			w.Header().Set("X-Report-Signature", base64.StdEncoding.EncodeToString(sig))
		}
		_, err := w.Write(doc)
		return err
	}

	key := report.Key(item, format)
	url, err := r.reports.PutReport(req.Context(), key, format.ContentType(), doc)
	if err != nil {
		return err
	}
	resp := map[string]string{"key": key, "url": url}
	if sig != nil {
		sigURL, err := r.reports.PutReport(req.Context(), key+".asc", "application/pgp-signature", sig)
		if err != nil {
			return err
		}
		resp["signatureUrl"] = sigURL
	}
	return writeJSON(w, http.StatusCreated, resp)
}

// GET /v1/archive/latest?limit=20
func (r *Router) handleArchiveLatest(w http.ResponseWriter, req *http.Request) error {
	if r.archive == nil {
		return &httpError{status: http.StatusNotImplemented, msg: "archive not configured"}
	}
	limit, err := intQuery(req, "limit")
	if err != nil {
		return err
	}
	list, err := r.archive.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.HistoryItem{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/archive/summary?days=7
func (r *Router) handleArchiveSummary(w http.ResponseWriter, req *http.Request) error {
	if r.archive == nil {
		return &httpError{status: http.StatusNotImplemented, msg: "archive not configured"}
	}
	days, err := intQuery(req, "days")
	if err != nil {
		return err
	}
	summary, err := r.archive.Summary(req.Context(), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}

// fileText decodes an uploaded file sent as base64.
func fileText(b64 string) (string, error) {
	unreadable := &appscans.ValidationError{Field: "fileContent", Message: "Please upload a file with readable content."}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil || textenc.Binary(raw) {
		return "", unreadable
	}
	text, err := textenc.Decode(raw)
	if err != nil {
		return "", unreadable
	}
	return text, nil
}

func intQuery(req *http.Request, name string) (int, error) {
	v := strings.TrimSpace(req.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest(name + " must be an integer")
	}
	return n, nil
}
