// Package web serves the headline form and renders analysis reports.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"Auditorium/internal/domain"
	"Auditorium/internal/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	modelUnavailableMessage = "Model not loaded. Contact the administrator."
	versionHint             = "Check that the libraries in this environment match the versions the model was exported with."
	maxFormBytes            = 64 << 10
)

// Analyzer is the use case the handler drives.
type Analyzer interface {
	Analyze(ctx context.Context, in domain.SubmissionInput) (usecase.Report, error)
}

// Handler routes the web surface.
type Handler struct {
	analyzer Analyzer
	loc      *time.Location
	log      *slog.Logger
	page     *template.Template
	now      func() time.Time
	mux      *http.ServeMux
}

// NewHandler parses the embedded templates and registers routes.
func NewHandler(analyzer Analyzer, loc *time.Location, log *slog.Logger) (*Handler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	page, err := template.New("page.html").Funcs(template.FuncMap{
		"percent":  func(p float64) string { return fmt.Sprintf("%.1f%%", p*100) },
		"markdown": renderMarkdown,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	h := &Handler{analyzer: analyzer, loc: loc, log: log, page: page, now: time.Now}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.form)
	mux.HandleFunc("POST /analyze", h.analyze)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	h.mux = mux
	return h, nil
}

// ServeHTTP tags the request with an ID and recovers from panics in the analysis flow.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)
	log := h.log.With("request_id", id, "method", r.Method, "path", r.URL.Path)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic while handling request", "panic", rec)
			h.render(w, log, http.StatusInternalServerError, pageData{
				Form:  h.defaultForm(),
				Needs: needOptions(),
				Error: fmt.Sprintf("%v: unexpected failure", domain.ErrProcessing),
				Hint:  versionHint,
			})
		}
	}()

	started := time.Now()
	h.mux.ServeHTTP(w, r.WithContext(withLogger(r.Context(), log)))
	log.Debug("request served", "elapsed", time.Since(started))
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	h.render(w, loggerFrom(r.Context(), h.log), http.StatusOK, pageData{Form: h.defaultForm(), Needs: needOptions()})
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context(), h.log)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, log, http.StatusBadRequest, pageData{Form: h.defaultForm(), Needs: needOptions(), Error: "Could not read the form."})
		return
	}

	form := formValues{
		Headline: r.PostForm.Get("headline"),
		UserNeed: r.PostForm.Get("user_need"),
		Date:     strings.TrimSpace(r.PostForm.Get("date")),
		Time:     strings.TrimSpace(r.PostForm.Get("time")),
	}
	data := pageData{Form: form, Needs: needOptions()}

	need, err := domain.ParseUserNeed(form.UserNeed)
	if err != nil {
		data.Error = "Choose one of the listed user needs."
		h.render(w, log, http.StatusUnprocessableEntity, data)
		return
	}
	data.Form.UserNeed = string(need)

	report, err := h.analyzer.Analyze(r.Context(), domain.SubmissionInput{
		Headline:    form.Headline,
		UserNeed:    need,
		PublishedAt: publishedAt(form.Date, form.Time),
	})

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		data.Error = validationMessage(verr)
		h.render(w, log, http.StatusUnprocessableEntity, data)
		return
	case errors.Is(err, domain.ErrModelUnavailable):
		log.Error("model unavailable", "error", err)
		data.Error = modelUnavailableMessage
		h.render(w, log, http.StatusServiceUnavailable, data)
		return
	case err != nil:
		log.Error("analysis failed", "error", err)
		data.Error = "Processing error: " + err.Error()
		data.Hint = versionHint
		h.render(w, log, http.StatusInternalServerError, data)
		return
	}

	log.Info("headline analyzed",
		"class", report.Prediction.Class,
		"confidence", report.Prediction.Confidence,
		"logged", report.Logged)
	data.Report = newReportView(report)
	h.render(w, log, http.StatusOK, data)
}

func (h *Handler) render(w http.ResponseWriter, log *slog.Logger, status int, data pageData) {
	var buf strings.Builder
	if err := h.page.ExecuteTemplate(&buf, "page.html", data); err != nil {
		log.Error("render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (h *Handler) defaultForm() formValues {
	now := h.now().In(h.loc)
	return formValues{
		UserNeed: string(domain.NeedInform),
		Date:     now.Format("2006-01-02"),
		Time:     now.Format("15:04"),
	}
}

// publishedAt joins the form fields as "YYYY-MM-DD HH:MM:SS".
func publishedAt(date, clock string) string {
	if len(clock) == len("15:04") {
		clock += ":00"
	}
	return strings.TrimSpace(date + " " + clock)
}

func validationMessage(err *domain.ValidationError) string {
	switch {
	case err.Field == "headline" && err.Reason == domain.ReasonEmpty:
		return "Type a headline."
	case err.Field == "headline" && err.Reason == domain.ReasonTooShort:
		return "Headline too short."
	}
	return "Invalid input: " + err.Error()
}

type ctxKey struct{}

func withLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return log
	}
	return fallback
}
