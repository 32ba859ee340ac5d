package web

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"Auditorium/internal/domain"
	"Auditorium/internal/usecase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAnalyzer struct {
	report usecase.Report
	err    error
	panic  bool
	got    []domain.SubmissionInput
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in domain.SubmissionInput) (usecase.Report, error) {
	f.got = append(f.got, in)
	if f.panic {
		panic("sklearn version mismatch")
	}
	return f.report, f.err
}

func sampleReport() usecase.Report {
	return usecase.Report{
		Prediction: domain.PredictionResult{
			Class:      domain.AudienceMedium,
			Confidence: 0.55,
			Probabilities: map[domain.AudienceClass]float64{
				domain.AudienceHigh: 0.25, domain.AudienceLow: 0.20, domain.AudienceMedium: 0.55,
			},
			Labels: []domain.AudienceClass{domain.AudienceHigh, domain.AudienceLow, domain.AudienceMedium},
		},
		Logged:   true,
		Findings: usecase.CheckHeadline("Will the new tax policy change anything?"),
		Advice:   domain.Advice{Text: "**SEO: 7/10**\n\n<script>alert(1)</script>"},
		References: []domain.ReferenceMatch{
			{Headline: "Nova política de impostos", UserNeed: "Informar", PublishedAt: "2024-01-10", Score: 0.91},
		},
		LanguageNote: "Headline looks like English; the model was trained on Portuguese headlines.",
	}
}

func newTestHandler(t *testing.T, analyzer Analyzer) *Handler {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	h, err := NewHandler(analyzer, loc, nil)
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2024, 5, 6, 15, 4, 0, 0, time.UTC) }
	return h
}

func postForm(h http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validForm() url.Values {
	return url.Values{
		"headline":  {"Will the new tax policy change anything?"},
		"user_need": {"inform"},
		"date":      {"2024-01-13"},
		"time":      {"10:00"},
	}
}

func TestFormDefaults(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &fakeAnalyzer{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="2024-05-06"`)
	assert.Contains(t, body, `value="12:04"`)
	assert.Contains(t, body, "Acompanhar assuntos em alta")
	assert.Equal(t, 6, strings.Count(body, "<option "))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &fakeAnalyzer{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAnalyzeRendersReport(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{report: sampleReport()}
	rec := postForm(newTestHandler(t, analyzer), validForm())

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, analyzer.got, 1)
	assert.Equal(t, domain.SubmissionInput{
		Headline:    "Will the new tax policy change anything?",
		UserNeed:    domain.NeedInform,
		PublishedAt: "2024-01-13 10:00:00",
	}, analyzer.got[0])

	body := rec.Body.String()
	assert.Contains(t, body, `class="class-orange">Medium`)
	assert.Contains(t, body, "55.0%")
	assert.Contains(t, body, "not confident")
	assert.Contains(t, body, "Too short for SEO (40 chars)")
	assert.Contains(t, body, "Question drives engagement")
	assert.Contains(t, body, "Submission logged.")
	assert.Contains(t, body, "<strong>SEO: 7/10</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "Nova política de impostos")
	assert.Contains(t, body, "looks like English")
	assert.Contains(t, body, `style="width: 55%"`)
}

func TestAnalyzeShowsSoftFailures(t *testing.T) {
	t.Parallel()

	report := sampleReport()
	report.Logged = false
	report.LogErr = domain.ErrVersionConflict
	report.Advice = domain.Advice{Text: "AI advisor error: gemini: <quota>", Err: errors.New("quota")}

	rec := postForm(newTestHandler(t, &fakeAnalyzer{report: report}), validForm())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Submission not logged: version conflict")
	assert.Contains(t, body, "AI advisor error: gemini: &lt;quota&gt;")
}

func TestAnalyzeErrorStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		text   string
	}{
		{"empty", &domain.ValidationError{Field: "headline", Reason: domain.ReasonEmpty}, http.StatusUnprocessableEntity, "Type a headline."},
		{"short", &domain.ValidationError{Field: "headline", Reason: domain.ReasonTooShort}, http.StatusUnprocessableEntity, "Headline too short."},
		{"model", errors.Join(domain.ErrModelUnavailable, errors.New("404")), http.StatusServiceUnavailable, "Model not loaded. Contact the administrator."},
		{"processing", errors.Join(domain.ErrProcessing, errors.New("bad row")), http.StatusInternalServerError, "Check that the libraries"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := postForm(newTestHandler(t, &fakeAnalyzer{err: tc.err}), validForm())
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.text)
			assert.Contains(t, rec.Body.String(), "Will the new tax policy change anything?", "form keeps the input")
		})
	}
}

func TestAnalyzeRejectsUnknownNeed(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{}
	form := validForm()
	form.Set("user_need", "gossip")

	rec := postForm(newTestHandler(t, analyzer), form)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, analyzer.got)
}

func TestAnalyzeRecoversFromPanic(t *testing.T) {
	t.Parallel()

	rec := postForm(newTestHandler(t, &fakeAnalyzer{panic: true}), validForm())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "unexpected failure")
	assert.Contains(t, rec.Body.String(), "Check that the libraries")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &fakeAnalyzer{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerShutsDownOnCancel(t *testing.T) {
	h := newTestHandler(t, &fakeAnalyzer{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer("", h, time.Second, nil).Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	client.CloseIdleConnections()
}

func TestPublishedAt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2024-01-13 10:00:00", publishedAt("2024-01-13", "10:00"))
	assert.Equal(t, "2024-01-13 10:00:30", publishedAt("2024-01-13", "10:00:30"))
	assert.Equal(t, "2024-01-13", publishedAt("2024-01-13", ""))
}
