package web

import (
	"html/template"

	"Auditorium/internal/domain"
	"Auditorium/internal/usecase"
)

type formValues struct {
	Headline string
	UserNeed string
	Date     string
	Time     string
}

type needOption struct {
	Code  string
	Label string
}

type pageData struct {
	Form   formValues
	Needs  []needOption
	Error  string
	Hint   string
	Report *reportView
}

type bar struct {
	Label  string
	Value  float64
	Width  int
	Winner bool
}

type reportView struct {
	Class         string
	Color         string
	Band          string
	Confidence    float64
	LowConfidence bool
	Bars          []bar
	Logged        bool
	LogError      string
	Findings      []domain.Finding
	References    []domain.ReferenceMatch
	LanguageNote  string
	Advice        template.HTML
	AdviceFailed  bool
}

func needOptions() []needOption {
	out := make([]needOption, 0, len(domain.UserNeeds))
	for _, need := range domain.UserNeeds {
		out = append(out, needOption{Code: string(need), Label: need.TrainingLabel()})
	}
	return out
}

func classColor(class domain.AudienceClass) string {
	switch class {
	case domain.AudienceHigh:
		return "green"
	case domain.AudienceMedium:
		return "orange"
	}
	return "red"
}

func newReportView(r usecase.Report) *reportView {
	view := &reportView{
		Class:         string(r.Prediction.Class),
		Color:         classColor(r.Prediction.Class),
		Band:          r.Prediction.Class.Band(),
		Confidence:    r.Prediction.Confidence,
		LowConfidence: r.Prediction.LowConfidence(),
		Logged:        r.Logged,
		Findings:      r.Findings,
		References:    r.References,
		LanguageNote:  r.LanguageNote,
		AdviceFailed:  r.Advice.Err != nil,
	}
	if r.LogErr != nil {
		view.LogError = r.LogErr.Error()
	}

	for _, label := range r.Prediction.Labels {
		p := r.Prediction.Probabilities[label]
		view.Bars = append(view.Bars, bar{
			Label:  string(label),
			Value:  p,
			Width:  int(p*100 + 0.5),
			Winner: label == r.Prediction.Class,
		})
	}

	if view.AdviceFailed {
		view.Advice = template.HTML(template.HTMLEscapeString(r.Advice.Text))
	} else {
		view.Advice = renderMarkdown(r.Advice.Text)
	}
	return view
}
