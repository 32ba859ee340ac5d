package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"Auditorium/internal/app"
	"Auditorium/internal/domain"
	"Auditorium/internal/logging"
	"Auditorium/internal/usecase"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	classPalette = map[domain.AudienceClass]lipgloss.Color{
		domain.AudienceHigh:   lipgloss.Color("34"),
		domain.AudienceMedium: lipgloss.Color("214"),
		domain.AudienceLow:    lipgloss.Color("196"),
	}
)

func analyzeCmd(opts *rootOptions) *cobra.Command {
	var headline, need, date, clock string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Predict, log and review one headline",
		Example: `  auditorium analyze --headline "Governo anuncia novo corte de impostos" \
    --need inform --date 2024-01-10 --time 09:00`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			userNeed, err := domain.ParseUserNeed(need)
			if err != nil {
				return err
			}

			now := time.Now().In(cfg.Server.Location())
			if date == "" {
				date = now.Format("2006-01-02")
			}
			if clock == "" {
				clock = now.Format("15:04:05")
			} else if len(clock) == len("15:04") {
				clock += ":00"
			}

			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			defer func() {
				if err := application.Close(); err != nil {
					logger.Error("close application", "error", err)
				}
			}()

			report, err := application.Analyzer().Analyze(cmd.Context(), domain.SubmissionInput{
				Headline:    headline,
				UserNeed:    userNeed,
				PublishedAt: date + " " + clock,
			})
			if err != nil {
				return err
			}
			return renderReport(cmd.OutOrStdout(), report, logger)
		},
	}

	cmd.Flags().StringVar(&headline, "headline", "", "headline to analyze")
	cmd.Flags().StringVar(&need, "need", string(domain.NeedInform), "user need (inform, contextualize, teach, entertain, inspire, follow_trends)")
	cmd.Flags().StringVar(&date, "date", "", "publication date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&clock, "time", "", "publication time HH:MM (default: now)")
	_ = cmd.MarkFlagRequired("headline")
	return cmd
}

func checkCmd() *cobra.Command {
	var headline string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run only the SEO checklist; needs no configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := domain.ValidateHeadline(headline); err != nil {
				return err
			}
			renderFindings(cmd.OutOrStdout(), usecase.CheckHeadline(headline))
			return nil
		},
	}
	cmd.Flags().StringVar(&headline, "headline", "", "headline to check")
	_ = cmd.MarkFlagRequired("headline")
	return cmd
}

func renderReport(w io.Writer, r usecase.Report, log *slog.Logger) error {
	p := r.Prediction
	class := lipgloss.NewStyle().Bold(true).Foreground(classPalette[p.Class]).Render(string(p.Class))

	fmt.Fprintln(w, titleStyle.Render("Audience prediction"))
	fmt.Fprintf(w, "%s %s  %s\n", labelStyle.Render("Efficiency:"), class, labelStyle.Render("("+p.Class.Band()+")"))
	fmt.Fprintf(w, "%s %.1f%%\n", labelStyle.Render("Confidence:"), p.Confidence*100)
	if p.LowConfidence() {
		fmt.Fprintln(w, warnStyle.Render("The model is not confident about this prediction. Consider changing the headline, user need or publication time."))
	}

	fmt.Fprintln(w)
	for _, label := range p.Labels {
		prob := p.Probabilities[label]
		bar := strings.Repeat("█", int(prob*30+0.5))
		fmt.Fprintf(w, "  %-7s %s %5.1f%%\n", label, barStyle.Render(bar), prob*100)
	}

	fmt.Fprintln(w)
	if r.LogErr != nil {
		fmt.Fprintln(w, errorStyle.Render("Submission not logged: "+r.LogErr.Error()))
	} else if r.Logged {
		fmt.Fprintln(w, labelStyle.Render("Submission logged."))
	}

	fmt.Fprintln(w)
	renderFindings(w, r.Findings)

	if r.LanguageNote != "" {
		fmt.Fprintln(w, warnStyle.Render(r.LanguageNote))
	}

	if len(r.References) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Similar past headlines"))
		for _, m := range r.References {
			fmt.Fprintf(w, "  %s %s\n", m.Headline, labelStyle.Render(fmt.Sprintf("(%s, %s, %.0f%%)", m.UserNeed, m.PublishedAt, m.Score*100)))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("AI analysis"))
	if r.Advice.Err != nil {
		fmt.Fprintln(w, errorStyle.Render(r.Advice.Text))
		return nil
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(88))
	if err != nil {
		log.Debug("markdown renderer unavailable", "error", err)
		fmt.Fprintln(w, r.Advice.Text)
		return nil
	}
	out, err := renderer.Render(r.Advice.Text)
	if err != nil {
		log.Debug("render advice", "error", err)
		out = r.Advice.Text
	}
	fmt.Fprint(w, out)
	return nil
}

func renderFindings(w io.Writer, findings []domain.Finding) {
	fmt.Fprintln(w, titleStyle.Render("Technical checklist"))
	for _, f := range findings {
		line := f.String()
		if f.Severity == domain.SeverityWarning {
			line = warnStyle.Render(line)
		}
		fmt.Fprintln(w, "  "+line)
	}
}
