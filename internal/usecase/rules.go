package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"Auditorium/internal/domain"
)

const (
	seoMinLength = 50
	seoMaxLength = 70
)

// CheckHeadline applies the fixed SEO checklist. Findings come in display order.
func CheckHeadline(headline string) []domain.Finding {
	t := strings.TrimSpace(headline)
	n := utf8.RuneCountInString(t)

	var findings []domain.Finding
	switch {
	case n < seoMinLength:
		findings = append(findings, domain.Finding{
			Code:     "too_short",
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("Too short for SEO (%d chars)", n),
		})
	case n > seoMaxLength:
		findings = append(findings, domain.Finding{
			Code:     "too_long",
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("Too long for SEO (%d chars)", n),
		})
	default:
		findings = append(findings, domain.Finding{
			Code:     "ideal_length",
			Severity: domain.SeverityOK,
			Message:  "Ideal SEO length",
		})
	}

	if strings.Contains(t, "?") {
		findings = append(findings, domain.Finding{
			Code:     "question_engagement",
			Severity: domain.SeverityOK,
			Message:  "Question drives engagement",
		})
	}

	return findings
}
