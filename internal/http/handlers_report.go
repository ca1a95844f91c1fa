package http

import (
	"net/http"

	"expenses/internal/log"
)

// handleReports shows the total and per-category breakdown of one month,
// defaulting to the newest month with data.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	available, err := s.repo.AvailableMonths(ctx)
	if err != nil {
		s.renderError(w, r, log.ComponentReport, log.OpReport, err)
		return
	}

	// Reports are always per month, so "all" falls back to the default.
	month, _ := s.selectMonth(r, available)
	if month == nil && len(available) > 0 {
		newest := available[0]
		month = &newest
	}

	page := reportPage{
		Title:  "Reports",
		Months: monthOptions(available, month),
	}
	if month == nil {
		s.render(w, r, http.StatusOK, "reports.html", page)
		return
	}

	report, err := s.repo.MonthReport(ctx, *month)
	if err != nil {
		s.renderError(w, r, log.ComponentReport, log.OpReport, err)
		return
	}

	page.MonthKey = report.Month.String()
	page.MonthLabel = report.Month.Label()
	page.Total = report.Total
	page.Categories = newCategoryRows(report.ByCategory)

	log.FromContext(ctx).WithComponent(log.ComponentReport).DebugContext(ctx, "Report built",
		log.NewFields().WithMonth(page.MonthKey).WithOperation(log.OpReport).ToSlice()...)
	s.render(w, r, http.StatusOK, "reports.html", page)
}
