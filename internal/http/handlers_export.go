package http

import (
	"fmt"
	"net/http"

	"expenses/internal/core"
	"expenses/internal/csvio"
	"expenses/internal/log"
)

// handleExport streams every expense as a CSV attachment, oldest first.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvio.DefaultFilename))

	cw, err := csvio.NewWriter(w)
	if err != nil {
		s.slog.LogError(ctx, "CSV export failed", err, log.ComponentExport, log.OpExport, nil)
		return
	}

	count := 0
	err = s.repo.EachExpense(ctx, func(e core.Expense) error {
		count++
		return cw.Write(e)
	})
	if err == nil {
		err = cw.Flush()
	}
	if err != nil {
		// Headers are already sent; the truncated file is the only signal
		// the client gets.
		s.slog.LogError(ctx, "CSV export failed", err, log.ComponentExport, log.OpExport,
			log.NewFields().WithCount(count))
		return
	}

	log.FromContext(ctx).WithComponent(log.ComponentExport).InfoContext(ctx, "CSV exported",
		log.NewFields().WithCount(count).WithOperation(log.OpExport).ToSlice()...)
}
