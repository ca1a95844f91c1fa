package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage"
)

// selectMonth picks the listing filter: an explicit month, every month, or
// by default the newest month with data. all is true when no filter applies.
func (s *Server) selectMonth(r *http.Request, available []core.MonthKey) (month *core.MonthKey, all bool) {
	q := parseMonthQuery(r.URL.Query())
	if q.Invalid != "" {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Ignoring malformed month parameter", log.FieldMonth, q.Invalid)
	}

	switch {
	case q.All:
		return nil, true
	case q.Month != nil:
		return q.Month, false
	case len(available) > 0:
		newest := available[0]
		return &newest, false
	default:
		return nil, true
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	available, err := s.repo.AvailableMonths(ctx)
	if err != nil {
		s.renderError(w, r, log.ComponentExpense, log.OpList, err)
		return
	}
	month, all := s.selectMonth(r, available)

	expenses, err := s.repo.ListExpenses(ctx, month)
	if err != nil {
		s.renderError(w, r, log.ComponentExpense, log.OpList, err)
		return
	}
	summary, err := s.repo.Summarize(ctx, month)
	if err != nil {
		s.renderError(w, r, log.ComponentExpense, log.OpList, err)
		return
	}

	page := listPage{
		Title:       "Expenses",
		Months:      monthOptions(available, month),
		AllSelected: all,
		MonthLabel:  "All months",
		Expenses:    expenses,
		Count:       summary.Count,
		Total:       summary.Total,
	}
	if month != nil {
		page.MonthLabel = month.Label()
	}

	s.render(w, r, http.StatusOK, "expenses.html", page)
}

// newFormPage fills the category suggestions and payment methods.
func (s *Server) newFormPage(r *http.Request, title, action, submit string, values core.ExpenseInput) formPage {
	catalog := s.service.Catalog()

	used, err := s.repo.UsedCategories(r.Context())
	if err != nil {
		// Suggestions are optional; the configured list still renders.
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to load used categories", log.FieldError, err)
	}

	return formPage{
		Title:          title,
		Action:         action,
		Submit:         submit,
		Values:         values,
		Categories:     catalog.CategoryOptions(used),
		PaymentMethods: catalog.PaymentMethods,
	}
}

func (s *Server) addFormPage(r *http.Request, values core.ExpenseInput) formPage {
	return s.newFormPage(r, "Add expense", "/add_expenses", "Add", values)
}

func (s *Server) editFormPage(r *http.Request, id int64, values core.ExpenseInput) formPage {
	return s.newFormPage(r, "Edit expense", "/edit/"+strconv.FormatInt(id, 10), "Save", values)
}

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	values := core.ExpenseInput{Date: time.Now().Format(core.InputDateLayout)}
	s.render(w, r, http.StatusOK, "expense_form.html", s.addFormPage(r, values))
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Parse form error", log.FieldError, err)
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	in := parseExpenseForm(r.PostForm)

	e, err := s.service.CreateExpense(r.Context(), in)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			s.slog.LogValidationFailure(r.Context(), log.OpCreate, err)
			page := s.addFormPage(r, in)
			page.Error = msg
			s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", page)
			return
		}
		s.renderError(w, r, log.ComponentExpense, log.OpCreate, err)
		return
	}

	s.slog.LogExpenseSaved(r.Context(), log.OpCreate, e)
	redirectToMonth(w, r, e)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		redirectToList(w, r)
		return
	}

	e, err := s.repo.GetExpense(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		redirectToList(w, r)
		return
	}
	if err != nil {
		s.renderError(w, r, log.ComponentExpense, log.OpRead, err)
		return
	}

	s.render(w, r, http.StatusOK, "expense_form.html", s.editFormPage(r, id, e.Input()))
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		redirectToList(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Parse form error", log.FieldError, err)
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	in := parseExpenseForm(r.PostForm)

	e, err := s.service.UpdateExpense(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			redirectToList(w, r)
			return
		}
		if msg, ok := validationMessage(err); ok {
			s.slog.LogValidationFailure(r.Context(), log.OpUpdate, err)
			page := s.editFormPage(r, id, in)
			page.Error = msg
			s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", page)
			return
		}
		s.renderError(w, r, log.ComponentExpense, log.OpUpdate, err)
		return
	}

	s.slog.LogExpenseSaved(r.Context(), log.OpUpdate, e)
	redirectToMonth(w, r, e)
}

// handleDeleteExpense removes the row and always lands on the listing,
// whether or not the id existed.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		redirectToList(w, r)
		return
	}

	if err := s.service.DeleteExpense(r.Context(), id); err != nil {
		s.renderError(w, r, log.ComponentExpense, log.OpDelete, err)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentExpense).InfoContext(r.Context(), "Expense delete handled",
		log.NewFields().WithExpenseID(id).WithOperation(log.OpDelete).ToSlice()...)
	redirectToList(w, r)
}

// redirectToMonth shows the listing for the month of the saved expense.
func redirectToMonth(w http.ResponseWriter, r *http.Request, e core.Expense) {
	k, err := e.Month()
	if err != nil {
		redirectToList(w, r)
		return
	}
	http.Redirect(w, r, "/expenses?month="+k.String(), http.StatusSeeOther)
}
