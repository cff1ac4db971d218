package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/server/models"
	"github.com/dpetrovs/finledger/internal/server/services"
)

// ---- wire DTOs ----

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type transactionRequest struct {
	Description *string    `json:"description"`
	Amount      *int64     `json:"amount"`
	Type        *string    `json:"type"`
	Date        *time.Time `json:"date"`
	Category    *string    `json:"category"`
}

type transactionDTO struct {
	ID          string    `json:"id"`
	Account     string    `json:"account"`
	AddedBy     string    `json:"addedBy"`
	AddedByName string    `json:"addedByName,omitempty"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category,omitempty"`
}

func toTransactionDTO(v *services.TransactionView) transactionDTO {
	return transactionDTO{
		ID:          v.ID,
		Account:     v.AccountID,
		AddedBy:     v.AddedBy,
		AddedByName: v.AddedByName,
		Description: v.Description,
		Amount:      v.Amount,
		Type:        string(v.Type),
		Date:        v.Date,
		Category:    v.Category,
	}
}

type accountDTO struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Role        string `json:"role,omitempty"`
}

type budgetCategoryDTO struct {
	Category string `json:"category"`
	Limit    int64  `json:"limit"`
}

type budgetRequest struct {
	Name       *string             `json:"name"`
	Period     *string             `json:"period"`
	StartDate  *time.Time          `json:"startDate"`
	EndDate    *time.Time          `json:"endDate"`
	Categories []budgetCategoryDTO `json:"categories"`
	Category   *string             `json:"category"`
	Amount     *int64              `json:"amount"`
}

type budgetDTO struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Period     string              `json:"period"`
	StartDate  *time.Time          `json:"startDate,omitempty"`
	EndDate    *time.Time          `json:"endDate,omitempty"`
	Categories []budgetCategoryDTO `json:"categories"`
	CreatedAt  time.Time           `json:"createdAt"`
}

func toBudgetDTO(b *models.Budget) budgetDTO {
	categories := make([]budgetCategoryDTO, 0, len(b.Categories))
	for _, c := range b.Categories {
		categories = append(categories, budgetCategoryDTO{Category: c.Category, Limit: c.Limit})
	}
	return budgetDTO{
		ID:         b.ID,
		Name:       b.Name,
		Period:     string(b.Period),
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		Categories: categories,
		CreatedAt:  b.CreatedAt,
	}
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Kind: kind, Message: message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Every failure carries a machine-readable kind plus a human message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, common.ErrorInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, common.ErrorBalanceUpdate):
		s.logger.Error(r.Context(), "balance update error", "error", err)
		writeError(w, http.StatusInternalServerError, "balance_update", err.Error())
	default:
		s.logger.Error(r.Context(), "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return false
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ---- account ----

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.Resolve(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountDTO{
		ID: account.ID, Owner: account.OwnerUserID, Name: account.Name, Balance: account.Balance,
	})
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	member, err := s.accounts.AddMember(r.Context(), userID(r), req.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Member added successfully.",
		"member":  userDTO{ID: member.ID, Email: member.Email, DisplayName: member.DisplayName},
	})
}

func (s *Server) handleCollaborators(w http.ResponseWriter, r *http.Request) {
	collaborators, err := s.accounts.Collaborators(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	users := make([]userDTO, 0, len(collaborators))
	for _, c := range collaborators {
		users = append(users, userDTO{
			ID:          c.User.ID,
			Email:       c.User.Email,
			DisplayName: c.User.DisplayName,
			Picture:     c.User.Picture,
			Role:        c.Role,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

// ---- transactions ----

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := s.ledger.CreateTransaction(r.Context(), userID(r), services.CreateTransactionParams{
		Description: deref(req.Description),
		Amount:      req.Amount,
		Type:        models.TransactionType(deref(req.Type)),
		Date:        req.Date,
		Category:    deref(req.Category),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(view))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	views, err := s.ledger.ListTransactions(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	result := make([]transactionDTO, 0, len(views))
	for _, v := range views {
		result = append(result, toTransactionDTO(v))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	view, err := s.ledger.GetTransaction(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(view))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	upd := &models.TransactionUpdate{
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
		Category:    req.Category,
	}
	if req.Type != nil {
		typ := models.TransactionType(*req.Type)
		upd.Type = &typ
	}

	view, err := s.ledger.UpdateTransaction(r.Context(), userID(r), r.PathValue("id"), upd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(view))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted."})
}

// ---- receipts ----

func (s *Server) handleRequestReceiptUpload(w http.ResponseWriter, r *http.Request) {
	url, err := s.receipts.RequestUpload(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"uploadUrl": url})
}

func (s *Server) handleReceiptUploaded(w http.ResponseWriter, r *http.Request) {
	if err := s.receipts.MarkUploaded(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Receipt marked as uploaded."})
}

func (s *Server) handleReceiptDownloadURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.receipts.DownloadURL(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"downloadUrl": url})
}

// ---- budgets ----

func budgetCategoriesFromDTO(dtos []budgetCategoryDTO) []models.BudgetCategory {
	if dtos == nil {
		return nil
	}
	categories := make([]models.BudgetCategory, 0, len(dtos))
	for _, c := range dtos {
		categories = append(categories, models.BudgetCategory{Category: c.Category, Limit: c.Limit})
	}
	return categories
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	budget, err := s.budgets.CreateBudget(r.Context(), userID(r), services.CreateBudgetParams{
		Name:       deref(req.Name),
		Period:     models.BudgetPeriod(deref(req.Period)),
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Categories: budgetCategoriesFromDTO(req.Categories),
		Category:   deref(req.Category),
		Amount:     req.Amount,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(budget))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.ListBudgets(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	result := make([]budgetDTO, 0, len(budgets))
	for _, b := range budgets {
		result = append(result, toBudgetDTO(b))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.budgets.GetBudget(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(budget))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	upd := &models.BudgetUpdate{
		Name:       req.Name,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Categories: budgetCategoriesFromDTO(req.Categories),
	}
	if req.Period != nil {
		period := models.BudgetPeriod(*req.Period)
		upd.Period = &period
	}

	budget, err := s.budgets.UpdateBudget(r.Context(), userID(r), r.PathValue("id"), upd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.DeleteBudget(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Budget deleted."})
}
