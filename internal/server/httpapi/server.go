// Package httpapi is a thin JSON-over-HTTP transport for the backend
// services. Routing uses the stdlib mux with method patterns; handlers
// translate between wire DTOs and service calls and carry no business
// logic of their own.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dpetrovs/finledger/internal/logging"
	"github.com/dpetrovs/finledger/internal/server/models"
	"github.com/dpetrovs/finledger/internal/server/services"
)

// LedgerAPI is the slice of the ledger service the transport consumes.
type LedgerAPI interface {
	CreateTransaction(ctx context.Context, userID string, params services.CreateTransactionParams) (*services.TransactionView, error)
	ListTransactions(ctx context.Context, userID string) ([]*services.TransactionView, error)
	GetTransaction(ctx context.Context, userID, id string) (*services.TransactionView, error)
	UpdateTransaction(ctx context.Context, userID, id string, upd *models.TransactionUpdate) (*services.TransactionView, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

type AccountAPI interface {
	Resolve(ctx context.Context, userID string) (*models.Account, error)
	Ensure(ctx context.Context, userID string) (*models.Account, error)
	AddMember(ctx context.Context, userID, email string) (*models.User, error)
	Collaborators(ctx context.Context, userID string) ([]*services.Collaborator, error)
}

type BudgetAPI interface {
	CreateBudget(ctx context.Context, userID string, params services.CreateBudgetParams) (*models.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]*models.Budget, error)
	GetBudget(ctx context.Context, userID, id string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, id string, upd *models.BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, id string) error
}

type ReceiptAPI interface {
	RequestUpload(ctx context.Context, userID, transactionID string) (string, error)
	MarkUploaded(ctx context.Context, userID, transactionID string) error
	DownloadURL(ctx context.Context, userID, transactionID string) (string, error)
}

type Server struct {
	addr      string
	secretKey []byte
	logger    logging.Logger

	ledger   LedgerAPI
	accounts AccountAPI
	budgets  BudgetAPI
	receipts ReceiptAPI

	srv *http.Server
}

func NewServer(addr string, secretKey []byte, logger logging.Logger,
	ledger LedgerAPI, accounts AccountAPI, budgets BudgetAPI, receipts ReceiptAPI) *Server {
	s := &Server{
		addr:      addr,
		secretKey: secretKey,
		logger:    logger,
		ledger:    ledger,
		accounts:  accounts,
		budgets:   budgets,
		receipts:  receipts,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /account", s.withAuth(s.handleGetAccount))
	mux.Handle("POST /account/members", s.withAuth(s.handleAddMember))
	mux.Handle("GET /account/collaborators", s.withAuth(s.handleCollaborators))

	mux.Handle("POST /transactions", s.withAuth(s.handleCreateTransaction))
	mux.Handle("GET /transactions", s.withAuth(s.handleListTransactions))
	mux.Handle("GET /transactions/{id}", s.withAuth(s.handleGetTransaction))
	mux.Handle("PATCH /transactions/{id}", s.withAuth(s.handleUpdateTransaction))
	mux.Handle("DELETE /transactions/{id}", s.withAuth(s.handleDeleteTransaction))

	mux.Handle("POST /transactions/{id}/receipt", s.withAuth(s.handleRequestReceiptUpload))
	mux.Handle("POST /transactions/{id}/receipt/uploaded", s.withAuth(s.handleReceiptUploaded))
	mux.Handle("GET /transactions/{id}/receipt", s.withAuth(s.handleReceiptDownloadURL))

	mux.Handle("POST /budgets", s.withAuth(s.handleCreateBudget))
	mux.Handle("GET /budgets", s.withAuth(s.handleListBudgets))
	mux.Handle("GET /budgets/{id}", s.withAuth(s.handleGetBudget))
	mux.Handle("PATCH /budgets/{id}", s.withAuth(s.handleUpdateBudget))
	mux.Handle("DELETE /budgets/{id}", s.withAuth(s.handleDeleteBudget))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
