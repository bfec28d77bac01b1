package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/http/models"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/service_interfaces"
)

type TransactionController struct {
	service service_interfaces.ApprovalService
}

func NewTransactionController(service service_interfaces.ApprovalService) *TransactionController {
	return &TransactionController{service: service}
}

func (c *TransactionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handle(mux, "POST /transactions", c.submit, authMiddleware)
	handle(mux, "GET /transactions/pending", c.listPending, authMiddleware)
	handle(mux, "GET /transactions/{id}", c.get, authMiddleware)
	handle(mux, "POST /transactions/{id}/decision", c.decide, authMiddleware)
	handle(mux, "GET /accounts/{id}/transactions", c.listForAccount, authMiddleware)
}

// submit answers 201 when the transaction completed immediately and 202 when
// it is waiting for an approver.
func (c *TransactionController) submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[models.TransactionResponse](w, r, start)
	if !ok {
		return
	}
	var req models.SubmitTransactionRequest
	if !decode[models.TransactionResponse](w, r, &req, start) {
		return
	}

	result, err := c.service.Submit(r.Context(), req.ToServiceRequest(actor))
	if err != nil {
		respondError[models.TransactionResponse](w, r, err, start)
		return
	}

	status := http.StatusCreated
	message := "Transaction completed"
	if result.Transaction.Status.AwaitingApproval() {
		status = http.StatusAccepted
		message = "Transaction awaiting approval"
	}
	respond(w, r, status, message, models.NewTransactionResponse(result), start)
}

func (c *TransactionController) decide(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[models.TransactionResponse](w, r, start)
	if !ok {
		return
	}
	var req models.DecideTransactionRequest
	if !decode[models.TransactionResponse](w, r, &req, start) {
		return
	}

	result, err := c.service.Decide(r.Context(), service_interfaces.DecideRequest{
		Actor:         actor,
		TransactionID: r.PathValue("id"),
		Approve:       *req.Approve,
	})
	if err != nil {
		respondError[models.TransactionResponse](w, r, err, start)
		return
	}

	message := "Transaction completed"
	if result.Transaction.Status == domain.TransactionStatusRejected {
		message = "Transaction rejected"
	}
	respond(w, r, http.StatusOK, message, models.NewTransactionResponse(result), start)
}

func (c *TransactionController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[domain.Transaction](w, r, start)
	if !ok {
		return
	}
	tx, err := c.service.GetTransaction(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondError[domain.Transaction](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Transaction retrieved", tx, start)
}

func (c *TransactionController) listPending(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[[]domain.Transaction](w, r, start)
	if !ok {
		return
	}
	pending, err := c.service.ListPending(r.Context(), actor)
	if err != nil {
		respondError[[]domain.Transaction](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Pending transactions retrieved", pending, start)
}

func (c *TransactionController) listForAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[[]domain.Transaction](w, r, start)
	if !ok {
		return
	}
	txs, err := c.service.ListAccountTransactions(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondError[[]domain.Transaction](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Transactions retrieved", txs, start)
}
