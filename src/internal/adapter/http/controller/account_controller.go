package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/http/models"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/service_interfaces"
)

type AccountController struct {
	service service_interfaces.AccountService
}

func NewAccountController(service service_interfaces.AccountService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handle(mux, "POST /accounts", c.openAccount, authMiddleware)
	handle(mux, "GET /accounts", c.listAccounts, authMiddleware)
	handle(mux, "GET /accounts/{id}", c.getAccount, authMiddleware)
	handle(mux, "PUT /accounts/{id}/state", c.changeState, authMiddleware)
	handle(mux, "POST /accounts/{id}/features", c.addFeature, authMiddleware)
	handle(mux, "POST /accounts/{id}/children", c.attachChild, authMiddleware)
	handle(mux, "DELETE /accounts/{id}/children/{childId}", c.detachChild, authMiddleware)
}

func (c *AccountController) openAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[service_interfaces.AccountView](w, r, start)
	if !ok {
		return
	}
	var req models.OpenAccountRequest
	if !decode[service_interfaces.AccountView](w, r, &req, start) {
		return
	}

	account, err := c.service.OpenAccount(r.Context(), req.ToServiceRequest(actor))
	if err != nil {
		respondError[service_interfaces.AccountView](w, r, err, start)
		return
	}
	respond(w, r, http.StatusCreated, "Account created", account, start)
}

func (c *AccountController) listAccounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[[]service_interfaces.AccountView](w, r, start)
	if !ok {
		return
	}
	accounts, err := c.service.ListAccounts(r.Context(), actor, r.URL.Query().Get("ownerId"))
	if err != nil {
		respondError[[]service_interfaces.AccountView](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Accounts retrieved", accounts, start)
}

func (c *AccountController) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[service_interfaces.AccountView](w, r, start)
	if !ok {
		return
	}
	account, err := c.service.GetAccount(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondError[service_interfaces.AccountView](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Account retrieved", account, start)
}

func (c *AccountController) changeState(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[service_interfaces.AccountView](w, r, start)
	if !ok {
		return
	}
	var req models.ChangeStateRequest
	if !decode[service_interfaces.AccountView](w, r, &req, start) {
		return
	}

	account, err := c.service.ChangeState(r.Context(), actor, r.PathValue("id"), req.Tag())
	if err != nil {
		respondError[service_interfaces.AccountView](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Account state updated", account, start)
}

func (c *AccountController) addFeature(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[service_interfaces.AccountView](w, r, start)
	if !ok {
		return
	}
	var req models.FeatureRequest
	if !decode[service_interfaces.AccountView](w, r, &req, start) {
		return
	}

	account, err := c.service.AddFeature(r.Context(), actor, r.PathValue("id"), req.ToDomain())
	if err != nil {
		respondError[service_interfaces.AccountView](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Feature added", account, start)
}

func (c *AccountController) attachChild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[service_interfaces.AccountView](w, r, start)
	if !ok {
		return
	}
	var req models.AttachChildRequest
	if !decode[service_interfaces.AccountView](w, r, &req, start) {
		return
	}

	account, err := c.service.AttachChild(r.Context(), actor, r.PathValue("id"), req.ChildID)
	if err != nil {
		respondError[service_interfaces.AccountView](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Account grouped", account, start)
}

func (c *AccountController) detachChild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[service_interfaces.AccountView](w, r, start)
	if !ok {
		return
	}

	account, err := c.service.DetachChild(r.Context(), actor, r.PathValue("id"), r.PathValue("childId"))
	if err != nil {
		respondError[service_interfaces.AccountView](w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "Account ungrouped", account, start)
}
