package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tesoreria/internal/core"
	"tesoreria/internal/ledger"
	applog "tesoreria/internal/log"
	"tesoreria/internal/report"
	"tesoreria/internal/services"
)

// LedgerAPI groups the JSON handlers over the ledger and report services.
type LedgerAPI struct {
	ledger   *services.LedgerService
	reports  *services.ReportService
	profiles *services.ProfileService

	// payerCache memoizes cedula -> nombres lookups per user.
	payerCache *lruCache[string]
}

func NewLedgerAPI(ledgerSvc *services.LedgerService, reportSvc *services.ReportService, profileSvc *services.ProfileService) *LedgerAPI {
	return &LedgerAPI{
		ledger:     ledgerSvc,
		reports:    reportSvc,
		profiles:   profileSvc,
		payerCache: newLRUCache[string](500, 5*time.Minute),
	}
}

type transactionBody struct {
	UserID      string `json:"user_id,omitempty"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Account     string `json:"account"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Description string `json:"description"`
	Cedula      string `json:"cedula,omitempty"`
	Nombres     string `json:"nombres,omitempty"`
}

type transactionView struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Account     string `json:"account"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Cedula      string `json:"cedula,omitempty"`
	Nombres     string `json:"nombres,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func viewOf(tx core.Transaction) transactionView {
	v := transactionView{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		Date:        tx.Date.ISO(),
		Account:     tx.Account,
		AmountCents: tx.Amount.Cents,
		Amount:      tx.Amount.Format(),
		Description: tx.Description,
		Cedula:      tx.Cedula,
		Nombres:     tx.Nombres,
	}
	if !tx.CreatedAt.IsZero() {
		v.CreatedAt = tx.CreatedAt.Format(time.RFC3339)
	}
	return v
}

// toTransaction converts the request body into a domain value. The amount
// may come as integer cents or as a display string ("$ 1.250.000").
func (b transactionBody) toTransaction() (core.Transaction, error) {
	amount := core.Money{Cents: b.AmountCents}
	if strings.TrimSpace(b.Amount) != "" {
		parsed, err := core.ParseAmount(b.Amount)
		if err != nil {
			return core.Transaction{}, err
		}
		amount = parsed
	}

	var date core.Date
	if strings.TrimSpace(b.Date) != "" {
		parsed, err := core.ParseDate(b.Date)
		if err != nil {
			return core.Transaction{}, err
		}
		date = parsed
	}

	return core.Transaction{
		UserID:      b.UserID,
		Type:        core.TxType(b.Type),
		Date:        date,
		Account:     b.Account,
		Amount:      amount,
		Description: b.Description,
		Cedula:      b.Cedula,
		Nombres:     b.Nombres,
	}, nil
}

func filterFromQuery(q url.Values) ledger.FilterSpec {
	return ledger.FilterSpec{
		DateFrom: strings.TrimSpace(q.Get("date_from")),
		DateTo:   strings.TrimSpace(q.Get("date_to")),
		Account:  strings.TrimSpace(q.Get("account")),
		Month:    strings.TrimSpace(q.Get("month")),
		Year:     strings.TrimSpace(q.Get("year")),
		Concept:  strings.TrimSpace(q.Get("concept")),
	}
}

func (api *LedgerAPI) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := api.ledger.ListTransactions(r.Context(), caller, filterFromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]transactionView, 0, len(rows))
	for _, tx := range rows {
		views = append(views, viewOf(tx))
	}
	writeJSON(w, http.StatusOK, views)
}

func (api *LedgerAPI) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := api.ledger.GetTransaction(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(tx))
}

func (api *LedgerAPI) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body transactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	tx, err := body.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := api.ledger.CreateTransaction(r.Context(), caller, tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.invalidatePayer(created)
	logWrite(r, applog.OpCreate, created)
	writeJSON(w, http.StatusCreated, viewOf(created))
}

func (api *LedgerAPI) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body transactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	tx, err := body.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx.ID = r.PathValue("id")

	updated, err := api.ledger.UpdateTransaction(r.Context(), caller, tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.invalidatePayer(updated)
	logWrite(r, applog.OpUpdate, updated)
	writeJSON(w, http.StatusOK, viewOf(updated))
}

func (api *LedgerAPI) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := api.ledger.DeleteTransaction(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	logWrite(r, applog.OpDelete, core.Transaction{ID: r.PathValue("id")})
	writeJSON(w, http.StatusNoContent, nil)
}

// logWrite records a ledger mutation on the request's structured logger.
func logWrite(r *http.Request, op string, tx core.Transaction) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionWrite(r.Context(), op, tx.ID, string(tx.Type), tx.Account, tx.Amount.Cents)
}

type accountBody struct {
	OwnerUserID string `json:"owner_user_id,omitempty"`
	Type        string `json:"type"`
	Name        string `json:"name"`
}

type accountView struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
}

func (api *LedgerAPI) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	accounts, err := api.ledger.ListAccounts(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{ID: a.ID, OwnerUserID: a.OwnerUserID, Type: string(a.Type), Name: a.Name})
	}
	writeJSON(w, http.StatusOK, views)
}

func (api *LedgerAPI) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body accountBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	created, err := api.ledger.CreateAccount(r.Context(), caller, core.Account{
		OwnerUserID: body.OwnerUserID,
		Type:        core.TxType(body.Type),
		Name:        body.Name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountView{
		ID: created.ID, OwnerUserID: created.OwnerUserID, Type: string(created.Type), Name: created.Name,
	})
}

type dashboardView struct {
	TotalIngresos     int64              `json:"total_ingresos_cents"`
	TotalEgresos      int64              `json:"total_egresos_cents"`
	NetBalance        int64              `json:"net_balance_cents"`
	TotalIngresosFmt  string             `json:"total_ingresos"`
	TotalEgresosFmt   string             `json:"total_egresos"`
	NetBalanceFmt     string             `json:"net_balance"`
	ByAccountIngresos []accountTotalView `json:"by_account_ingresos"`
	ByAccountEgresos  []accountTotalView `json:"by_account_egresos"`
}

type accountTotalView struct {
	Account    string `json:"account"`
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
}

func (api *LedgerAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	aggs, err := api.ledger.Dashboard(r.Context(), caller, filterFromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := dashboardView{
		TotalIngresos:     aggs.TotalIngresos.Cents,
		TotalEgresos:      aggs.TotalEgresos.Cents,
		NetBalance:        aggs.NetBalance.Cents,
		TotalIngresosFmt:  aggs.TotalIngresos.Format(),
		TotalEgresosFmt:   aggs.TotalEgresos.Format(),
		NetBalanceFmt:     aggs.NetBalance.Format(),
		ByAccountIngresos: accountTotals(aggs.ByAccountIngresos),
		ByAccountEgresos:  accountTotals(aggs.ByAccountEgresos),
	}
	writeJSON(w, http.StatusOK, view)
}

func accountTotals(totals []core.AccountTotal) []accountTotalView {
	views := make([]accountTotalView, 0, len(totals))
	for _, t := range totals {
		views = append(views, accountTotalView{
			Account: t.Account, TotalCents: t.Total.Cents, Total: t.Total.Format(),
		})
	}
	return views
}

type profileView struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
}

// handleGetProfile mirrors the identity headers into the profiles table and
// returns the stored record.
func (api *LedgerAPI) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := api.profiles.Sync(r.Context(), caller,
		strings.TrimSpace(r.Header.Get(headerUserEmail)),
		strings.TrimSpace(r.Header.Get(headerUserName)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileView{
		UserID: p.UserID, Email: p.Email, Username: p.Username, Role: string(p.Role),
	})
}

type payerView struct {
	Cedula  string `json:"cedula"`
	Nombres string `json:"nombres"`
}

func (api *LedgerAPI) handleLookupPayer(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cedula := strings.TrimSpace(r.URL.Query().Get("cedula"))
	key := payerKey(caller.UserID, cedula)
	if nombres, found := api.payerCache.Get(key); found {
		writeJSON(w, http.StatusOK, payerView{Cedula: cedula, Nombres: nombres})
		return
	}

	nombres, err := api.ledger.LookupPayer(r.Context(), caller, cedula)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if nombres != "" {
		api.payerCache.Set(key, nombres)
	}
	writeJSON(w, http.StatusOK, payerView{Cedula: cedula, Nombres: nombres})
}

// invalidatePayer drops the cached lookup touched by an Ingreso write.
func (api *LedgerAPI) invalidatePayer(tx core.Transaction) {
	if api.payerCache == nil || tx.Type != core.Ingreso || tx.Cedula == "" {
		return
	}
	api.payerCache.Delete(payerKey(tx.UserID, tx.Cedula))
}

func payerKey(userID, cedula string) string {
	return userID + "|" + cedula
}

func (api *LedgerAPI) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	format, err := report.ParseFormat(strings.TrimSpace(r.URL.Query().Get("format")))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	label := profileLabelFrom(r)
	if api.profiles != nil {
		label = api.profiles.DisplayLabel(r.Context(), caller, label)
	}

	out, err := api.reports.Generate(r.Context(), caller, label, format, filterFromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	if out.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}
