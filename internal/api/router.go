package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; every request is a few identities and a number.
const maxBodyBytes = 1 << 16

type RouterConfig struct {
	Service       *LedgerService
	Authenticator *TokenAuthenticator
	// MetricsHandler is mounted on /metrics when non-nil
	MetricsHandler http.Handler
}

// NewRouter builds the HTTP host. Reads are public; writes need a bearer
// token whose subject is the caller the ledger authorizes.
func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{svc: cfg.Service}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/merchants/{id}", h.getMerchant)
		v1.Get("/balances/{id}", h.getBalance)
		v1.Get("/supply", h.getSupply)

		v1.Group(func(authed chi.Router) {
			authed.Use(cfg.Authenticator.Middleware)
			authed.Post("/merchants", h.registerMerchant)
			authed.Post("/points/issue", h.issuePoints)
			authed.Post("/points/redeem", h.redeemPoints)
		})
	})

	return r
}

type handlers struct {
	svc *LedgerService
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.HealthCheck(r.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) registerMerchant(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterMerchantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.RegisterMerchant(r.Context(), req.Merchant); err != nil {
		writeLedgerError(w, err)
		return
	}

	account, _, err := h.svc.GetMerchant(r.Context(), req.Merchant)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *handlers) getMerchant(w http.ResponseWriter, r *http.Request) {
	id := models.Identity(chi.URLParam(r, "id"))
	account, found, err := h.svc.GetMerchant(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "merchant_not_registered", ledger.ErrMerchantNotRegistered.Error())
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *handlers) issuePoints(w http.ResponseWriter, r *http.Request) {
	var req models.IssuePointsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	points, err := h.svc.IssuePoints(r.Context(), req.Merchant, req.User, req.Points)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.BalanceResponse{User: req.User, Points: points})
}

func (h *handlers) redeemPoints(w http.ResponseWriter, r *http.Request) {
	var req models.RedeemPointsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	points, err := h.svc.RedeemPoints(r.Context(), req.User, req.Merchant, req.Points)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.BalanceResponse{User: req.User, Points: points})
}

func (h *handlers) getBalance(w http.ResponseWriter, r *http.Request) {
	h.writeBalance(w, r, models.Identity(chi.URLParam(r, "id")))
}

func (h *handlers) writeBalance(w http.ResponseWriter, r *http.Request, user models.Identity) {
	points, err := h.svc.GetUserBalance(r.Context(), user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.BalanceResponse{User: user, Points: points})
}

func (h *handlers) getSupply(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.GetTotalSupply(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SupplyResponse{TotalSupply: total})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps ledger errors onto HTTP statuses and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrAuthenticationFailed):
		return http.StatusForbidden, "authentication_failed"
	case errors.Is(err, ledger.ErrInvalidIdentity):
		return http.StatusBadRequest, "invalid_identity"
	case errors.Is(err, ledger.ErrMerchantNotRegistered):
		return http.StatusNotFound, "merchant_not_registered"
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		return http.StatusConflict, "already_registered"
	case errors.Is(err, ledger.ErrMerchantInactive):
		return http.StatusConflict, "merchant_inactive"
	case errors.Is(err, ledger.ErrNoBalance):
		return http.StatusUnprocessableEntity, "no_balance"
	case errors.Is(err, ledger.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity, "insufficient_points"
	case errors.Is(err, ledger.ErrOverflow):
		return http.StatusUnprocessableEntity, "overflow"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeLedgerError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Ledger request failed", zap.Error(err))
		writeError(w, status, code, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to write response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())))
	})
}
