package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rl1809/dinepilot/internal/adapter/ws"
	"github.com/rl1809/dinepilot/internal/auth"
	"github.com/rl1809/dinepilot/internal/core/domain"
	"github.com/rl1809/dinepilot/internal/core/service"
)

type HTTPHandler struct {
	orderService *service.OrderService
	jwtSecret    string
	hub          *ws.Hub
	log          *slog.Logger
}

type tokenRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type createOrderRequest struct {
	ItemIDs []string `json:"itemIds"`
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	StaffID string `json:"staffId"`
}

// NewHTTPHandler builds the API handler. hub may be nil, in which case the
// /ws endpoint is not mounted.
func NewHTTPHandler(orderService *service.OrderService, jwtSecret string, hub *ws.Hub, log *slog.Logger) *HTTPHandler {
	return &HTTPHandler{orderService: orderService, jwtSecret: jwtSecret, hub: hub, log: log}
}

// Routes returns the chi router for the whole API.
func (h *HTTPHandler) Routes(allowedOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)
	r.Post("/auth/token", h.IssueToken)
	r.Get("/menu", h.ListMenu)
	r.Get("/staff", h.ListStaff)

	if h.hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(h.hub, h.jwtSecret, h.log, w, r)
		})
	}

	r.Route("/orders", func(r chi.Router) {
		r.Use(authenticate(h.jwtSecret))

		r.With(requireRole(domain.RoleChef, domain.RoleManager)).Get("/", h.ListOrders)
		r.With(requireRole(domain.RoleCustomer)).Get("/mine", h.ListMyOrders)
		r.With(requireRole(domain.RoleCustomer)).Post("/", h.CreateOrder)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.With(requireRole(domain.RoleManager)).Delete("/", h.ClearOrders)
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, req.Name, domain.Role(strings.ToLower(req.Role)))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRole) || errors.Is(err, auth.ErrNameRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("failed to sign token", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *HTTPHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	menu := domain.Menu()
	out := make([]MenuItemDTO, 0, len(menu))
	for _, m := range menu {
		out = append(out, toMenuItemDTO(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff := domain.StaffDirectory()
	out := make([]StaffDTO, 0, len(staff))
	for _, s := range staff {
		out = append(out, StaffDTO{ID: s.ID, Name: s.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var filter domain.OrderStatus
	if q := r.URL.Query().Get("status"); q != "" {
		filter = domain.OrderStatus(q)
		if !filter.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
	}

	orders, err := h.orderService.ListAll(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if filter != "" {
		kept := orders[:0]
		for _, o := range orders {
			if o.Status == filter {
				kept = append(kept, o)
			}
		}
		orders = kept
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

func (h *HTTPHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	orders, err := h.orderService.ListByCustomer(r.Context(), claims.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ItemIDs) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	items, total, err := resolveItems(req.ItemIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := claimsFromContext(r.Context())
	requestID := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	order, err := h.orderService.CreateOnce(r.Context(), requestID, items, total, claims.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (h *HTTPHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	staffID := strings.TrimSpace(req.StaffID)
	if staffID != "" {
		if _, ok := domain.StaffByID(staffID); !ok {
			writeError(w, http.StatusBadRequest, "unknown staff member")
			return
		}
	}

	claims := claimsFromContext(r.Context())
	order, err := h.orderService.Transition(r.Context(), claims.Role, chi.URLParam(r, "id"), status, staffID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *HTTPHandler) ClearOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.orderService.Clear(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		status, message = http.StatusNotFound, "order not found"
	case errors.Is(err, service.ErrDuplicateRequest):
		status, message = http.StatusConflict, "duplicate request"
	case errors.Is(err, service.ErrStorageUnavailable):
		status, message = http.StatusServiceUnavailable, "storage unavailable"
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrStaffRequired),
		errors.Is(err, service.ErrStaffNotAllowed):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrRoleNotAllowed):
		status, message = http.StatusForbidden, "role not allowed to perform transition"
	case errors.Is(err, service.ErrTotalMismatch):
		status, message = http.StatusBadRequest, err.Error()
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", slog.Any("err", err))
	}
	writeError(w, status, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
