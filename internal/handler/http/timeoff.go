package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
	"github.com/glowhouse/portal-backend-go/internal/handler/http/response"
	"github.com/glowhouse/portal-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type TimeOffHandler interface {
	// Lifecycle
	Submit(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	Archive(w http.ResponseWriter, r *http.Request)
	Unarchive(w http.ResponseWriter, r *http.Request)

	// Reads
	Get(w http.ResponseWriter, r *http.Request)
	MyRequests(w http.ResponseWriter, r *http.Request)
	Balances(w http.ResponseWriter, r *http.Request)
	Conflicts(w http.ResponseWriter, r *http.Request)

	// Approver-only
	AdjustBalance(w http.ResponseWriter, r *http.Request)

	// SSE feed of the caller's own requests
	Stream(w http.ResponseWriter, r *http.Request)
}

type timeOffHandlerImpl struct {
	timeOffService timeoff.Service
	jwtService     jwt.Service
}

func NewTimeOffHandler(timeOffService timeoff.Service, jwtService jwt.Service) TimeOffHandler {
	return &timeOffHandlerImpl{
		timeOffService: timeOffService,
		jwtService:     jwtService,
	}
}

// getEmailFromContext extracts the employee email from the JWT context
func getEmailFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if email, ok := claims["email"].(string); ok {
		return email
	}
	return ""
}

func getFullNameFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if name, ok := claims["full_name"].(string); ok {
		return name
	}
	return ""
}

func isApproverFromContext(r *http.Request) bool {
	_, claims, _ := jwtauth.FromContext(r.Context())
	isApprover, _ := claims["is_approver"].(bool)
	return isApprover
}

func (h *timeOffHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req timeoff.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeEmail = email
	req.EmployeeName = getFullNameFromContext(r)

	result, err := h.timeOffService.Submit(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Time-off request submitted", result)
}

func (h *timeOffHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	requestID := chi.URLParam(r, "id")

	var req timeoff.CancelRequestRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.timeOffService.Cancel(r.Context(), requestID, email, req.Reason)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Time-off request cancelled", result)
}

func (h *timeOffHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	requestID := chi.URLParam(r, "id")

	var req timeoff.ReviewRequestRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.timeOffService.Approve(r.Context(), requestID, email, req.ManagerNotes)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Time-off request approved", result)
}

func (h *timeOffHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	requestID := chi.URLParam(r, "id")

	var req timeoff.ReviewRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.timeOffService.Reject(r.Context(), requestID, email, req.Reason)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Time-off request rejected", result)
}

func (h *timeOffHandlerImpl) Archive(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	if err := h.timeOffService.Archive(r.Context(), chi.URLParam(r, "id"), email); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Time-off request archived", nil)
}

func (h *timeOffHandlerImpl) Unarchive(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	if err := h.timeOffService.Unarchive(r.Context(), chi.URLParam(r, "id"), email); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Time-off request unarchived", nil)
}

func (h *timeOffHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	result, err := h.timeOffService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.EmployeeEmail != email && !isApproverFromContext(r) {
		response.HandleError(w, timeoff.ErrNotRequestOwner)
		return
	}

	response.Success(w, result)
}

func (h *timeOffHandlerImpl) MyRequests(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	includeArchived := getBoolQueryParam(r, "include_archived", false)

	result, err := h.timeOffService.MyRequests(r.Context(), email, includeArchived)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *timeOffHandlerImpl) Balances(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	// Approvers may inspect another employee's balances.
	if target := r.URL.Query().Get("employee"); target != "" && target != email {
		if !isApproverFromContext(r) {
			response.HandleError(w, timeoff.ErrApproverRequired)
			return
		}
		email = target
	}

	result, err := h.timeOffService.Balances(r.Context(), email)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *timeOffHandlerImpl) Conflicts(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")
	if start == "" || end == "" {
		response.BadRequest(w, "start_date and end_date are required", nil)
		return
	}

	result, err := h.timeOffService.Conflicts(r.Context(), start, end, email)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result == nil {
		result = []timeoff.Conflict{}
	}
	response.Success(w, result)
}

func (h *timeOffHandlerImpl) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	email := getEmailFromContext(r)
	if email == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req timeoff.AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.AdjustedBy = email

	if err := h.timeOffService.AdjustBalance(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Balance adjusted", nil)
}

// Stream pushes the caller's full request list on every change. EventSource
// cannot set headers, so it authenticates with a short-lived query token.
func (h *timeOffHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	email, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.timeOffService.Subscribe(r.Context(), email)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Requests)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
