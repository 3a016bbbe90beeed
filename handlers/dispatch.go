package handlers

import (
	"context"
	"errors"
	"net/http"

	"servicehub/models"
	"servicehub/services/dispatch"
	"servicehub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DispatchService is the part of the dispatch coordinator exposed over HTTP.
type DispatchService interface {
	StartMatch(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	Respond(ctx context.Context, offerID string, accept bool) (*models.MatchOffer, error)
	Cancel(ctx context.Context, bookingID, actor string) (*models.Booking, error)
	Signal(ctx context.Context, bookingID string, to models.BookingStatus, actor string) (*models.Booking, error)
	Get(ctx context.Context, bookingID string) (*models.Booking, error)
}

type DispatchHandler struct {
	Service DispatchService
	Logger  *zap.Logger
}

func NewDispatchHandler(svc DispatchService, logger *zap.Logger) *DispatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchHandler{Service: svc, Logger: logger}
}

// bookingResponse adds the customer-facing phase to a booking.
type bookingResponse struct {
	*models.Booking
	Phase string `json:"phase"`
}

func newBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{Booking: b, Phase: b.Phase()}
}

// RequestMatchHandler creates a booking and starts matching in the background.
func (h *DispatchHandler) RequestMatchHandler(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, err := h.Service.StartMatch(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, newBookingResponse(booking))
}

// RespondOfferHandler records a provider's accept or decline.
func (h *DispatchHandler) RespondOfferHandler(c *gin.Context) {
	offerID := c.Param("offerId")
	var input struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	offer, err := h.Service.Respond(c.Request.Context(), offerID, *input.Accept)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// CancelBookingHandler cancels a booking that has not started yet.
func (h *DispatchHandler) CancelBookingHandler(c *gin.Context) {
	bookingID := c.Param("id")
	var input struct {
		Actor string `json:"actor"`
	}
	// Body is optional.
	_ = c.ShouldBindJSON(&input)
	if input.Actor == "" {
		input.Actor = models.ActorCustomer
	}

	booking, err := h.Service.Cancel(c.Request.Context(), bookingID, input.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(booking))
}

// SignalBookingHandler applies a lifecycle signal (dispatched, in_progress,
// completed, refunded).
func (h *DispatchHandler) SignalBookingHandler(c *gin.Context) {
	bookingID := c.Param("id")
	var input struct {
		Status string `json:"status" binding:"required"`
		Actor  string `json:"actor"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	to, err := models.ParseBookingStatus(input.Status)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid status", err.Error())
		return
	}
	if input.Actor == "" {
		input.Actor = models.ActorProvider
	}

	booking, err := h.Service.Signal(c.Request.Context(), bookingID, to, input.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(booking))
}

// GetBookingHandler returns the booking and its phase.
func (h *DispatchHandler) GetBookingHandler(c *gin.Context) {
	booking, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(booking))
}

func (h *DispatchHandler) writeError(c *gin.Context, err error) {
	status, message := dispatchErrorStatus(err)
	if status >= http.StatusInternalServerError {
		getLogger(c, h.Logger).Error("dispatch request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	utils.JSONError(c, status, message, err.Error())
}

func dispatchErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, dispatch.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid booking request"
	case errors.Is(err, dispatch.ErrBookingNotFound):
		return http.StatusNotFound, "booking not found"
	case errors.Is(err, dispatch.ErrOfferNotFound):
		return http.StatusNotFound, "offer not found"
	case errors.Is(err, dispatch.ErrOfferResolved):
		return http.StatusConflict, "offer already resolved"
	case errors.Is(err, dispatch.ErrConcurrentTransitionConflict):
		return http.StatusConflict, "booking changed concurrently, retry"
	case errors.Is(err, dispatch.ErrDispatchInProgress):
		return http.StatusConflict, "dispatch already running"
	case errors.Is(err, dispatch.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "transition not allowed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
