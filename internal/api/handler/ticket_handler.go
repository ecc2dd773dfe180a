package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/ports"
)

// TicketHandler handles seat booking and cancellation.
type TicketHandler struct {
	bookingService ports.BookingService
}

func NewTicketHandler(bookingService ports.BookingService) *TicketHandler {
	return &TicketHandler{bookingService: bookingService}
}

type bookRequest struct {
	BusID string `json:"bus_id" validate:"required"`
	Seats int    `json:"seats" validate:"required,gt=0"`
}

type ticketResponse struct {
	Ticket *domain.Ticket `json:"ticket"`
}

type ticketListResponse struct {
	Tickets []ports.TicketView `json:"tickets"`
}

// Book reserves seats on a bus and issues a ticket. The reservation is
// atomic: when two requests race for the last seats, exactly one wins.
//
// @Summary      Book seats
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      bookRequest  true  "Bus and seat count"
// @Success      201   {object}  ticketResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /tickets [post]
func (h *TicketHandler) Book(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ticket, err := h.bookingService.Book(c.Request().Context(), subject, req.BusID, req.Seats)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ticketResponse{Ticket: ticket})
}

// Cancel flips a booked ticket to canceled and returns its seats to the bus.
//
// @Summary      Cancel a ticket
// @Tags         tickets
// @Produce      json
// @Security     SessionCookie
// @Param        id  path  string  true  "Ticket id"
// @Success      200  {object}  ticketResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /tickets/{id}/cancel [post]
func (h *TicketHandler) Cancel(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	ticket, err := h.bookingService.Cancel(c.Request().Context(), subject, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ticketResponse{Ticket: ticket})
}

// Mine lists the current account's tickets with their buses.
//
// @Summary      List own tickets
// @Tags         tickets
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  ticketListResponse
// @Failure      401  {object}  map[string]string
// @Router       /tickets [get]
func (h *TicketHandler) Mine(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	tickets, err := h.bookingService.MyTickets(c.Request().Context(), subject)
	if err != nil {
		return err
	}
	if tickets == nil {
		tickets = []ports.TicketView{}
	}
	return c.JSON(http.StatusOK, ticketListResponse{Tickets: tickets})
}

// All lists every ticket in the system. Admin only.
//
// @Summary      List all tickets
// @Tags         tickets
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  ticketListResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/tickets [get]
func (h *TicketHandler) All(c echo.Context) error {
	tickets, err := h.bookingService.AllTickets(c.Request().Context())
	if err != nil {
		return err
	}
	if tickets == nil {
		tickets = []ports.TicketView{}
	}
	return c.JSON(http.StatusOK, ticketListResponse{Tickets: tickets})
}
