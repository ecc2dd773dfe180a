package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/ports"
)

// BusHandler handles the admin-only bus fleet endpoints plus the public
// listing. Mutating routes sit behind the RBAC middleware.
type BusHandler struct {
	bookingService ports.BookingService
}

func NewBusHandler(bookingService ports.BookingService) *BusHandler {
	return &BusHandler{bookingService: bookingService}
}

type busRequest struct {
	BusNumber string `json:"bus_number" validate:"required,min=1,max=32"`
	Capacity  int    `json:"capacity" validate:"required,gt=0"`
	Route     string `json:"route" validate:"required,min=1,max=200"`
	Status    string `json:"status" validate:"omitempty,oneof=active maintenance inactive"`
}

type busResponse struct {
	Bus *domain.Bus `json:"bus"`
}

type busListResponse struct {
	Buses []*domain.Bus `json:"buses"`
}

// List returns the fleet with remaining capacity per bus.
//
// @Summary      List buses
// @Tags         buses
// @Produce      json
// @Success      200  {object}  busListResponse
// @Router       /buses [get]
func (h *BusHandler) List(c echo.Context) error {
	buses, err := h.bookingService.ListBuses(c.Request().Context())
	if err != nil {
		return err
	}
	if buses == nil {
		buses = []*domain.Bus{}
	}
	return c.JSON(http.StatusOK, busListResponse{Buses: buses})
}

// Create registers a new bus.
//
// @Summary      Create a bus
// @Tags         buses
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      busRequest  true  "Bus attributes"
// @Success      201   {object}  busResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /buses [post]
func (h *BusHandler) Create(c echo.Context) error {
	var req busRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	bus, err := h.bookingService.CreateBus(c.Request().Context(), ports.CreateBusInput{
		BusNumber: req.BusNumber,
		Capacity:  req.Capacity,
		Route:     req.Route,
		Status:    req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, busResponse{Bus: bus})
}

// Update changes a bus's number, route, status, or total capacity. Shrinking
// capacity below the number of already-booked seats is rejected.
//
// @Summary      Update a bus
// @Tags         buses
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        id    path      string      true  "Bus id"
// @Param        body  body      busRequest  true  "Bus attributes"
// @Success      200   {object}  busResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /buses/{id} [put]
func (h *BusHandler) Update(c echo.Context) error {
	var req busRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	bus, err := h.bookingService.UpdateBus(c.Request().Context(), c.Param("id"), ports.CreateBusInput{
		BusNumber: req.BusNumber,
		Capacity:  req.Capacity,
		Route:     req.Route,
		Status:    req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, busResponse{Bus: bus})
}

// Delete removes a bus. Buses with booked tickets cannot be deleted.
//
// @Summary      Delete a bus
// @Tags         buses
// @Produce      json
// @Security     SessionCookie
// @Param        id  path  string  true  "Bus id"
// @Success      204  "bus deleted"
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /buses/{id} [delete]
func (h *BusHandler) Delete(c echo.Context) error {
	if err := h.bookingService.DeleteBus(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
