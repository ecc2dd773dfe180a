package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/ports"
)

// HabitHandler handles habit CRUD and streak completion. All routes sit
// behind the session middleware; ownership is enforced by the service.
type HabitHandler struct {
	habitService ports.HabitService
}

func NewHabitHandler(habitService ports.HabitService) *HabitHandler {
	return &HabitHandler{habitService: habitService}
}

type habitRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

type habitResponse struct {
	Habit *domain.Habit `json:"habit"`
}

type habitListResponse struct {
	Habits []*domain.Habit `json:"habits"`
}

// Create adds a habit for the current account.
//
// @Summary      Create a habit
// @Tags         habits
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      habitRequest  true  "Habit attributes"
// @Success      201   {object}  habitResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /habits [post]
func (h *HabitHandler) Create(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	var req habitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	habit, err := h.habitService.Create(c.Request().Context(), subject, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, habitResponse{Habit: habit})
}

// List returns the habits of the current account.
//
// @Summary      List own habits
// @Tags         habits
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  habitListResponse
// @Failure      401  {object}  map[string]string
// @Router       /habits [get]
func (h *HabitHandler) List(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	habits, err := h.habitService.List(c.Request().Context(), subject)
	if err != nil {
		return err
	}
	if habits == nil {
		habits = []*domain.Habit{}
	}
	return c.JSON(http.StatusOK, habitListResponse{Habits: habits})
}

// Rename changes the habit's name. Streak state is untouched.
//
// @Summary      Rename a habit
// @Tags         habits
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        id    path      string        true  "Habit id"
// @Param        body  body      habitRequest  true  "New name"
// @Success      200   {object}  habitResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /habits/{id} [put]
func (h *HabitHandler) Rename(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	var req habitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	habit, err := h.habitService.Rename(c.Request().Context(), subject, c.Param("id"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, habitResponse{Habit: habit})
}

// Delete removes a habit and its streak history.
//
// @Summary      Delete a habit
// @Tags         habits
// @Produce      json
// @Security     SessionCookie
// @Param        id  path  string  true  "Habit id"
// @Success      204  "habit deleted"
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /habits/{id} [delete]
func (h *HabitHandler) Delete(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	if err := h.habitService.Delete(c.Request().Context(), subject, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Complete marks the habit done for today and returns the updated streak.
// Completing twice on the same day returns the unchanged habit.
//
// @Summary      Complete a habit for today
// @Tags         habits
// @Produce      json
// @Security     SessionCookie
// @Param        id  path  string  true  "Habit id"
// @Success      200  {object}  habitResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /habits/{id}/complete [post]
func (h *HabitHandler) Complete(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	habit, err := h.habitService.Complete(c.Request().Context(), subject, c.Param("id"), time.Now().UTC())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, habitResponse{Habit: habit})
}
