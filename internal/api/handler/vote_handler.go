package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/ports"
)

// VoteHandler handles party administration, vote casting, and tallies.
type VoteHandler struct {
	voteService ports.VoteService
}

func NewVoteHandler(voteService ports.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

type partyRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description" validate:"max=1000"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url"`
}

type castRequest struct {
	PartyID string `json:"party_id" validate:"required"`
}

type partyResponse struct {
	Party *domain.Party `json:"party"`
}

type partyListResponse struct {
	Parties []*domain.Party `json:"parties"`
}

type voteResponse struct {
	Vote *domain.Vote `json:"vote"`
}

type voteListResponse struct {
	Votes []*domain.Vote `json:"votes"`
}

type tallyResponse struct {
	Tallies []ports.PartyTally `json:"tallies"`
}

// ListParties returns all parties. Public.
//
// @Summary      List parties
// @Tags         votes
// @Produce      json
// @Success      200  {object}  partyListResponse
// @Router       /parties [get]
func (h *VoteHandler) ListParties(c echo.Context) error {
	parties, err := h.voteService.ListParties(c.Request().Context())
	if err != nil {
		return err
	}
	if parties == nil {
		parties = []*domain.Party{}
	}
	return c.JSON(http.StatusOK, partyListResponse{Parties: parties})
}

// GetParty returns a single party.
//
// @Summary      Get a party
// @Tags         votes
// @Produce      json
// @Param        id  path  string  true  "Party id"
// @Success      200  {object}  partyResponse
// @Failure      404  {object}  map[string]string
// @Router       /parties/{id} [get]
func (h *VoteHandler) GetParty(c echo.Context) error {
	party, err := h.voteService.GetParty(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partyResponse{Party: party})
}

// CreateParty adds a party to the ballot. Admin only.
//
// @Summary      Create a party
// @Tags         votes
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      partyRequest  true  "Party attributes"
// @Success      201   {object}  partyResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /parties [post]
func (h *VoteHandler) CreateParty(c echo.Context) error {
	var req partyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	party, err := h.voteService.CreateParty(c.Request().Context(), ports.PartyInput{
		Name:        req.Name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, partyResponse{Party: party})
}

// UpdateParty changes a party's attributes. Admin only.
//
// @Summary      Update a party
// @Tags         votes
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        id    path      string        true  "Party id"
// @Param        body  body      partyRequest  true  "Party attributes"
// @Success      200   {object}  partyResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /parties/{id} [put]
func (h *VoteHandler) UpdateParty(c echo.Context) error {
	var req partyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	party, err := h.voteService.UpdateParty(c.Request().Context(), c.Param("id"), ports.PartyInput{
		Name:        req.Name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partyResponse{Party: party})
}

// DeleteParty removes a party and every vote cast for it. Admin only.
//
// @Summary      Delete a party
// @Tags         votes
// @Produce      json
// @Security     SessionCookie
// @Param        id  path  string  true  "Party id"
// @Success      204  "party and its votes deleted"
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /parties/{id} [delete]
func (h *VoteHandler) DeleteParty(c echo.Context) error {
	if err := h.voteService.DeleteParty(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Cast records the current account's vote, replacing any previous one.
//
// @Summary      Cast or change a vote
// @Tags         votes
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      castRequest  true  "Party to vote for"
// @Success      200   {object}  voteResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /votes [post]
func (h *VoteHandler) Cast(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	var req castRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	vote, err := h.voteService.Cast(c.Request().Context(), subject, req.PartyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, voteResponse{Vote: vote})
}

// Revoke withdraws the current account's vote.
//
// @Summary      Revoke own vote
// @Tags         votes
// @Produce      json
// @Security     SessionCookie
// @Success      204  "vote revoked"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /votes [delete]
func (h *VoteHandler) Revoke(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	if err := h.voteService.Revoke(c.Request().Context(), subject); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Mine returns the current account's vote, if any.
//
// @Summary      Get own vote
// @Tags         votes
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  voteResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /votes/mine [get]
func (h *VoteHandler) Mine(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	vote, err := h.voteService.Mine(c.Request().Context(), subject)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, voteResponse{Vote: vote})
}

// Tallies returns per-party vote counts. Public.
//
// @Summary      Vote tallies
// @Tags         votes
// @Produce      json
// @Success      200  {object}  tallyResponse
// @Router       /votes/tally [get]
func (h *VoteHandler) Tallies(c echo.Context) error {
	tallies, err := h.voteService.Tallies(c.Request().Context())
	if err != nil {
		return err
	}
	if tallies == nil {
		tallies = []ports.PartyTally{}
	}
	return c.JSON(http.StatusOK, tallyResponse{Tallies: tallies})
}

// All lists every vote with its voter. Admin only.
//
// @Summary      List all votes
// @Tags         votes
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  voteListResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/votes [get]
func (h *VoteHandler) All(c echo.Context) error {
	votes, err := h.voteService.AllVotes(c.Request().Context())
	if err != nil {
		return err
	}
	if votes == nil {
		votes = []*domain.Vote{}
	}
	return c.JSON(http.StatusOK, voteListResponse{Votes: votes})
}
