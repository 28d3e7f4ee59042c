package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/edenrobotics/egograph/ego"
)

func (s *Server) processEvent(c echo.Context) error {
	event := &ego.EventFrame{}
	if err := c.Bind(event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed event payload").SetInternal(err)
	}

	trace, err := s.engine.ProcessEvent(c.Request().Context(), event)
	if err != nil {
		if errors.Is(err, ego.ErrInvalidEvent) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process event").SetInternal(err)
	}
	return c.JSON(http.StatusOK, trace)
}

func (s *Server) processBatch(c echo.Context) error {
	var events []*ego.EventFrame
	if err := c.Bind(&events); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed batch payload").SetInternal(err)
	}
	if len(events) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}

	result := s.engine.ProcessBatch(c.Request().Context(), events)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getPersonality(c echo.Context) error {
	return c.JSON(http.StatusOK, s.graph.Personality())
}

type updateTraitRequest struct {
	Value float64 `json:"value"`
}

func (s *Server) updateTrait(c echo.Context) error {
	trait := c.Param("trait")

	req := &updateTraitRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed trait payload").SetInternal(err)
	}

	personality, err := s.graph.SetTrait(c.Request().Context(), trait, req.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if s.hub != nil {
		s.hub.Publish(ego.ChangeEvent{Type: ego.ChangePersonalityUpdated, Payload: personality})
	}
	return c.JSON(http.StatusOK, personality)
}

func (s *Server) getGraphSnapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, s.graph.Snapshot())
}

func (s *Server) listUserMemories(c echo.Context) error {
	user := c.QueryParam("user")
	if user == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user query parameter is required")
	}
	return c.JSON(http.StatusOK, s.graph.UserMemories(user))
}

func (s *Server) searchEpisodic(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q query parameter is required")
	}

	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	results, err := s.episodic.Search(c.Request().Context(), query, c.QueryParam("user"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "episodic search failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, results)
}

type injectRequest struct {
	Description string `json:"description"`
}

type injectResponse struct {
	MemoryID    string                `json:"memory_id"`
	Personality ego.PersonalityVector `json:"personality"`
}

func (s *Server) injectTrauma(c echo.Context) error {
	return s.inject(c, s.graph.InjectTrauma)
}

func (s *Server) injectKindness(c echo.Context) error {
	return s.inject(c, s.graph.InjectKindness)
}

func (s *Server) inject(c echo.Context, fn func(ctx context.Context, description string) (string, ego.PersonalityVector, error)) error {
	req := &injectRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed inject payload").SetInternal(err)
	}
	if req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "description is required")
	}

	memoryID, personality, err := fn(c.Request().Context(), req.Description)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "injection failed").SetInternal(err)
	}

	if s.hub != nil {
		s.hub.Publish(ego.ChangeEvent{Type: ego.ChangePersonalityUpdated, Payload: personality})
	}
	return c.JSON(http.StatusOK, &injectResponse{MemoryID: memoryID, Personality: personality})
}
