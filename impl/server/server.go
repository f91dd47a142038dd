// Package server implements the read-only query API over stored units and
// repository tags, plus the health and stop endpoints.
package server

import (
	"errors"
	"net/http"

	"github.com/aceeric/layerimport/impl/metrics"
	"github.com/aceeric/layerimport/impl/models"
	"github.com/aceeric/layerimport/impl/scratchpad"
	"github.com/aceeric/layerimport/impl/units"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// TagSource returns the tags of a repository.
type TagSource interface {
	Tags(repoID string) ([]models.TagEntry, error)
}

type Server struct {
	units      units.Catalog
	tags       TagSource
	shutdownCh chan bool
}

// errorBody is the JSON body of every non-2xx response
type errorBody struct {
	Error string `json:"error"`
}

// New returns a server over the passed catalog and tag source. A GET on
// /cmd/stop sends on 'shutdownCh'.
func New(catalog units.Catalog, tags TagSource, shutdownCh chan bool) *Server {
	return &Server{
		units:      catalog,
		tags:       tags,
		shutdownCh: shutdownCh,
	}
}

// Register adds the server's routes to 'e'.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.Health)
	e.GET("/v1/repos/:repo/tags", s.RepoTags)
	e.GET("/v1/units", s.ListUnits)
	e.GET("/v1/units/:id", s.GetUnit)
	e.GET("/cmd/stop", s.CmdStop)
}

// GET /health
func (s *Server) Health(ctx echo.Context) error {
	return ctx.NoContent(http.StatusOK)
}

// GET /v1/repos/:repo/tags
func (s *Server) RepoTags(ctx echo.Context) error {
	metrics.IncApiRequests()
	repo := ctx.Param("repo")
	tags, err := s.tags.Tags(repo)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{models.ScratchpadTags: tags})
}

// GET /v1/units?repo=...
func (s *Server) ListUnits(ctx echo.Context) error {
	metrics.IncApiRequests()
	recs, err := s.units.List(ctx.QueryParam("repo"))
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, recs)
}

// GET /v1/units/:id
func (s *Server) GetUnit(ctx echo.Context) error {
	metrics.IncApiRequests()
	rec, err := s.units.Get(ctx.Param("id"))
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, rec)
}

// GET /cmd/stop
func (s *Server) CmdStop(ctx echo.Context) error {
	select {
	case s.shutdownCh <- true:
	default:
		log.Warn("stop already requested")
	}
	return ctx.NoContent(http.StatusOK)
}

// fail maps domain errors to HTTP status codes
func (s *Server) fail(ctx echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, units.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, units.ErrInvalidImageID), errors.Is(err, scratchpad.ErrInvalidRepo):
		status = http.StatusBadRequest
	default:
		log.Errorf("error handling %s: %s", ctx.Request().RequestURI, err)
	}
	return ctx.JSON(status, errorBody{Error: err.Error()})
}
