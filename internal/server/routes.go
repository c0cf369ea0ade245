package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"graph2sql/internal/config"
	"graph2sql/internal/migrate"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	g := s.echo.Group("/migration")
	g.POST("/export", s.exportHandler)
	g.GET("/tables/:table/exists", s.tableExistsHandler)
	g.GET("/refs", s.refsHandler)
	g.GET("/plan", s.planHandler)
}

// exportRequest carries warehouse connection parameters. Empty fields keep
// the configured value.
type exportRequest struct {
	Kind         string `json:"kind" validate:"omitempty,oneof=postgres sqlite mssql mysql snowflake"`
	DSN          string `json:"dsn"`
	VertexSchema string `json:"vertex_schema" validate:"omitempty,max=128"`
	EdgeSchema   string `json:"edge_schema" validate:"omitempty,max=128"`
	Account      string `json:"account"`
	User         string `json:"user"`
	Password     string `json:"password"`
	Database     string `json:"database"`
	Warehouse    string `json:"warehouse"`
	Role         string `json:"role"`
	Prefix       string `json:"prefix"`
}

func (r exportRequest) apply(m config.Migration) config.Migration {
	w := &m.Warehouse
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&w.Kind, r.Kind)
	set(&w.DSN, r.DSN)
	set(&w.VertexSchema, r.VertexSchema)
	set(&w.EdgeSchema, r.EdgeSchema)
	set(&w.Account, r.Account)
	set(&w.User, r.User)
	set(&w.Password, r.Password)
	set(&w.Database, r.Database)
	set(&w.Warehouse, r.Warehouse)
	set(&w.Role, r.Role)
	set(&m.Source.Prefix, r.Prefix)
	return m
}

type errorResponse struct {
	Error  string          `json:"error"`
	Issues []config.Issue  `json:"issues,omitempty"`
	Result *migrate.Result `json:"result,omitempty"`
}

func (s *Server) exportHandler(c echo.Context) error {
	req := new(exportRequest)
	if c.Request().ContentLength != 0 {
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		}
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	m := req.apply(s.cfg)
	if issues := config.Validate(m); config.HasErrors(issues) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid migration configuration", Issues: issues})
	}

	if !s.running.CompareAndSwap(false, true) {
		return c.JSON(http.StatusConflict, errorResponse{Error: migrate.ErrRunning.Error()})
	}
	defer s.running.Store(false)

	ctx := c.Request().Context()
	o, err := s.newOrc(ctx, m, s.log)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	res, err := o.Run(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, migrate.ErrRunning) {
			status = http.StatusConflict
		}
		return c.JSON(status, errorResponse{Error: err.Error(), Result: res})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) tableExistsHandler(c echo.Context) error {
	table := c.Param("table")
	ctx := c.Request().Context()
	o, err := s.newOrc(ctx, s.cfg, s.log)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	ok, err := o.TableExists(ctx, table)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, migrate.ErrConnection) {
			status = http.StatusBadGateway
		}
		return c.JSON(status, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"table": table, "exists": ok})
}

func (s *Server) refsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	o, err := s.newOrc(ctx, s.cfg, s.log)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	refs, err := o.EdgeRefs(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, refs)
}

func (s *Server) planHandler(c echo.Context) error {
	ctx := c.Request().Context()
	o, err := s.newOrc(ctx, s.cfg, s.log)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	plan, err := o.Plan(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, plan)
}
