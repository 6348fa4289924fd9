package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kamacharovs/aiof-asset/internal/tenant"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
)

const (
	MIMEApplicationProblemJSON = "application/problem+json"

	msgUnexpected   = "An unexpected error has occurred"
	msgValidation   = "One or more validation errors have occurred. Please see errors for details"
	msgUnauthorized = "Unauthorized. Missing, invalid or expired credentials provided"
	msgForbidden    = "Forbidden. You don't have enough permissions to access this API"
)

type Meta struct {
	Total int `json:"total"`
}

type Res struct {
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Problem is the body of every error response.
type Problem struct {
	Message string               `json:"message"`
	Code    int                  `json:"code"`
	TraceID string               `json:"traceId"`
	Errors  []usecase.FieldError `json:"errors,omitempty"`
	Detail  string               `json:"detail,omitempty"`
}

// errorHandler maps errors returned by handlers and middlewares to a Problem.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	p := Problem{
		Code:    http.StatusInternalServerError,
		Message: msgUnexpected,
		TraceID: traceID(c),
	}

	var (
		he *echo.HTTPError
		ve *usecase.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		p.Code = http.StatusBadRequest
		p.Message = msgValidation
		p.Errors = ve.Errors
	case errors.Is(err, usecase.ErrBadRequest):
		p.Code = http.StatusBadRequest
		p.Message = trimKind(err, usecase.ErrBadRequest)
	case errors.Is(err, usecase.ErrNotFound):
		p.Code = http.StatusNotFound
		p.Message = trimKind(err, usecase.ErrNotFound)
	case errors.Is(err, tenant.ErrNoTenant):
		p.Code = http.StatusUnauthorized
		p.Message = msgUnauthorized
	case errors.As(err, &he):
		p.Code = he.Code
		p.Message = fmt.Sprint(he.Message)
		if he.Code == http.StatusForbidden {
			p.Message = msgForbidden
		}
	default:
		s.logger.ErrorContext(c.Request().Context(), msgUnexpected,
			slog.String("trace_id", p.TraceID),
			slog.String("err", err.Error()))
		if s.cfg.IsLocal() {
			p.Detail = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(p.Code)
	} else {
		err = problem(c, p)
	}
	if err != nil {
		s.logger.ErrorContext(c.Request().Context(), "failed to write error response", slog.String("err", err.Error()))
	}
}

func problem(c echo.Context, p Problem) error {
	c.Response().Header().Set(echo.HeaderContentType, MIMEApplicationProblemJSON)
	return c.JSON(p.Code, p)
}

func traceID(c echo.Context) string {
	id := c.Response().Header().Get(echo.HeaderXRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	return "aiof:asset:error:" + id
}

// trimKind drops the trailing error kind from a wrapped message.
func trimKind(err, kind error) string {
	return strings.TrimSuffix(err.Error(), ": "+kind.Error())
}
