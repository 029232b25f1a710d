package controller

import (
	"net/http"
	"strconv"

	"github.com/angeloszaimis/exception-flow/internal/apperr"
	"github.com/angeloszaimis/exception-flow/internal/respond"
)

// StatusController serves failures that carry their own HTTP status.
type StatusController struct{}

func NewStatusController() *StatusController {
	return &StatusController{}
}

func (c *StatusController) ResponseStatusEx1(w http.ResponseWriter, r *http.Request) error {
	return apperr.BadRequest()
}

func (c *StatusController) ResponseStatusEx2(w http.ResponseWriter, r *http.Request) error {
	return apperr.NewStatus(http.StatusNotFound, "error.bad", apperr.InvalidArgument("invalid member lookup"))
}

// DefaultHandlerEx requires an integer "data" query parameter.
func (c *StatusController) DefaultHandlerEx(w http.ResponseWriter, r *http.Request) error {
	raw := r.URL.Query().Get("data")
	if raw == "" {
		return apperr.NewStatus(http.StatusBadRequest, "required parameter 'data' is not present", nil)
	}

	if _, err := strconv.Atoi(raw); err != nil {
		return apperr.NewTypeMismatch("data", raw, "int", err)
	}

	return respond.Text(w, http.StatusOK, "ok")
}
