package controller

import (
	"net/http"

	"github.com/angeloszaimis/exception-flow/internal/apperr"
	"github.com/angeloszaimis/exception-flow/internal/errorpage"
)

// ErrorTriggerController answers straight from the container, without any
// resolver involved.
type ErrorTriggerController struct{}

func NewErrorTriggerController() *ErrorTriggerController {
	return &ErrorTriggerController{}
}

func (c *ErrorTriggerController) ErrorEx(w http.ResponseWriter, r *http.Request) error {
	return apperr.Unexpected("exception occur!!!")
}

func (c *ErrorTriggerController) Error400(w http.ResponseWriter, r *http.Request) error {
	return errorpage.SendError(w, http.StatusBadRequest, "400 error!!")
}

func (c *ErrorTriggerController) Error404(w http.ResponseWriter, r *http.Request) error {
	return errorpage.SendError(w, http.StatusNotFound, "404 error!!")
}

func (c *ErrorTriggerController) Error500(w http.ResponseWriter, r *http.Request) error {
	return errorpage.SendError(w, http.StatusInternalServerError, "500 error!")
}
