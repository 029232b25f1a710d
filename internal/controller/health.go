package controller

import (
	"net/http"

	"github.com/angeloszaimis/exception-flow/internal/respond"
)

func Health(w http.ResponseWriter, r *http.Request) error {
	return respond.Text(w, http.StatusOK, "ok")
}
