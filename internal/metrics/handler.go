package metrics

import (
	"net/http"

	"github.com/angeloszaimis/exception-flow/internal/respond"
)

func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := respond.JSON(w, http.StatusOK, c.metrics.Snapshot()); err != nil {
			c.logger.Warn("failed to encode metrics snapshot", "err", err)
		}
	}
}
