package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/logger"
	"github.com/jheiberg/17peppertree/services"
	"github.com/jheiberg/17peppertree/utils"
)

// parseID reads the numeric :id route parameter. A non-numeric id gets a
// 400 written; callers just return on !ok.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid id parameter")
		return 0, false
	}
	return uint(id), true
}

// respondServiceError maps the service error taxonomy onto HTTP codes:
// validation 400, conflict 400, not-found 404, anything else 500 with a
// generic message.
func respondServiceError(c *gin.Context, err error, notFoundMsg, internalMsg string) {
	var verr services.ValidationError
	var cerr services.ConflictError

	switch {
	case errors.As(err, &verr):
		utils.JSONError(c, http.StatusBadRequest, verr.Error())
	case errors.As(err, &cerr):
		utils.JSONError(c, http.StatusBadRequest, cerr.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, notFoundMsg)
	default:
		logger.Log.Error("request failed",
			"path", c.Request.URL.Path, "err", err)
		utils.JSONError(c, http.StatusInternalServerError, internalMsg)
	}
}
