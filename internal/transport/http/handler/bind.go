package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"aichat-backend/internal/transport/http/response"
)

// bindJSON decodes the body into req. Missing required fields answer 400 with
// fieldsMessage; an undecodable body answers 400 "bad request".
func bindJSON(c *gin.Context, req interface{}, fieldsMessage string) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.Error(c, http.StatusBadRequest, fieldsMessage)
	} else {
		response.Error(c, http.StatusBadRequest, "bad request")
	}
	return false
}
