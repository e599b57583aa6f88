package controllers

import (
	"github.com/gin-gonic/gin"

	"tvcms/services"
	"tvcms/utils"
)

// actorFrom builds the acting subject for a request. The user is nil on public routes.
func actorFrom(c *gin.Context) services.Actor {
	user, _ := utils.GetUserFromContext(c)
	return services.Actor{
		User:      user,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// bindJSON decodes and validates a JSON body, writing the error response on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data")
		return false
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return false
	}
	return true
}

// uuidParam reads a path parameter that must be a UUID
func uuidParam(c *gin.Context, name, label string) (string, bool) {
	id := c.Param(name)
	if !utils.IsValidUUID(id) {
		utils.BadRequestResponse(c, "Invalid "+label+" ID")
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	return utils.ParseIntDefault(c.Query(key), fallback)
}
