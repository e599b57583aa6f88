package controllers

import (
	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/services"
	"tvcms/utils"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// List returns users with search, role filter and pagination
func (uc *UserController) List(c *gin.Context) {
	var q models.UserListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequestResponse(c, "Invalid query parameters")
		return
	}
	q.Page, q.Limit = utils.NormalizePagination(q.Page, q.Limit)

	users, total, err := uc.users.List(c.Request.Context(), q)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.PaginatedResponse(c, "Users retrieved successfully", users, q.Page, q.Limit, total)
}

// Get returns a single user
func (uc *UserController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id", "user")
	if !ok {
		return
	}

	user, err := uc.users.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "User retrieved successfully", user)
}

// Create adds a user account
func (uc *UserController) Create(c *gin.Context) {
	var req models.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := uc.users.Create(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, "User created successfully", user)
}

// Update applies a partial update
func (uc *UserController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id", "user")
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data")
		return
	}

	user, err := uc.users.Update(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "User updated successfully", user)
}

// Delete removes a user account
func (uc *UserController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id", "user")
	if !ok {
		return
	}

	if err := uc.users.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "User deleted successfully", nil)
}

// ChangePassword sets a new password for the user themself or, for admins, anyone
func (uc *UserController) ChangePassword(c *gin.Context) {
	id, ok := uuidParam(c, "id", "user")
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := uc.users.ChangePassword(c.Request.Context(), actorFrom(c), id, &req); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Password changed successfully", nil)
}
