package controllers

import (
	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/services"
	"tvcms/utils"
)

type ProgramController struct {
	programs *services.ProgramService
}

func NewProgramController(programs *services.ProgramService) *ProgramController {
	return &ProgramController{programs: programs}
}

// List returns the active programs in broadcast order
func (pc *ProgramController) List(c *gin.Context) {
	programs, err := pc.programs.List(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Programs retrieved successfully", programs)
}

func (pc *ProgramController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id", "program")
	if !ok {
		return
	}

	program, err := pc.programs.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Program retrieved successfully", program)
}

func (pc *ProgramController) Create(c *gin.Context) {
	var req models.CreateProgramRequest
	if !bindJSON(c, &req) {
		return
	}

	program, err := pc.programs.Create(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, "Program created successfully", program)
}

func (pc *ProgramController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id", "program")
	if !ok {
		return
	}

	var req models.UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data")
		return
	}

	program, err := pc.programs.Update(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Program updated successfully", program)
}

func (pc *ProgramController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id", "program")
	if !ok {
		return
	}

	if err := pc.programs.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Program deleted successfully", nil)
}
