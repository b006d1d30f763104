package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/services"
)

type ExperimentHandler struct {
	experimentService services.ExperimentService
}

func NewExperimentHandler(experimentService services.ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{experimentService: experimentService}
}

func (eh *ExperimentHandler) Create(c *gin.Context) {
	var req struct {
		IdeaText     string `json:"idea_text"`
		QuestionText string `json:"question_text"`
		PersonaGroup string `json:"persona_group"`
		Title        string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	experiment, err := eh.experimentService.Create(c.Request.Context(), req.IdeaText, req.QuestionText, req.PersonaGroup, req.Title)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"experiment": experiment})
}

func (eh *ExperimentHandler) List(c *gin.Context) {
	experiments, err := eh.experimentService.List(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusBadRequest, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"experiments": experiments})
}

func (eh *ExperimentHandler) Get(c *gin.Context) {
	experimentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	experiment, err := eh.experimentService.Get(c.Request.Context(), experimentID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "experiment_not_found", err)
		return
	}
	RespondOK(c, gin.H{"experiment": experiment})
}

func (eh *ExperimentHandler) Delete(c *gin.Context) {
	experimentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := eh.experimentService.Delete(c.Request.Context(), experimentID); err != nil {
		RespondError(c, http.StatusBadRequest, "delete_failed", err)
		return
	}
	RespondOK(c, gin.H{"message": "experiment deleted"})
}

func (eh *ExperimentHandler) Run(c *gin.Context) {
	experimentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	experiment, err := eh.experimentService.Run(c.Request.Context(), experimentID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "run_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"experiment": experiment})
}

func (eh *ExperimentHandler) RunStatus(c *gin.Context) {
	experimentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	status, err := eh.experimentService.RunStatus(c.Request.Context(), experimentID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "experiment_not_found", err)
		return
	}
	RespondOK(c, gin.H{"status": status})
}

func (eh *ExperimentHandler) Responses(c *gin.Context) {
	experimentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	responses, err := eh.experimentService.Responses(c.Request.Context(), experimentID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "experiment_not_found", err)
		return
	}
	RespondOK(c, gin.H{"responses": responses})
}
