package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/services"
)

type PersonaHandler struct {
	personaService services.PersonaService
}

func NewPersonaHandler(personaService services.PersonaService) *PersonaHandler {
	return &PersonaHandler{personaService: personaService}
}

func (ph *PersonaHandler) Generate(c *gin.Context) {
	var req struct {
		AudienceDescription string `json:"audience_description"`
		PersonaGroup        string `json:"persona_group"`
		ShortDescription    string `json:"short_description"`
		TotalPersonas       int    `json:"total_personas"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	job, err := ph.personaService.StartGeneration(c.Request.Context(), req.AudienceDescription, req.PersonaGroup, req.ShortDescription, req.TotalPersonas)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "generation_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (ph *PersonaHandler) ListGroups(c *gin.Context) {
	groups, err := ph.personaService.ListGroups(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusBadRequest, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"groups": groups})
}

func (ph *PersonaHandler) ListGroupPersonas(c *gin.Context) {
	group := c.Param("group")
	personas, err := ph.personaService.ListGroupPersonas(c.Request.Context(), group)
	if err != nil {
		RespondError(c, http.StatusNotFound, "group_not_found", err)
		return
	}
	RespondOK(c, gin.H{"personas": personas})
}

func (ph *PersonaHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	job, err := ph.personaService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

func (ph *PersonaHandler) ListPersonas(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	personas, err := ph.personaService.ListPersonas(c.Request.Context(), jobID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"personas": personas})
}
