package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/services"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
)

type StudentHandler struct {
	BaseHandler
	service   services.StudentService
	validator *validator.Validator
}

func NewStudentHandler(service services.StudentService, validator *validator.Validator, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		validator:   validator,
	}
}

// SubmitForm stores a learner form against a UID. It is unauthenticated.
// @Summary Submit learner form
// @Tags students
// @Accept json
// @Produce json
// @Param uid path string true "UID"
// @Param form body models.CreateStudentRequest true "Learner form"
// @Success 201 {object} models.Student
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Submissions are closed for this UID"
// @Router /public/uids/{uid}/students [post]
func (h *StudentHandler) SubmitForm(c *gin.Context) {
	var req models.CreateStudentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	uid := c.Param("uid")
	h.LogRequest(c, "Learner form submitted", "uid", uid)

	student, err := h.service.Submit(c.Request.Context(), uid, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

// ListStudents lists students on the UIDs visible to the caller
// @Summary List students
// @Tags students
// @Produce json
// @Param status query string false "Filter by student status"
// @Param uid query string false "Filter by UID"
// @Success 200 {object} models.StudentListResponse
// @Router /students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.ListStudentsRequest
	if s := c.Query("status"); s != "" {
		status := models.StudentStatus(s)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unknown student status", Details: s})
			return
		}
		req.Status = &status
	}
	if uid := c.Query("uid"); uid != "" {
		req.UID = &uid
	}

	list, err := h.service.List(c.Request.Context(), actor, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *StudentHandler) UpdateStudentStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req models.UpdateStudentStatusRequest
	if !h.bindJSON(c, &req) || !h.validate(c, h.validator, &req) {
		return
	}

	student, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("uid"), c.Param("student_id"), req.Status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}
