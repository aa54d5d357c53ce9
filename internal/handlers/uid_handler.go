package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/services"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
)

type UidHandler struct {
	BaseHandler
	uidService services.UidService
	validator  *validator.Validator
}

func NewUidHandler(
	uidService services.UidService,
	validator *validator.Validator,
	logger utils.Logger,
) *UidHandler {
	return &UidHandler{
		BaseHandler: NewBaseHandler(logger),
		uidService:  uidService,
		validator:   validator,
	}
}

// CreateUid allocates the next UID
// @Summary Create UID
// @Description Allocates a new UID in pending status. The body is optional.
// @Tags uids
// @Accept json
// @Produce json
// @Param uid body models.CreateUidRequest false "Assessor profile"
// @Success 201 {object} models.UidRecord
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /uids [post]
func (h *UidHandler) CreateUid(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req models.CreateUidRequest
	if c.Request.ContentLength > 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	}

	record, err := h.uidService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetUid retrieves a UID visible to the caller
// @Summary Get UID
// @Tags uids
// @Produce json
// @Param uid path string true "UID"
// @Success 200 {object} models.UidRecord
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /uids/{uid} [get]
func (h *UidHandler) GetUid(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	uid := c.Param("uid")
	h.LogRequest(c, "Getting UID", "uid", uid)

	record, err := h.uidService.Get(c.Request.Context(), actor, uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListUids lists the UIDs the caller may see
// @Summary List UIDs
// @Tags uids
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} models.UidListResponse
// @Router /uids [get]
func (h *UidHandler) ListUids(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	req := services.ListUidsRequest{
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
	if s := c.Query("status"); s != "" {
		status := models.UidStatus(s)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unknown UID status", Details: s})
			return
		}
		req.Status = &status
	}

	list, err := h.uidService.List(c.Request.Context(), actor, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// UpdateUidStatus moves a UID along one workflow edge
// @Summary Update UID status
// @Tags uids
// @Accept json
// @Produce json
// @Param uid path string true "UID"
// @Param status body models.UpdateUidStatusRequest true "Target status"
// @Success 200 {object} models.UidRecord
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /uids/{uid}/status [put]
func (h *UidHandler) UpdateUidStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req models.UpdateUidStatusRequest
	if !h.bindJSON(c, &req) || !h.validate(c, h.validator, &req) {
		return
	}

	record, err := h.uidService.UpdateStatus(c.Request.Context(), actor, c.Param("uid"), req.Status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteUid removes a UID and everything attached to it
// @Summary Delete UID
// @Tags uids
// @Produce json
// @Param uid path string true "UID"
// @Success 200 {object} models.DeleteUidResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /uids/{uid} [delete]
func (h *UidHandler) DeleteUid(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	uid := c.Param("uid")
	if err := h.uidService.Delete(c.Request.Context(), actor, uid); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DeleteUidResponse{UID: uid, Deleted: true})
}

// SetAssignment binds or clears the assessor and moderator of a UID
// @Summary Set UID assignment
// @Tags uids
// @Accept json
// @Produce json
// @Param uid path string true "UID"
// @Param assignment body models.SetAssignmentRequest true "Bindings; omit to keep, empty string to clear"
// @Success 200 {object} models.UidRecord
// @Router /uids/{uid}/assignment [put]
func (h *UidHandler) SetAssignment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req models.SetAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	record, err := h.uidService.SetAssignment(c.Request.Context(), actor, c.Param("uid"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetHistory returns the status history of a UID and its students
func (h *UidHandler) GetHistory(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	history, err := h.uidService.History(c.Request.Context(), actor, c.Param("uid"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history, "total": len(history)})
}

// ===== WORKFLOW ACTIONS =====

// SaveAttendance stores the attendance sheet
// @Summary Save attendance sheet
// @Tags workflow
// @Accept json
// @Produce json
// @Param uid path string true "UID"
// @Param document body models.DocumentRequest true "Attendance sheet"
// @Success 200 {object} models.UidRecord
// @Failure 409 {object} ErrorResponse
// @Router /uids/{uid}/attendance [post]
func (h *UidHandler) SaveAttendance(c *gin.Context) {
	h.saveDocument(c, h.uidService.SaveAttendance)
}

// SaveModeration stores the moderation record
// @Summary Save moderation record
// @Tags workflow
// @Accept json
// @Produce json
// @Param uid path string true "UID"
// @Param document body models.DocumentRequest true "Moderation record"
// @Success 200 {object} models.UidRecord
// @Failure 409 {object} ErrorResponse
// @Router /uids/{uid}/moderation [post]
func (h *UidHandler) SaveModeration(c *gin.Context) {
	h.saveDocument(c, h.uidService.SaveModeration)
}

func (h *UidHandler) GetAttendance(c *gin.Context) {
	h.getDocument(c, models.DocumentAttendance)
}

func (h *UidHandler) GetModeration(c *gin.Context) {
	h.getDocument(c, models.DocumentModeration)
}

func (h *UidHandler) MarkReviewComplete(c *gin.Context) {
	h.runAction(c, "review_complete", h.uidService.MarkReviewComplete)
}

func (h *UidHandler) SendToModerator(c *gin.Context) {
	h.runAction(c, "send_to_moderator", h.uidService.SendToModerator)
}

func (h *UidHandler) SendToAdmin(c *gin.Context) {
	h.runAction(c, "send_to_admin", h.uidService.SendToAdmin)
}

func (h *UidHandler) Approve(c *gin.Context) {
	h.runAction(c, "approve", h.uidService.Approve)
}

type uidAction func(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error)

func (h *UidHandler) runAction(c *gin.Context, name string, action uidAction) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	uid := c.Param("uid")
	h.LogRequest(c, "Running workflow action", "action", name, "uid", uid)

	record, err := action(c.Request.Context(), actor, uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

type documentSaver func(ctx context.Context, actor models.Actor, uid string, req *models.DocumentRequest) (*models.UidRecord, error)

func (h *UidHandler) saveDocument(c *gin.Context, save documentSaver) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req models.DocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	record, err := save(c.Request.Context(), actor, c.Param("uid"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *UidHandler) getDocument(c *gin.Context, kind models.DocumentKind) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	doc, err := h.uidService.GetDocument(c.Request.Context(), actor, c.Param("uid"), kind)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
