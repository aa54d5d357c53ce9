package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-workflow-service/internal/services"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	BaseHandler
	service services.ExportService
}

func NewExportHandler(service services.ExportService, logger utils.Logger) *ExportHandler {
	return &ExportHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ExportUids downloads every UID and student as a workbook. The workbook is
// built in memory so a failure still produces a JSON error response.
func (h *ExportHandler) ExportUids(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportUids(c.Request.Context(), actor, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("uids-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
