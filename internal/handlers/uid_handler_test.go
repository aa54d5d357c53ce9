package handlers

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/services"
)

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])

	require.NoError(t, s.sm.Shutdown(t.Context()))
	w = s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_Authentication(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		actor *models.Actor
		path  string
		want  int
	}{
		{"no identity", nil, "/api/v1/uids", http.StatusUnauthorized},
		{"system role is not assertable", &models.Actor{ID: "x", Role: models.RoleSystem}, "/api/v1/uids", http.StatusUnauthorized},
		{"unknown role", &models.Actor{ID: "x", Role: "root"}, "/api/v1/uids", http.StatusUnauthorized},
		{"learner on staff route", &learner, "/api/v1/uids", http.StatusForbidden},
		{"assessor on admin route", &assessor1, "/api/v1/users", http.StatusForbidden},
		{"assessor listing uids", &assessor1, "/api/v1/uids", http.StatusOK},
		{"admin passes every gate", &admin, "/api/v1/dashboard/stats", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.path, tt.actor, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestUidHandler_FullWorkflow(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)
	base := "/api/v1/uids/" + uid

	attendance := map[string]interface{}{"data": map[string][]string{"present": {"Ada"}}}
	w := s.do(t, http.MethodPost, base+"/attendance", &assessor1, attendance)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.UidAssessorStarted, decode[models.UidRecord](t, w).Status)

	student := s.submit(t, uid, "Ada Lovelace")
	assert.Equal(t, models.StudentPendingReview, student.Status)

	studentPath := base + "/students/" + student.ID + "/status"
	w = s.do(t, http.MethodPut, studentPath, &assessor1, models.UpdateStudentStatusRequest{Status: models.StudentPendingModeration})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	steps := []struct {
		actor models.Actor
		path  string
		body  interface{}
		want  models.UidStatus
	}{
		{assessor1, "/review-complete", nil, models.UidAssessorReviewed},
		{assessor1, "/send-to-moderator", nil, models.UidReadyForModeration},
		{moderator1, "/moderation", map[string]interface{}{"data": map[string]string{"outcome": "ok"}}, models.UidModerationComplete},
		{moderator1, "/send-to-admin", nil, models.UidSentToAdmin},
		{admin, "/approve", nil, models.UidApproved},
	}
	for _, step := range steps {
		w := s.do(t, http.MethodPost, base+step.path, &step.actor, step.body)
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", step.path, w.Body.String())
		assert.Equal(t, step.want, decode[models.UidRecord](t, w).Status, step.path)
	}

	w = s.do(t, http.MethodGet, base+"/moderation", &moderator1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DocumentModeration, decode[models.Document](t, w).Kind)

	w = s.do(t, http.MethodGet, base+"/history", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, int(decode[map[string]interface{}](t, w)["total"].(float64)), 7)
}

func TestUidHandler_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)
	base := "/api/v1/uids/" + uid

	t.Run("unknown uid", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/uids/999999", &admin, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("not bound to caller", func(t *testing.T) {
		w := s.do(t, http.MethodGet, base, &assessor2, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("edge not in graph", func(t *testing.T) {
		w := s.do(t, http.MethodPut, base+"/status", &admin, models.UpdateUidStatusRequest{Status: models.UidApproved})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Invalid status transition", decode[ErrorResponse](t, w).Message)
	})

	t.Run("unknown status value", func(t *testing.T) {
		w := s.do(t, http.MethodPut, base+"/status", &admin, `{"status":"finished"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/attendance", &assessor1, `{"data":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("document must be an object", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/attendance", &assessor1, `{"data":[1,2]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("review before any student", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/review-complete", &assessor1, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("assign a non-staff user", func(t *testing.T) {
		w := s.do(t, http.MethodPut, base+"/assignment", &admin, map[string]string{"assessor_id": moderator1.ID})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Validation failed", decode[ErrorResponse](t, w).Message)
	})

	t.Run("submission with no name", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/public/uids/"+uid+"/students", nil, `{"learner_name":"","form_data":{}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUidHandler_ClearAssignment(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)

	w := s.do(t, http.MethodPut, "/api/v1/uids/"+uid+"/assignment", &admin, map[string]string{"assessor_id": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rec := decode[models.UidRecord](t, w)
	assert.Nil(t, rec.AssignedAssessorID)
	require.NotNil(t, rec.AssignedModeratorID)
	assert.Equal(t, moderator1.ID, *rec.AssignedModeratorID)

	w = s.do(t, http.MethodGet, "/api/v1/uids/"+uid, &assessor1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUidHandler_Delete(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)
	s.submit(t, uid, "Ada")

	w := s.do(t, http.MethodDelete, "/api/v1/uids/"+uid, &assessor1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/uids/"+uid, &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.DeleteUidResponse](t, w).Deleted)

	w = s.do(t, http.MethodGet, "/api/v1/students", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[models.StudentListResponse](t, w).Total)

	w = s.do(t, http.MethodGet, "/api/v1/students?uid="+uid, &admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/uids/"+uid, &admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandler_ListVisibility(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)
	s.submit(t, uid, "Ada")
	s.submit(t, uid, "Grace")

	w := s.do(t, http.MethodGet, "/api/v1/students", &assessor1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.StudentListResponse](t, w).Total)

	w = s.do(t, http.MethodGet, "/api/v1/students", &assessor2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[models.StudentListResponse](t, w).Total)

	w = s.do(t, http.MethodGet, "/api/v1/students?uid="+uid, &assessor2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/students?status=graded", &admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardHandler_Stats(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)
	s.submit(t, uid, "Ada")

	w := s.do(t, http.MethodGet, "/api/v1/dashboard/stats", &assessor1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.StatsSnapshot](t, w)
	assert.Equal(t, 1, stats.TotalUids)
	assert.Equal(t, 1, stats.UidsByStatus[models.UidUserSubmitted])
	assert.Equal(t, 1, stats.TotalStudents)
}

func TestUserHandler_ListUsers(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/users?role=assessor", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[services.UserListResponse](t, w)
	assert.EqualValues(t, 2, list.Total)

	// staff asserted by the gateway become assignable once they have called in
	newcomer := models.Actor{ID: "assessor-9", Role: models.RoleAssessor}
	s.do(t, http.MethodGet, "/api/v1/dashboard/stats", &newcomer, nil)

	w = s.do(t, http.MethodGet, "/api/v1/users?role=assessor", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decode[services.UserListResponse](t, w).Total)

	w = s.do(t, http.MethodGet, "/api/v1/users?role=system", &admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandler_ExportUids(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)
	s.submit(t, uid, "Ada Lovelace")

	w := s.do(t, http.MethodGet, "/api/v1/exports/uids.xlsx", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Students")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uid, rows[1][1])

	w = s.do(t, http.MethodGet, "/api/v1/exports/uids.xlsx", &assessor1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
