package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories/memory"
	"github.com/SAP-F-2025/training-workflow-service/internal/services"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	admin      = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	assessor1  = models.Actor{ID: "assessor-1", Role: models.RoleAssessor}
	assessor2  = models.Actor{ID: "assessor-2", Role: models.RoleAssessor}
	moderator1 = models.Actor{ID: "moderator-1", Role: models.RoleModerator}
	learner    = models.Actor{ID: "learner-1", Role: models.RoleLearner}
)

type testServer struct {
	router    *gin.Engine
	bus       *events.Bus
	directory *memory.UserDirectory
	sm        services.ServiceManager
	logger    utils.Logger
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	slogger := quietLogger()
	logger := utils.NewSlogLogger(slogger)

	directory := memory.NewUserDirectory(
		&models.User{ID: admin.ID, FullName: "Admin", Role: models.RoleAdmin},
		&models.User{ID: assessor1.ID, FullName: "Alice Assessor", Role: models.RoleAssessor},
		&models.User{ID: assessor2.ID, FullName: "Bob Assessor", Role: models.RoleAssessor},
		&models.User{ID: moderator1.ID, FullName: "Mia Moderator", Role: models.RoleModerator},
	)
	repo := memory.NewRepository(directory)
	bus := events.NewBus(16, slogger)
	t.Cleanup(func() { _ = bus.Close() })

	v := validator.New()
	sm := services.NewDefaultServiceManager(repo, bus, slogger, v)
	require.NoError(t, sm.Initialize(context.Background()))

	return newTestServerWithAuth(t, sm, bus, directory, NewHeaderAuthMiddleware(directory, logger))
}

func newTestServerWithAuth(t *testing.T, sm services.ServiceManager, bus *events.Bus, directory *memory.UserDirectory, auth AuthProvider) *testServer {
	t.Helper()

	logger := utils.NewSlogLogger(quietLogger())
	router := gin.New()
	SetupMiddleware(router, logger)
	NewHandlerManager(sm, validator.New(), logger, auth, bus).SetupRoutes(router)

	return &testServer{router: router, bus: bus, directory: directory, sm: sm, logger: logger}
}

func identify(req *http.Request, actor *models.Actor) {
	if actor == nil {
		return
	}
	req.Header.Set(HeaderUserID, actor.ID)
	req.Header.Set(HeaderUserRole, string(actor.Role))
}

// do sends body as-is when it is a string and as JSON otherwise.
func (s *testServer) do(t *testing.T, method, path string, actor *models.Actor, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	identify(req, actor)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// createAssigned creates a UID bound to assessor-1 and moderator-1 over HTTP.
func (s *testServer) createAssigned(t *testing.T) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/uids", &admin, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rec := decode[models.UidRecord](t, w)

	w = s.do(t, http.MethodPut, "/api/v1/uids/"+rec.UID+"/assignment", &admin, map[string]string{
		"assessor_id":  assessor1.ID,
		"moderator_id": moderator1.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return rec.UID
}

func (s *testServer) submit(t *testing.T, uid, name string) models.Student {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/public/uids/"+uid+"/students", nil, map[string]interface{}{
		"learner_name": name,
		"company_name": "Acme Ltd",
		"form_data":    map[string]string{"q1": "yes"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Student](t, w)
}
