package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

func dialDashboard(t *testing.T, srv *httptest.Server, actor models.Actor) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/dashboard/events"
	header := http.Header{}
	header.Set(HeaderUserID, actor.ID)
	header.Set(HeaderUserRole, string(actor.Role))

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event events.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestEventsHandler_WebsocketFanOut(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	assessorDash := dialDashboard(t, srv, assessor1)
	adminDash := dialDashboard(t, srv, admin)

	student := s.submit(t, uid, "Ada Lovelace")

	for _, conn := range []*websocket.Conn{assessorDash, adminDash} {
		event := readEvent(t, conn)
		assert.Equal(t, models.EventUserFormSaved, event.Type)
		assert.Equal(t, uid, event.Payload.UID)
		assert.Equal(t, models.UidUserSubmitted, event.Payload.Status)
		assert.Equal(t, student.ID, event.Payload.StudentID)
	}

	// a change made by one dashboard shows up on the other
	w := s.do(t, http.MethodPut, "/api/v1/uids/"+uid+"/students/"+student.ID+"/status", &assessor1,
		models.UpdateStudentStatusRequest{Status: models.StudentPendingModeration})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	event := readEvent(t, adminDash)
	assert.Equal(t, models.EventStudentStatusUpdated, event.Type)
	assert.Equal(t, models.StudentPendingModeration, event.Payload.StudentStatus)
}

func TestEventsHandler_FiltersByBinding(t *testing.T) {
	s := newTestServer(t)
	uid := s.createAssigned(t)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	boundDash := dialDashboard(t, srv, assessor1)
	otherDash := dialDashboard(t, srv, assessor2)

	s.submit(t, uid, "Ada Lovelace")

	event := readEvent(t, boundDash)
	assert.Equal(t, models.EventUserFormSaved, event.Type)
	require.NotNil(t, event.Payload.AssessorID)
	assert.Equal(t, assessor1.ID, *event.Payload.AssessorID)

	w := s.do(t, http.MethodPut, "/api/v1/uids/"+uid+"/assignment", &admin, map[string]string{"assessor_id": assessor2.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the form event was never sent to the unbound assessor
	event = readEvent(t, otherDash)
	assert.Equal(t, models.EventUidAssigned, event.Type)
	require.NotNil(t, event.Payload.AssessorID)
	assert.Equal(t, assessor2.ID, *event.Payload.AssessorID)

	// the previous assessor learns it lost the UID and nothing more
	event = readEvent(t, boundDash)
	assert.Equal(t, models.EventUidAssigned, event.Type)
	assert.Equal(t, models.EventPayload{UID: uid}, event.Payload)
}

func TestEventsHandler_WebsocketSessionEnds(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn := dialDashboard(t, srv, moderator1)
	assert.Eventually(t, func() bool { return s.bus.Sessions() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return s.bus.Sessions() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsHandler_RequiresStaff(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/dashboard/events", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/dashboard/events", &learner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, s.bus.Sessions())
}

func TestEventsHandler_SSE(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/dashboard/events/stream", nil)
	require.NoError(t, err)
	identify(req, &admin)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	w := s.do(t, http.MethodPost, "/api/v1/uids", &admin, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.UidRecord](t, w)

	var name, data string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if name != "" && data != "" {
			break
		}
	}
	cancel()

	assert.Equal(t, string(models.EventUidCreated), name)

	var event events.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, created.UID, event.Payload.UID)
	assert.Equal(t, models.UidPending, event.Payload.Status)
}
