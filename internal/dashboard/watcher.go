package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

var errGone = errors.New("uid no longer visible")

// WatcherConfig points a Watcher at a running service.
type WatcherConfig struct {
	BaseURL string
	Viewer  models.Actor

	// Header is sent with every request, e.g. Authorization or the
	// gateway identity headers.
	Header http.Header

	HTTPClient   *http.Client
	Dialer       *websocket.Dialer
	RetryBackoff time.Duration

	// OnChange is called from the watcher goroutine after each update.
	OnChange func(*View)
}

// Watcher keeps a View current: it subscribes to the event stream, loads a
// full snapshot, then folds events in. Delivery is at-most-once, so every
// reconnect starts with a fresh snapshot.
type Watcher struct {
	cfg    WatcherConfig
	logger *slog.Logger

	mu   sync.RWMutex
	view *View
}

func NewWatcher(cfg WatcherConfig, logger *slog.Logger) *Watcher {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Watcher{
		cfg:    cfg,
		logger: logger.With("component", "dashboard_watcher", "viewer", cfg.Viewer.ID),
		view:   NewView(cfg.Viewer, nil, nil),
	}
}

// View returns a copy of the current local state.
func (w *Watcher) View() *View {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.view.Clone()
}

// Run blocks until ctx ends, reconnecting after each lost session.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		err := w.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("Dashboard session ended, reconnecting", "error", err, "backoff", w.cfg.RetryBackoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.RetryBackoff):
		}
	}
}

func (w *Watcher) session(ctx context.Context) error {
	conn, err := w.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	// Subscribed first, so nothing committed after the snapshot is missed.
	view, err := w.snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	w.set(view)
	w.logger.Info("Dashboard synchronized", "uids", len(view.Uids), "students", len(view.Students))

	for {
		var event events.Event
		if err := conn.ReadJSON(&event); err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		w.logger.Debug("Event received", "event", event.Type, "uid", event.Payload.UID)
		w.apply(ctx, event)
	}
}

func (w *Watcher) apply(ctx context.Context, event events.Event) {
	w.mu.RLock()
	next := Apply(w.view, event)
	w.mu.RUnlock()

	for _, uid := range next.StaleUids() {
		rec, students, err := w.fetchUid(ctx, uid)
		switch {
		case errors.Is(err, errGone):
			next = Drop(next, uid)
		case err != nil:
			// left stale; the next event or reconnect retries it
			w.logger.Warn("Re-fetch failed", "uid", uid, "error", err)
		default:
			next = Merge(next, rec, students)
		}
	}
	w.set(next)
}

func (w *Watcher) set(v *View) {
	w.mu.Lock()
	w.view = v
	w.mu.Unlock()

	if w.cfg.OnChange != nil {
		w.cfg.OnChange(v.Clone())
	}
}

func (w *Watcher) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(w.cfg.BaseURL + "/api/v1/dashboard/events")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, resp, err := w.cfg.Dialer.DialContext(ctx, u.String(), w.cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial events: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial events: %w", err)
	}
	return conn, nil
}

func (w *Watcher) snapshot(ctx context.Context) (*View, error) {
	var uids models.UidListResponse
	if err := w.getJSON(ctx, "/api/v1/uids", &uids); err != nil {
		return nil, err
	}
	var students models.StudentListResponse
	if err := w.getJSON(ctx, "/api/v1/students", &students); err != nil {
		return nil, err
	}
	return NewView(w.cfg.Viewer, uids.Uids, students.Students), nil
}

func (w *Watcher) fetchUid(ctx context.Context, uid string) (*models.UidRecord, []*models.Student, error) {
	var rec models.UidRecord
	if err := w.getJSON(ctx, "/api/v1/uids/"+url.PathEscape(uid), &rec); err != nil {
		return nil, nil, err
	}
	var students models.StudentListResponse
	if err := w.getJSON(ctx, "/api/v1/students?uid="+url.QueryEscape(uid), &students); err != nil {
		return nil, nil, err
	}
	return &rec, students.Students, nil
}

func (w *Watcher) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	for k, vals := range w.cfg.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := w.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: %w", path, errGone)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
