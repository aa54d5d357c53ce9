package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

// UserDirectory is a UserRepository for deployments without Casdoor. In
// header auth mode the gateway-asserted identities are registered here as
// they call in, so admins can assign staff who have signed in at least once.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewUserDirectory(seed ...*models.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]*models.User, len(seed))}
	for _, u := range seed {
		d.Register(u)
	}
	return d
}

// Register adds or replaces a user.
func (d *UserDirectory) Register(user *models.User) {
	if user == nil || user.ID == "" {
		return
	}
	cp := *user
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = time.Now().UTC()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[cp.ID] = &cp
}

func (d *UserDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *UserDirectory) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, err := d.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *UserDirectory) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	d.mu.RLock()
	matched := make([]*models.User, 0, len(d.users))
	q := strings.ToLower(filters.Query)
	for _, u := range d.users {
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.FullName), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		cp := *u
		matched = append(matched, &cp)
	}
	d.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := int64(len(matched))

	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return []*models.User{}, total, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func (d *UserDirectory) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	filters.Query = query
	return d.List(ctx, filters)
}

func (d *UserDirectory) ExistsByID(ctx context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[id]
	return ok, nil
}

func (d *UserDirectory) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, err := d.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}
