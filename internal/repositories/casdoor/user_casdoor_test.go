package casdoor

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-workflow-service/internal/cache"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

type fakeDirectory struct {
	users   map[string]*casdoorsdk.User
	lookups int
}

func (f *fakeDirectory) GetUserByUserId(id string) (*casdoorsdk.User, error) {
	f.lookups++
	return f.users[id], nil
}

func (f *fakeDirectory) GetPaginationUsers(p int, pageSize int, _ map[string]string) ([]*casdoorsdk.User, int, error) {
	out := make([]*casdoorsdk.User, 0, len(f.users))
	for _, u := range []string{"a-1", "m-42", "root"} {
		if user, ok := f.users[u]; ok {
			out = append(out, user)
		}
	}
	return out, len(out), nil
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]*casdoorsdk.User{
		"a-1":  {Id: "a-1", DisplayName: "Ali Assessor", Roles: []*casdoorsdk.Role{{Name: "assessor"}}},
		"m-42": {Id: "m-42", DisplayName: "Mia Moderator", Roles: []*casdoorsdk.Role{{Name: "assessor"}, {Name: "Moderator"}}},
		"root": {Id: "root", DisplayName: "Root", IsAdmin: true},
	}}
}

func TestPrimaryRole(t *testing.T) {
	tests := []struct {
		name string
		user *casdoorsdk.User
		want models.UserRole
	}{
		{"admin flag wins", &casdoorsdk.User{IsAdmin: true, Roles: []*casdoorsdk.Role{{Name: "assessor"}}}, models.RoleAdmin},
		{"moderator over assessor", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "assessor"}, {Name: "moderator"}}}, models.RoleModerator},
		{"user type counts", &casdoorsdk.User{Type: "Trainer"}, models.RoleAssessor},
		{"no roles is learner", &casdoorsdk.User{}, models.RoleLearner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryRole(tt.user))
		})
	}
}

func TestUserCasdoor_GetByIDUsesCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	dir := newFakeDirectory()
	repo := newUserCasdoor(dir, cache.NewCacheManager(client))

	user, err := repo.GetByID(ctx, "m-42")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, user.Role)

	_, err = repo.GetByID(ctx, "m-42")
	require.NoError(t, err)
	assert.Equal(t, 1, dir.lookups)
	assert.True(t, mr.Exists("user:id:m-42"))
}

func TestUserCasdoor_HasRoleAndExists(t *testing.T) {
	ctx := context.Background()
	repo := newUserCasdoor(newFakeDirectory(), nil)

	ok, err := repo.HasRole(ctx, "a-1", models.RoleAssessor)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasRole(ctx, "a-1", models.RoleModerator)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.HasRole(ctx, "ghost", models.RoleModerator)
	assert.True(t, repositories.IsNotFoundError(err))

	exists, err := repo.ExistsByID(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserCasdoor_ListFiltersByRole(t *testing.T) {
	repo := newUserCasdoor(newFakeDirectory(), nil)
	role := models.RoleAdmin

	users, total, err := repo.List(context.Background(), repositories.UserFilters{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].ID)
}

func TestUserCasdoor_RefreshDropsCachedEntry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	dir := newFakeDirectory()
	repo := newUserCasdoor(dir, cache.NewCacheManager(client))

	user, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssessor, user.Role)

	dir.users["a-1"].Roles = []*casdoorsdk.Role{{Name: "moderator"}}

	cached, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssessor, cached.Role)

	fresh, err := repo.Refresh(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, fresh.Role)
	assert.Equal(t, 2, dir.lookups)
}
