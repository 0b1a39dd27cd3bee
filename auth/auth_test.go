package auth

import (
	"errors"
	"testing"

	"github.com/forevercoder07/kino-bot/db/models"
	"github.com/stretchr/testify/require"
)

type fakeAdminStore struct {
	admins map[int64]*models.Admin
	err    error
}

func (f *fakeAdminStore) GetAdmin(userID int64) (*models.Admin, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.admins[userID], nil
}

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Permission
	}{
		{"单个编码", "1", []Permission{PermAddFilm}},
		{"多个编码", "1,2,5", []Permission{PermAddFilm, PermAddParts, PermUserStatistic}},
		{"带空格", " 1 , 2 ", []Permission{PermAddFilm, PermAddParts}},
		{"哨兵折叠", "1,7,2", []Permission{PermAll}},
		{"只有哨兵", "7", []Permission{PermAll}},
		{"未知编码被丢弃", "1,99,2", []Permission{PermAddFilm, PermAddParts}},
		{"全部未知", "99,100", nil},
		{"空输入", "", nil},
		{"纯空白", "   ", nil},
		{"两位数编码", "10", []Permission{PermAdminStatistic}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParsePermissions(tt.input))
		})
	}
}

func TestPermissionCode(t *testing.T) {
	require.Equal(t, "1", PermAddFilm.Code())
	require.Equal(t, "10", PermAdminStatistic.Code())
	require.Equal(t, AllSentinelCode, PermAll.Code())
}

func TestEngineOwnerBypass(t *testing.T) {
	// owner 不查库，即使存储层故障也要通过
	engine := NewEngine(100, &fakeAdminStore{err: errors.New("db down")})

	isAdmin, err := engine.IsAdmin(100)
	require.NoError(t, err)
	require.True(t, isAdmin)

	ok, err := engine.HasPermission(100, PermAddAdmin)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEngineIsAdmin(t *testing.T) {
	store := &fakeAdminStore{admins: map[int64]*models.Admin{
		200: {UserID: 200, Permissions: []string{string(PermAddFilm)}},
	}}
	engine := NewEngine(100, store)

	isAdmin, err := engine.IsAdmin(200)
	require.NoError(t, err)
	require.True(t, isAdmin)

	isAdmin, err = engine.IsAdmin(300)
	require.NoError(t, err)
	require.False(t, isAdmin)
}

func TestEngineHasPermission(t *testing.T) {
	store := &fakeAdminStore{admins: map[int64]*models.Admin{
		200: {UserID: 200, Permissions: []string{string(PermAddFilm), string(PermChannels)}},
		201: {UserID: 201, Permissions: []string{string(PermAll)}},
		202: {UserID: 202, Permissions: []string{AllSentinelCode}},
	}}
	engine := NewEngine(100, store)

	tests := []struct {
		name   string
		userID int64
		perm   Permission
		want   bool
	}{
		{"持有的权限", 200, PermAddFilm, true},
		{"未持有的权限", 200, PermAllWrite, false},
		{"all覆盖一切", 201, PermDeleteFilm, true},
		{"存储的哨兵编码覆盖一切", 202, PermAddAdmin, true},
		{"非管理员", 300, PermAddFilm, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := engine.HasPermission(tt.userID, tt.perm)
			require.NoError(t, err)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestEngineStoreError(t *testing.T) {
	engine := NewEngine(100, &fakeAdminStore{err: errors.New("db down")})

	_, err := engine.IsAdmin(200)
	require.Error(t, err)

	_, err = engine.HasPermission(200, PermAddFilm)
	require.Error(t, err)
}

func TestHasAll(t *testing.T) {
	require.True(t, HasAll([]string{"all"}))
	require.True(t, HasAll([]string{"Add film", "7"}))
	require.False(t, HasAll([]string{"Add film", "Channels"}))
	require.False(t, HasAll(nil))
}
