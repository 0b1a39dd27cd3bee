package auth

import (
	"strings"

	"github.com/forevercoder07/kino-bot/db/models"
)

// Permission 管理员权限，取值是一个封闭的枚举
type Permission string

const (
	PermAddFilm        Permission = "Add film"
	PermAddParts       Permission = "Add parts"
	PermDeleteFilm     Permission = "Delete film"
	PermChannels       Permission = "Channels"
	PermUserStatistic  Permission = "User Statistic"
	PermFilmStatistic  Permission = "Film Statistic"
	PermAllWrite       Permission = "All write"
	PermAddAdmin       Permission = "Add admin"
	PermAdminStatistic Permission = "Admin statistic"

	// PermAll 全部权限的哨兵值，与其它权限不同级，单独处理
	PermAll Permission = "all"
)

// AllSentinelCode 数字编码中表示全部权限的值
const AllSentinelCode = "7"

// codeToPermission 数字编码到权限的映射，7 是哨兵值不在表内
var codeToPermission = map[string]Permission{
	"1":  PermAddFilm,
	"2":  PermAddParts,
	"3":  PermDeleteFilm,
	"4":  PermChannels,
	"5":  PermUserStatistic,
	"6":  PermFilmStatistic,
	"8":  PermAllWrite,
	"9":  PermAddAdmin,
	"10": PermAdminStatistic,
}

// permissionToCode 权限到数字编码的反向映射
var permissionToCode = func() map[Permission]string {
	m := make(map[Permission]string, len(codeToPermission)+1)
	for code, perm := range codeToPermission {
		m[perm] = code
	}
	m[PermAll] = AllSentinelCode
	return m
}()

// Code 返回权限对应的数字编码
func (p Permission) Code() string {
	return permissionToCode[p]
}

// ParsePermissions 解析逗号分隔的权限编码列表。
// 列表中出现哨兵编码 7 时整个集合折叠为 {"all"}，
// 无法识别的编码被静默丢弃。空输入或全部无法识别时返回空集合，
// 调用方必须把空集合当作格式错误处理。
func ParsePermissions(text string) []Permission {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	codes := strings.Split(text, ",")
	for _, code := range codes {
		if strings.TrimSpace(code) == AllSentinelCode {
			return []Permission{PermAll}
		}
	}

	var permissions []Permission
	for _, code := range codes {
		if perm, ok := codeToPermission[strings.TrimSpace(code)]; ok {
			permissions = append(permissions, perm)
		}
	}

	return permissions
}

// AdminStore 管理员记录的查询接口
type AdminStore interface {
	GetAdmin(userID int64) (*models.Admin, error)
}

// Engine 权限判定引擎。owner 无条件通过所有检查，
// 且永远不会以管理员记录的形式存在。
type Engine struct {
	OwnerID int64
	Admins  AdminStore
}

// NewEngine 创建权限引擎
func NewEngine(ownerID int64, admins AdminStore) *Engine {
	return &Engine{OwnerID: ownerID, Admins: admins}
}

// IsAdmin 检查用户是否是管理员
func (e *Engine) IsAdmin(userID int64) (bool, error) {
	if userID == e.OwnerID {
		return true, nil
	}

	admin, err := e.Admins.GetAdmin(userID)
	if err != nil {
		return false, err
	}
	return admin != nil, nil
}

// HasPermission 检查用户是否持有指定权限。
// 存储的集合包含 "all"、哨兵编码 7 或权限名本身时通过。
func (e *Engine) HasPermission(userID int64, perm Permission) (bool, error) {
	if userID == e.OwnerID {
		return true, nil
	}

	admin, err := e.Admins.GetAdmin(userID)
	if err != nil {
		return false, err
	}
	if admin == nil {
		return false, nil
	}

	return ContainsPermission(admin.Permissions, perm), nil
}

// ContainsPermission 检查权限集合是否覆盖指定权限
func ContainsPermission(permissions []string, perm Permission) bool {
	for _, p := range permissions {
		if p == string(PermAll) || p == AllSentinelCode || p == string(perm) {
			return true
		}
	}
	return false
}

// HasAll 检查权限集合是否是全部权限
func HasAll(permissions []string) bool {
	for _, p := range permissions {
		if p == string(PermAll) || p == AllSentinelCode {
			return true
		}
	}
	return false
}
