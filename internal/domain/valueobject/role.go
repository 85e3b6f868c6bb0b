package valueobject

import (
	"errors"
	"strings"
)

// Role - закрытый список ролей пользователей (Value Object)
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleQA      Role = "QA"
	RoleDev     Role = "DEV"
	RoleUser    Role = "USER"
)

var ErrInvalidRole = errors.New("invalid role")

// Permission - набор прав в виде битовых флагов
type Permission uint64

const (
	PermTicketsCreate Permission = 1 << iota
	PermTicketsRead
	PermTicketsUpdate
	PermTicketsDelete
	PermTicketsAssign
	PermTicketsResolve
	PermTicketsTest
	PermUsersManage
	PermProjectsManage
	PermProjectsRead
	PermReportsView
	PermSettingsManage
	PermTeamManage
	PermTestCasesCreate
	PermTestCasesRead
	PermTestCasesUpdate
	PermTestCasesDelete
	PermTestCasesAssign
	PermTestCasesExecute
	PermTestSuitesCreate
	PermTestSuitesRead
	PermTestSuitesManage
	PermTestSuitesExecute
	PermCommentsCreate
	PermAnalyticsView
	PermSystemAdmin
	PermQualityGatesManage
)

var permissionNames = []struct {
	perm Permission
	name string
}{
	{PermTicketsCreate, "tickets.create"},
	{PermTicketsRead, "tickets.read"},
	{PermTicketsUpdate, "tickets.update"},
	{PermTicketsDelete, "tickets.delete"},
	{PermTicketsAssign, "tickets.assign"},
	{PermTicketsResolve, "tickets.resolve"},
	{PermTicketsTest, "tickets.test"},
	{PermUsersManage, "users.manage"},
	{PermProjectsManage, "projects.manage"},
	{PermProjectsRead, "projects.read"},
	{PermReportsView, "reports.view"},
	{PermSettingsManage, "settings.manage"},
	{PermTeamManage, "team.manage"},
	{PermTestCasesCreate, "test-cases.create"},
	{PermTestCasesRead, "test-cases.read"},
	{PermTestCasesUpdate, "test-cases.update"},
	{PermTestCasesDelete, "test-cases.delete"},
	{PermTestCasesAssign, "test-cases.assign"},
	{PermTestCasesExecute, "test-cases.execute"},
	{PermTestSuitesCreate, "test-suites.create"},
	{PermTestSuitesRead, "test-suites.read"},
	{PermTestSuitesManage, "test-suites.manage"},
	{PermTestSuitesExecute, "test-suites.execute"},
	{PermCommentsCreate, "comments.create"},
	{PermAnalyticsView, "analytics.view"},
	{PermSystemAdmin, "system.admin"},
	{PermQualityGatesManage, "quality-gates.manage"},
}

var rolePermissions = map[Role]Permission{
	RoleAdmin: PermTicketsCreate | PermTicketsRead | PermTicketsUpdate | PermTicketsDelete |
		PermUsersManage | PermProjectsManage | PermReportsView | PermSettingsManage |
		PermTestCasesCreate | PermTestCasesRead | PermTestCasesUpdate | PermTestCasesDelete |
		PermTestSuitesManage | PermAnalyticsView | PermSystemAdmin | PermQualityGatesManage,
	RoleManager: PermTicketsCreate | PermTicketsRead | PermTicketsUpdate | PermTicketsAssign |
		PermReportsView | PermTeamManage | PermTestCasesRead | PermTestCasesAssign |
		PermTestSuitesRead | PermAnalyticsView | PermProjectsRead,
	RoleQA: PermTicketsCreate | PermTicketsRead | PermTicketsUpdate | PermTicketsTest |
		PermTestCasesCreate | PermTestCasesRead | PermTestCasesUpdate | PermTestCasesExecute |
		PermTestSuitesCreate | PermTestSuitesRead | PermTestSuitesExecute |
		PermReportsView | PermCommentsCreate,
	RoleDev: PermTicketsRead | PermTicketsUpdate | PermTicketsResolve | PermCommentsCreate |
		PermTestCasesRead | PermProjectsRead,
	RoleUser: PermTicketsCreate | PermTicketsRead | PermCommentsCreate | PermReportsView,
}

// ParseRole разбирает роль без учета регистра
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if err := role.Validate(); err != nil {
		return "", err
	}
	return role, nil
}

// Validate проверяет, что роль из закрытого списка
func (r Role) Validate() error {
	if _, ok := rolePermissions[r]; !ok {
		return ErrInvalidRole
	}
	return nil
}

func (r Role) String() string {
	return string(r)
}

// Permissions возвращает набор прав роли
func (r Role) Permissions() Permission {
	return rolePermissions[r]
}

// Has проверяет право. system.admin разрешает все.
func (r Role) Has(perm Permission) bool {
	granted := r.Permissions()
	if granted&PermSystemAdmin != 0 {
		return true
	}
	return granted&perm == perm
}

// AllRoles возвращает список всех ролей
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleQA, RoleDev, RoleUser}
}

// Names возвращает точечные имена прав в фиксированном порядке
func (p Permission) Names() []string {
	names := make([]string, 0)
	for _, entry := range permissionNames {
		if p&entry.perm != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}
