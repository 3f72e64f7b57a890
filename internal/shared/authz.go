package shared

// Point-of-sale permissions.
const (
	PermSell            = "pos.sell"
	PermInventoryManage = "inventory.manage"
	PermReportsView     = "reports.view"
	PermUsersManage     = "users.manage"
	PermSettingsManage  = "settings.manage"
	PermBackupRestore   = "backup.restore"
)

// POSScopes lists every permission known to the service.
func POSScopes() []string {
	return []string{
		PermSell,
		PermInventoryManage,
		PermReportsView,
		PermUsersManage,
		PermSettingsManage,
		PermBackupRestore,
	}
}
