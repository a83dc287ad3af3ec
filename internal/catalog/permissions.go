package catalog

// Core platform permissions.
const (
	PermUsersView = Permission("users.view")

	PermRolesView = Permission("roles.view")
	PermRolesEdit = Permission("roles.edit")

	PermPermissionsView = Permission("permissions.view")

	PermAuditView   = Permission("audit.view")
	PermAuditExport = Permission("audit.export")
)

// School network permissions.
const (
	PermSchoolsView   = Permission("schools.view")
	PermSchoolsCreate = Permission("schools.create")
	PermSchoolsEdit   = Permission("schools.edit")
	PermSchoolsDelete = Permission("schools.delete")
)

// Inventory permissions.
const (
	PermInventoryView   = Permission("inventory.view")
	PermInventoryCreate = Permission("inventory.create")
	PermInventoryEdit   = Permission("inventory.edit")
	PermInventoryDelete = Permission("inventory.delete")
	PermInventoryExport = Permission("inventory.export")
)

// Production permissions.
const (
	PermProductionView   = Permission("production.view")
	PermProductionCreate = Permission("production.create")
	PermProductionEdit   = Permission("production.edit")
)

// Distribution permissions.
const (
	PermDistributionView   = Permission("distribution.view")
	PermDistributionCreate = Permission("distribution.create")
	PermDistributionEdit   = Permission("distribution.edit")
)

// Quality check permissions.
const (
	PermQualityView   = Permission("quality.view")
	PermQualityCreate = Permission("quality.create")
	PermQualityEdit   = Permission("quality.edit")
)

// Finance permissions.
const (
	PermFinanceView   = Permission("finance.view")
	PermFinanceCreate = Permission("finance.create")
	PermFinanceEdit   = Permission("finance.edit")
	PermFinanceExport = Permission("finance.export")
)

var registry = map[Permission]string{
	PermUsersView: "View user directory",

	PermRolesView: "View roles and assignments",
	PermRolesEdit: "Create, edit, delete and assign roles",

	PermPermissionsView: "View the permission catalog",

	PermAuditView:   "View the audit log",
	PermAuditExport: "Export the audit log",

	PermSchoolsView:   "View schools",
	PermSchoolsCreate: "Register schools",
	PermSchoolsEdit:   "Edit schools",
	PermSchoolsDelete: "Remove schools",

	PermInventoryView:   "View inventory",
	PermInventoryCreate: "Record inventory receipts",
	PermInventoryEdit:   "Adjust inventory",
	PermInventoryDelete: "Write off inventory",
	PermInventoryExport: "Export inventory reports",

	PermProductionView:   "View production runs",
	PermProductionCreate: "Plan production runs",
	PermProductionEdit:   "Edit production runs",

	PermDistributionView:   "View distributions",
	PermDistributionCreate: "Schedule distributions",
	PermDistributionEdit:   "Edit distributions",

	PermQualityView:   "View quality checks",
	PermQualityCreate: "Record quality checks",
	PermQualityEdit:   "Edit quality checks",

	PermFinanceView:   "View finance records",
	PermFinanceCreate: "Record finance entries",
	PermFinanceEdit:   "Edit finance entries",
	PermFinanceExport: "Export finance reports",
}
