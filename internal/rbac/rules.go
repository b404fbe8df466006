package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"test:take",
		"session:join",
		"result:view-own",
		"report:download-own",
	},
	"admin": {
		"*", // everything
	},
}
