package models

// RoleAllowed - чистый предикат role gate: роль входит в allow-list.
// Вызывается только после того, как Credential Verifier разрешил identity.
func RoleAllowed(role UserRole, allowed ...UserRole) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
