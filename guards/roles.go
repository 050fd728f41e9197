package guards

import "github.com/junioryono/wired"

// RolesKey is the metadata key listing the roles a handler requires.
const RolesKey = "roles"

// RolesGuard admits requests whose token carries one of the roles set
// with SetMetadata(RolesKey, ...). Handlers without roles are open. It
// must run after JWTGuard.
type RolesGuard struct{}

// RolesGuardClass declares RolesGuard.
var RolesGuardClass = wired.GuardClass[RolesGuard]()

// CanActivate implements wired.Guard.
func (RolesGuard) CanActivate(ctx *wired.ExecutionContext) (bool, error) {
	v, ok := ctx.Metadata(RolesKey)
	if !ok {
		return true, nil
	}
	required, _ := v.([]string)
	if len(required) == 0 {
		return true, nil
	}

	claims, ok := Claims(ctx)
	if !ok {
		return false, nil
	}

	granted := make(map[string]bool)
	switch roles := claims["roles"].(type) {
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				granted[s] = true
			}
		}
	case []string:
		for _, r := range roles {
			granted[r] = true
		}
	}

	for _, r := range required {
		if granted[r] {
			return true, nil
		}
	}
	return false, nil
}
