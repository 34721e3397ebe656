package vault

import (
	"context"
	"errors"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/storage"
)

// permissions - итоговые права actor на хранилище
type permissions struct {
	caps    models.Capabilities
	manager bool // владелец или администратор
}

var managerCapabilities = models.HeirFullAccess.DefaultCapabilities()

// effectiveCapabilities возвращает явные флаги гранта, а при их отсутствии - флаги роли
func effectiveCapabilities(role models.HeirRole, caps models.Capabilities) models.Capabilities {
	if caps.IsZero() {
		return role.DefaultCapabilities()
	}
	return caps
}

// resolvePermissions вычисляет права. Наследник получает права только на
// унаследованное хранилище и только по гранту.
func resolvePermissions(ctx context.Context, st storage.VaultStore, vault *models.Vault, actor models.Actor) (permissions, error) {
	if actor.CanManage(vault) {
		return permissions{caps: managerCapabilities, manager: true}, nil
	}
	if actor.UserID == "" || vault.Status != models.VaultInherited {
		return permissions{}, nil
	}

	grant, err := st.GetFamilyAccess(ctx, vault.ID, actor.UserID)
	if errors.Is(err, storage.ErrFamilyAccessNotFound) {
		return permissions{}, nil
	}
	if err != nil {
		return permissions{}, err
	}
	return permissions{caps: effectiveCapabilities(grant.Role, grant.Capabilities)}, nil
}
