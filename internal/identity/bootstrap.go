package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	accountentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
)

// Bootstrap registers an administrator under username unless an account
// with that name already exists. It reports whether one was created. A
// blank username disables it; a name held by a non-admin account is an error.
func (o *Orchestrator) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, nil
	}
	existing, err := o.accounts.GetByUsername(ctx, username)
	if err == nil {
		if existing.Role != accountentity.RoleAdmin {
			o.logger.Warnw("bootstrap username held by non-admin account", "username", username, "role", existing.Role)
			return false, apperr.Validation("username", fmt.Sprintf("bootstrap admin %q is a %s account", username, existing.Role))
		}
		return false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}
	if password == "" {
		return false, apperr.Validation("password", "bootstrap admin needs a password")
	}
	v, err := o.RegisterAdmin(ctx, AdminRequest{
		Credentials: Credentials{Username: username, Password: password},
		Name:        "Administrator",
	})
	if err != nil {
		return false, err
	}
	o.logger.Infow("bootstrap admin created", "id", v.ID, "username", v.Username)
	return true, nil
}
