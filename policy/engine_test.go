package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/windrun-ai/workflowcore/core"
)

func TestCheck_AllowsWhenWhitelistEmpty(t *testing.T) {
	p := core.Policy{}
	tool := core.ToolInterface{Ref: "core/echo@1.0.0"}
	assert.NoError(t, Check(p, tool))
}

func TestCheck_BlockedToolWins(t *testing.T) {
	p := core.Policy{Whitelist: core.ToolWhitelist{
		AllowedTools: []string{"core/echo@1.0.0"},
		BlockedTools: []string{"core/echo@1.0.0"},
	}}
	tool := core.ToolInterface{Ref: "core/echo@1.0.0"}
	err := Check(p, tool)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotAllowed)
}

func TestCheck_NonEmptyAllowlistRequiresMembership(t *testing.T) {
	p := core.Policy{Whitelist: core.ToolWhitelist{AllowedTools: []string{"core/other@1.0.0"}}}
	tool := core.ToolInterface{Ref: "core/echo@1.0.0"}
	assert.ErrorIs(t, Check(p, tool), ErrToolNotAllowed)
}

func TestCheck_PermissionDenialWins(t *testing.T) {
	p := core.Policy{Permissions: core.PermissionSet{
		Granted: []string{"net.http"},
		Denied:  []string{"net.http"},
	}}
	tool := core.ToolInterface{Ref: "core/fetch@1.0.0", Permissions: []string{"net.http"}}
	err := Check(p, tool)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCheck_UngrantedPermissionDenied(t *testing.T) {
	p := core.Policy{}
	tool := core.ToolInterface{Ref: "core/fetch@1.0.0", Permissions: []string{"net.http"}}
	assert.ErrorIs(t, Check(p, tool), ErrPermissionDenied)
}

func TestCheck_GrantedAndNotDeniedPasses(t *testing.T) {
	p := core.Policy{Permissions: core.PermissionSet{Granted: []string{"net.http"}}}
	tool := core.ToolInterface{Ref: "core/fetch@1.0.0", Permissions: []string{"net.http"}}
	assert.NoError(t, Check(p, tool))
}
