package auth

import "github.com/govm-net/sandbox/core"

var (
	errInvalidInvocation = core.New(core.ErrAuth, core.CodeInvalidInput, "invalid invocation")
	errNotAuthorized     = core.New(core.ErrAuth, core.CodeInvalidAction, "not authorized")
)
