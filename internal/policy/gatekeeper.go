// Package policy decides whether an actor may perform a state-changing action.
package policy

import (
	"strings"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
)

// Action names a guarded operation.
type Action string

const (
	ActionAssetManage       Action = "asset:manage"
	ActionRequestCreate     Action = "request:create"
	ActionRequestDecide     Action = "request:decide"
	ActionAssignmentReturn  Action = "assignment:return"
	ActionAssignmentDirect  Action = "assignment:direct"
	ActionAffiliationRemove Action = "affiliation:remove"
	ActionProfileUpdate     Action = "profile:update"
	ActionPaymentConfirm    Action = "payment:confirm"
)

// Actor is the authenticated caller.
type Actor struct {
	Email   string
	Role    enums.UserRole
	Company string
}

// Target carries the ownership facts of the resource being acted on.
// OwnerEmail is the employee or user the resource belongs to, HREmail the
// hr account that manages it.
type Target struct {
	OwnerEmail string
	HREmail    string
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Code    pkgerrors.Code
	Reason  string
}

// Err converts a denial into a typed error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return pkgerrors.New(d.Code, d.Reason)
}

type rule func(actor Actor, target Target) Decision

// Gatekeeper evaluates the rule registered for each action.
type Gatekeeper struct {
	rules map[Action]rule
}

func NewGatekeeper() *Gatekeeper {
	return &Gatekeeper{rules: map[Action]rule{
		ActionAssetManage:       hrOwns("asset belongs to another hr account"),
		ActionRequestCreate:     employeeOnly,
		ActionRequestDecide:     hrOwns("request belongs to another company"),
		ActionAssignmentReturn:  selfOnly("only the assignee can return this asset"),
		ActionAssignmentDirect:  hrOwns("asset belongs to another hr account"),
		ActionAffiliationRemove: hrOwns("employee is affiliated with another company"),
		ActionProfileUpdate:     selfOnly("profiles can only be edited by their owner"),
		ActionPaymentConfirm:    hrOwns("checkout session belongs to another account"),
	}}
}

// Check evaluates action for actor against target.
func (g *Gatekeeper) Check(actor Actor, action Action, target Target) Decision {
	if strings.TrimSpace(actor.Email) == "" {
		return deny(pkgerrors.CodeUnauthorized, "authentication required")
	}
	r, ok := g.rules[action]
	if !ok {
		return deny(pkgerrors.CodeForbidden, "action not permitted")
	}
	return r(actor, target)
}

// Enforce is Check returning a typed error on denial.
func (g *Gatekeeper) Enforce(actor Actor, action Action, target Target) error {
	return g.Check(actor, action, target).Err()
}

func hrOwns(reason string) rule {
	return func(actor Actor, target Target) Decision {
		if actor.Role != enums.UserRoleHR {
			return deny(pkgerrors.CodeForbidden, "hr role required")
		}
		if !sameEmail(actor.Email, target.HREmail) {
			return deny(pkgerrors.CodeForbidden, reason)
		}
		return allow()
	}
}

func selfOnly(reason string) rule {
	return func(actor Actor, target Target) Decision {
		if !sameEmail(actor.Email, target.OwnerEmail) {
			return deny(pkgerrors.CodeForbidden, reason)
		}
		return allow()
	}
}

func employeeOnly(actor Actor, _ Target) Decision {
	if actor.Role != enums.UserRoleEmployee {
		return deny(pkgerrors.CodeForbidden, "only employees can request assets")
	}
	return allow()
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(code pkgerrors.Code, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

func sameEmail(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
