// Package policy decides whether a subject may perform an action on a
// resource. Rules are data, not code: every guarded action is declared once in
// the rule table below, so there is a single place where access rules can
// drift instead of one per route.
package policy

import (
	"github.com/civicore/community-api/internal/core/domain"
)

// Action tags every guarded operation.
type Action string

const (
	ActionHabitList     Action = "habit:list"
	ActionHabitCreate   Action = "habit:create"
	ActionHabitUpdate   Action = "habit:update"
	ActionHabitDelete   Action = "habit:delete"
	ActionHabitComplete Action = "habit:complete"

	ActionBusList   Action = "bus:list"
	ActionBusCreate Action = "bus:create"
	ActionBusUpdate Action = "bus:update"
	ActionBusDelete Action = "bus:delete"

	ActionTicketBook    Action = "ticket:book"
	ActionTicketCancel  Action = "ticket:cancel"
	ActionTicketListOwn Action = "ticket:list_own"
	ActionTicketListAll Action = "ticket:list_all"

	ActionPartyList   Action = "party:list"
	ActionPartyCreate Action = "party:create"
	ActionPartyUpdate Action = "party:update"
	ActionPartyDelete Action = "party:delete"

	ActionVoteCast    Action = "vote:cast"
	ActionVoteRevoke  Action = "vote:revoke"
	ActionVoteMine    Action = "vote:mine"
	ActionVoteTally   Action = "vote:tally"
	ActionVoteListAll Action = "vote:list_all"
)

// Subject is the authenticated (or anonymous) actor evaluated against a rule.
type Subject struct {
	ID            string
	Role          string
	Authenticated bool
}

// Decision is the outcome of a policy check. Reason carries the sentinel error
// to surface when Allow is false: domain.ErrUnauthorized when the subject is
// not authenticated, domain.ErrForbidden otherwise.
type Decision struct {
	Allow  bool
	Reason error
}

type ruleKind int

const (
	// public actions need no session at all.
	public ruleKind = iota
	// authenticated actions need any valid session.
	authenticated
	// roleGate actions need a session with a specific role.
	roleGate
	// ownerOrRole actions need the subject to own the resource, or to hold
	// the escalation role.
	ownerOrRole
)

type rule struct {
	kind ruleKind
	role string
}

// rules is the complete access table. Actions missing from the table are
// denied for everyone, so forgetting to declare one fails closed.
var rules = map[Action]rule{
	ActionHabitList:     {kind: authenticated},
	ActionHabitCreate:   {kind: authenticated},
	ActionHabitUpdate:   {kind: ownerOrRole, role: domain.RoleAdmin},
	ActionHabitDelete:   {kind: ownerOrRole, role: domain.RoleAdmin},
	ActionHabitComplete: {kind: ownerOrRole, role: domain.RoleAdmin},

	ActionBusList:   {kind: public},
	ActionBusCreate: {kind: roleGate, role: domain.RoleAdmin},
	ActionBusUpdate: {kind: roleGate, role: domain.RoleAdmin},
	ActionBusDelete: {kind: roleGate, role: domain.RoleAdmin},

	ActionTicketBook:    {kind: authenticated},
	ActionTicketCancel:  {kind: ownerOrRole, role: domain.RoleAdmin},
	ActionTicketListOwn: {kind: authenticated},
	ActionTicketListAll: {kind: roleGate, role: domain.RoleAdmin},

	ActionPartyList:   {kind: public},
	ActionPartyCreate: {kind: roleGate, role: domain.RoleAdmin},
	ActionPartyUpdate: {kind: roleGate, role: domain.RoleAdmin},
	ActionPartyDelete: {kind: roleGate, role: domain.RoleAdmin},

	ActionVoteCast:    {kind: authenticated},
	ActionVoteRevoke:  {kind: authenticated},
	ActionVoteMine:    {kind: authenticated},
	ActionVoteTally:   {kind: public},
	ActionVoteListAll: {kind: roleGate, role: domain.RoleAdmin},
}

var (
	allow            = Decision{Allow: true}
	denyUnauthorized = Decision{Reason: domain.ErrUnauthorized}
	denyForbidden    = Decision{Reason: domain.ErrForbidden}
)

// Check evaluates subject against the rule for action. resourceOwner is the
// owner id of the targeted resource and only matters for owner-or-role rules;
// pass "" for actions that have no per-resource owner.
func Check(subject Subject, action Action, resourceOwner string) Decision {
	r, ok := rules[action]
	if !ok {
		if !subject.Authenticated {
			return denyUnauthorized
		}
		return denyForbidden
	}

	switch r.kind {
	case public:
		return allow
	case authenticated:
		if !subject.Authenticated {
			return denyUnauthorized
		}
		return allow
	case roleGate:
		if !subject.Authenticated {
			return denyUnauthorized
		}
		if subject.Role != r.role {
			return denyForbidden
		}
		return allow
	case ownerOrRole:
		if !subject.Authenticated {
			return denyUnauthorized
		}
		if subject.ID == resourceOwner || subject.Role == r.role {
			return allow
		}
		return denyForbidden
	}
	return denyForbidden
}
