// Package authz is the authorization engine: a pure decision table over
// (role, action, ownership facts). Handlers assemble a Resource value with
// the facts a rule needs: ownership IDs and, for secretary rules, whether
// the acting secretary is currently assigned to the relevant organizer. The
// assignment fact is resolved from the database on every request; nothing
// here is cached or stateful.
package authz

import (
	"github.com/google/uuid"

	"github.com/eventia/ticketing-backend/internal/models"
)

// Action identifies an operation checked against the decision table.
type Action string

const (
	ActionViewAny     Action = "viewAny"
	ActionView        Action = "view"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionRestore     Action = "restore"
	ActionForceDelete Action = "forceDelete"

	// Event state transitions and attendee management.
	ActionPublish           Action = "publish"
	ActionHide              Action = "hide"
	ActionCancel            Action = "cancel"
	ActionListAttendees     Action = "listAttendees"
	ActionConfirmAttendance Action = "confirmAttendance"
	ActionAddAttendee       Action = "addAttendee"

	// Invitation.
	ActionSend       Action = "send"
	ActionUpdateRSVP Action = "updateRSVP"

	// Ticket.
	ActionValidate Action = "validate"

	// Payment.
	ActionProcess Action = "process"
	ActionVerify  Action = "verify"

	// Secretary assignment graph.
	ActionAssign   Action = "assign"
	ActionUnassign Action = "unassign"
)

// Resource carries the ownership facts a rule is evaluated against. For
// collection-level actions (viewAny, create) callers pass the zero value of
// the matching type; it only selects the rule table.
type Resource interface {
	resource()
}

// Event facts. ActorAssigned is true when the actor is a secretary currently
// assigned to the event's organizer.
type Event struct {
	OrganizerID   uuid.UUID
	ActorAssigned bool
}

// Invitation facts. EventOrganizerID and ActorAssigned are only needed for
// ActionSend, which is scoped to a specific event.
type Invitation struct {
	AttendeeID       uuid.UUID
	EventOrganizerID uuid.UUID
	ActorAssigned    bool
}

// Ticket facts.
type Ticket struct {
	OwnerID          uuid.UUID
	EventOrganizerID uuid.UUID
	ActorAssigned    bool
}

// Payment facts. TicketOwnerID is the attendee owning the underlying ticket.
type Payment struct {
	TicketOwnerID uuid.UUID
}

// Account facts for operations on user records.
type Account struct {
	UserID uuid.UUID
}

// Assignment facts for organizer/secretary graph mutations.
type Assignment struct {
	OrganizerID uuid.UUID
}

func (Event) resource()      {}
func (Invitation) resource() {}
func (Ticket) resource()     {}
func (Payment) resource()    {}
func (Account) resource()    {}
func (Assignment) resource() {}

// Allowed reports whether the actor may perform action on the resource.
// Administrators pass every check except deleting their own account.
func Allowed(actor models.User, action Action, res Resource) bool {
	if actor.IsAdministrator() {
		if a, ok := res.(Account); ok && action == ActionDelete && a.UserID == actor.ID {
			return false
		}
		return true
	}

	switch r := res.(type) {
	case Event:
		return eventRule(actor, action, r)
	case Invitation:
		return invitationRule(actor, action, r)
	case Ticket:
		return ticketRule(actor, action, r)
	case Payment:
		return paymentRule(actor, action, r)
	case Account:
		return accountRule(actor, action, r)
	case Assignment:
		return assignmentRule(actor, action, r)
	}
	return false
}

func eventRule(actor models.User, action Action, r Event) bool {
	owns := actor.IsOrganizer() && actor.ID == r.OrganizerID
	switch action {
	case ActionViewAny, ActionView:
		return true
	case ActionCreate:
		return actor.IsOrganizer()
	case ActionUpdate, ActionDelete, ActionPublish, ActionHide, ActionCancel:
		return owns
	case ActionListAttendees, ActionConfirmAttendance, ActionAddAttendee:
		return owns || (actor.IsSecretary() && r.ActorAssigned)
	}
	return false
}

func invitationRule(actor models.User, action Action, r Invitation) bool {
	switch action {
	case ActionViewAny:
		return true
	case ActionView, ActionUpdate, ActionUpdateRSVP:
		return actor.IsOrganizer() || actor.IsSecretary() ||
			(actor.IsAttendee() && actor.ID == r.AttendeeID)
	case ActionCreate:
		return actor.IsOrganizer() || actor.IsSecretary()
	case ActionSend:
		return (actor.IsOrganizer() && actor.ID == r.EventOrganizerID) ||
			(actor.IsSecretary() && r.ActorAssigned)
	case ActionDelete:
		return actor.IsOrganizer() || actor.IsSecretary()
	}
	return false
}

func ticketRule(actor models.User, action Action, r Ticket) bool {
	switch action {
	case ActionViewAny:
		return actor.IsOrganizer() || actor.IsSecretary()
	case ActionView, ActionUpdate:
		if actor.ID == r.OwnerID {
			return true
		}
		if actor.IsOrganizer() && actor.ID == r.EventOrganizerID {
			return true
		}
		return actor.IsSecretary() && r.ActorAssigned
	case ActionCreate:
		return true
	case ActionValidate:
		return (actor.IsOrganizer() && actor.ID == r.EventOrganizerID) ||
			(actor.IsSecretary() && r.ActorAssigned)
	case ActionDelete, ActionRestore, ActionForceDelete:
		return false // administrator only, handled by the override
	}
	return false
}

func paymentRule(actor models.User, action Action, r Payment) bool {
	switch action {
	case ActionViewAny:
		return true
	case ActionView:
		return actor.IsOrganizer() || actor.IsSecretary() ||
			(actor.IsAttendee() && actor.ID == r.TicketOwnerID)
	case ActionCreate:
		return actor.IsAttendee() || actor.IsOrganizer() || actor.IsSecretary()
	case ActionUpdate, ActionDelete, ActionProcess:
		return actor.IsOrganizer() || actor.IsSecretary()
	case ActionVerify:
		return true
	}
	return false
}

func accountRule(actor models.User, action Action, r Account) bool {
	switch action {
	case ActionViewAny:
		return actor.IsOrganizer() || actor.IsSecretary()
	case ActionView:
		return actor.ID == r.UserID || actor.IsOrganizer() || actor.IsSecretary()
	case ActionUpdate:
		return actor.ID == r.UserID
	case ActionCreate, ActionDelete, ActionRestore, ActionForceDelete:
		return false // administrator only
	}
	return false
}

func assignmentRule(actor models.User, action Action, r Assignment) bool {
	switch action {
	case ActionAssign, ActionUnassign, ActionViewAny:
		return actor.IsOrganizer() && actor.ID == r.OrganizerID
	}
	return false
}
