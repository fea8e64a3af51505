package domain

type Action uint16

const (
	ActionViewItem Action = 1 << iota
	ActionCreateItem
	ActionEditItem
	ActionSubmitItem
	ActionReviewItem
	ActionSetStatus
	ActionDeleteItem
	ActionDownloadUnpublished
	ActionManageStructure
	ActionManageUsers
	ActionViewAudit
)

type ActionSet uint16

func (s ActionSet) Has(a Action) bool { return uint16(s)&uint16(a) != 0 }

func actions(list ...Action) ActionSet {
	var s uint16
	for _, a := range list {
		s |= uint16(a)
	}
	return ActionSet(s)
}

var allActions = actions(
	ActionViewItem, ActionCreateItem, ActionEditItem, ActionSubmitItem, ActionReviewItem,
	ActionSetStatus, ActionDeleteItem, ActionDownloadUnpublished, ActionManageStructure,
	ActionManageUsers, ActionViewAudit,
)

// Permissions is the single authorization policy. ownerID is the submitter
// of the item being acted on, or zero when no item is involved.
//
// Review belongs to REVIEWER alone: admins change status through
// ActionSetStatus instead.
func Permissions(actor *Identity, ownerID uint) ActionSet {
	if actor == nil || actor.UserID == 0 {
		return 0
	}
	var set ActionSet
	switch actor.Role {
	case RoleAdmin:
		set = allActions &^ actions(ActionReviewItem)
	case RoleReviewer:
		set = actions(ActionViewItem, ActionReviewItem, ActionDownloadUnpublished)
	case RoleSubmitter:
		set = actions(ActionCreateItem)
	}
	if ownerID != 0 && actor.UserID == ownerID {
		set |= actions(ActionViewItem, ActionEditItem, ActionSubmitItem, ActionDownloadUnpublished)
	}
	return set
}

// Authorize is Permissions plus the error the caller should see.
func Authorize(actor *Identity, ownerID uint, action Action) error {
	if actor == nil || actor.UserID == 0 {
		return ErrUnauthorized.New("login required")
	}
	if !Permissions(actor, ownerID).Has(action) {
		return ErrForbidden.New("not allowed")
	}
	return nil
}
