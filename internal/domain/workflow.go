package domain

// Trigger names an event that moves an item through its lifecycle.
type Trigger string

const (
	TriggerSubmit  Trigger = "submit"
	TriggerApprove Trigger = "approve"
	TriggerReject  Trigger = "reject"
)

var transitions = map[Trigger]map[ItemStatus]ItemStatus{
	TriggerSubmit: {
		StatusDraft:    StatusInReview,
		StatusRejected: StatusInReview,
	},
	TriggerApprove: {StatusInReview: StatusPublished},
	TriggerReject:  {StatusInReview: StatusRejected},
}

// Next resolves the state an item in status from reaches on trigger.
func Next(from ItemStatus, trigger Trigger) (ItemStatus, error) {
	edges, ok := transitions[trigger]
	if !ok {
		return "", ErrValidation.New("unknown workflow trigger %q", trigger)
	}
	to, ok := edges[from]
	if !ok {
		if trigger == TriggerApprove || trigger == TriggerReject {
			return "", ErrValidation.New("item is not awaiting review")
		}
		return "", ErrValidation.New("cannot %s an item in status %s", trigger, from)
	}
	return to, nil
}

// ReviewTrigger maps the status a reviewer asks for onto its trigger.
func ReviewTrigger(status string) (Trigger, error) {
	switch ItemStatus(status) {
	case StatusPublished:
		return TriggerApprove, nil
	case StatusRejected:
		return TriggerReject, nil
	}
	return "", ErrValidation.New("status must be PUBLISHED or REJECTED")
}

// EditableBySubmitter reports whether the owner may still change the item.
// Admins are not bound by this.
func EditableBySubmitter(status ItemStatus) bool {
	return status == StatusDraft || status == StatusRejected
}
