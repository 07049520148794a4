package entities

// Status is what the day view shows for one medicine.
type Status string

const (
	Pending      Status = "PENDING"
	TakenToday   Status = "TAKEN_TODAY"
	NotScheduled Status = "NOT_SCHEDULED"
)

// Statuses lists every status in display order.
var Statuses = []Status{Pending, TakenToday, NotScheduled}
