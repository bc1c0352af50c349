package upstream

// Order status vocabulary used by the store backend.
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusCanceled = "canceled"
)

// MapStatus translates the POS terminal's legacy status tokens into the
// backend vocabulary. Unknown values pass through unchanged so new
// backend statuses do not need a release on this side.
func MapStatus(status string) string {
	switch status {
	case "choduyet":
		return StatusPending
	case "daduyet":
		return StatusPaid
	case "dahuy":
		return StatusCanceled
	default:
		return status
	}
}
