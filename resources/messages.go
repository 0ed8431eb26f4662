package resources

// Fixed user-facing messages. Validation failures are the only errors
// that surface server-provided text; everything else maps to one of
// these.
const (
	MessageCreated = "Record created"
	MessageUpdated = "Record updated"
	MessageDeleted = "Record deleted"

	MessageNotFound   = "The requested record could not be found"
	MessageUnexpected = "Something went wrong, please try again"
)
