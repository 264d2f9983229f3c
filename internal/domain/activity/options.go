package activity

// ListOptions provides filtering options for listing activity.
type ListOptions struct {
	TaskID string
	Type   *Type
	Limit  int
	Offset int
}
