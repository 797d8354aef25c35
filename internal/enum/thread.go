package enum

type ThreadType string

const (
	ThreadCustomer ThreadType = "customer"
	ThreadMessage  ThreadType = "message"
	ThreadNote     ThreadType = "note"
)

func (t ThreadType) String() string {
	return string(t)
}

type ThreadState string

const (
	ThreadStateDraft     ThreadState = "draft"
	ThreadStatePublished ThreadState = "published"
	ThreadStateDeleted   ThreadState = "deleted"
)

func (t ThreadState) String() string {
	return string(t)
}
