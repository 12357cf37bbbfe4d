package domain

type NanotaskID string

type NanotaskGroupID string

type JobID string

// Nanotask is the smallest unit of annotation work dispatched to the
// task-management side. This client only ever creates nanotasks, never reads
// them back.
type Nanotask struct {
	ID    NanotaskID
	Props NanotaskProps
}

type NanotaskProps struct {
	SyncID string
}

// Fixed publishing parameters for nanotasks created by this client.
const (
	NanotaskTemplateName  = "NejiFinderApp"
	NanotaskTag           = ""
	NanotaskPriority      = 100
	NanotaskNumAssignable = 0
)

// JobParameter is the payload a registered job carries, tying the marketplace
// order back to the task-management resources it was created from.
type JobParameter struct {
	NanotaskGroupIDs         []NanotaskGroupID
	AutomationParameterSetID AutomationParameterSetID
	PlatformParameterSetID   PlatformParameterSetID
}
