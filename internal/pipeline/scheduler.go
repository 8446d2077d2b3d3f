package pipeline

// Priority is the advisory queue lane for a job. Workers drain higher
// lanes before lower ones, but never preempt a running job.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

const (
	highSizeLimit   = 10 << 20 // documents under this go to the high lane
	normalSizeLimit = 50 << 20
)

// PriorityFor assigns a lane from document size, then downgrades one level
// when the conversion service is unavailable. Downgrading at the low lane
// is a no-op.
func PriorityFor(sizeBytes int64, serviceAvailable bool) Priority {
	var p Priority
	switch {
	case sizeBytes < highSizeLimit:
		p = PriorityHigh
	case sizeBytes <= normalSizeLimit:
		p = PriorityNormal
	default:
		p = PriorityLow
	}
	if !serviceAvailable {
		p = downgrade(p)
	}
	return p
}

func downgrade(p Priority) Priority {
	switch p {
	case PriorityHigh:
		return PriorityNormal
	case PriorityNormal:
		return PriorityLow
	default:
		return PriorityLow
	}
}
