package pipeline

// Stage is where a cycle ended.
type Stage int

const (
	Idle Stage = iota
	FrameAcquired
	Displayed
	RecognitionGated
	RecognitionRan
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case FrameAcquired:
		return "frame_acquired"
	case Displayed:
		return "displayed"
	case RecognitionGated:
		return "recognition_gated"
	case RecognitionRan:
		return "recognition_ran"
	}
	return "unknown"
}
