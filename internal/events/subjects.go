package events

const (
	SubjectRunSubmitted = "docking.run.submitted"

	StreamName   = "FRONTIER_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectRunQueued(runID string) string    { return "docking.run." + runID + ".queued" }
func SubjectRunStarted(runID string) string   { return "docking.run." + runID + ".started" }
func SubjectRunCompleted(runID string) string { return "docking.run." + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return "docking.run." + runID + ".failed" }
func SubjectRunRequeued(runID string) string  { return "docking.run." + runID + ".requeued" }

func SubjectFrontierComputed(runID string) string { return "docking.frontier." + runID + ".computed" }
