package pipeline

import "github.com/chriszhao1988/iroha/internal/model"

// cycleDetector remembers which (trigger, cause) pairs already ran in the
// current block. A trigger never runs twice for the same cause event.
// One detector per ApplyBlock call; not safe for concurrent use.
type cycleDetector struct {
	seen map[string]bool
}

func newCycleDetector() *cycleDetector {
	return &cycleDetector{seen: make(map[string]bool)}
}

func (c *cycleDetector) wouldCycle(id model.TriggerID, cause string) bool {
	return c.seen[string(id)+"\x00"+cause]
}

func (c *cycleDetector) record(id model.TriggerID, cause string) {
	c.seen[string(id)+"\x00"+cause] = true
}
