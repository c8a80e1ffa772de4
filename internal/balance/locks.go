package balance

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// EmployeeLocks serializes balance mutations per employee. The cascade
// reads the whole work-year chain and rewrites a suffix of it, so two
// interleaved writers for one employee can corrupt the chain even with
// row-level transactions. Different employees never contend.
type EmployeeLocks struct {
	stripes [lockStripes]sync.Mutex
}

func NewEmployeeLocks() *EmployeeLocks {
	return &EmployeeLocks{}
}

// Lock acquires the stripe for the employee and returns its unlock.
func (l *EmployeeLocks) Lock(employeeID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(employeeID))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
