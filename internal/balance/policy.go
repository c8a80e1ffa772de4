package balance

// Default per-work-year allocations. Annual leave is only granted after
// one completed year of service; sick and casual are available from day
// one and reset every work year.
const (
	DefaultAnnualAllocation = 20
	DefaultSickAllocation   = 10
	DefaultCasualAllocation = 10
)

// Allocation is the day grant for one work year.
type Allocation struct {
	Annual int
	Sick   int
	Casual int
}

// PolicyOverrides carries per-employee limits; zero fields fall back to
// the defaults.
type PolicyOverrides struct {
	AnnualLimit int
	SickLimit   int
	CasualLimit int
}

// AllocationFor returns the grant for a work year under the default
// policy plus any employee overrides.
func AllocationFor(workYear int, overrides PolicyOverrides) Allocation {
	annual := DefaultAnnualAllocation
	if overrides.AnnualLimit > 0 {
		annual = overrides.AnnualLimit
	}
	if workYear < 1 {
		annual = 0
	}

	sick := DefaultSickAllocation
	if overrides.SickLimit > 0 {
		sick = overrides.SickLimit
	}

	casual := DefaultCasualAllocation
	if overrides.CasualLimit > 0 {
		casual = overrides.CasualLimit
	}

	return Allocation{Annual: annual, Sick: sick, Casual: casual}
}
