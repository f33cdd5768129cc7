package plan

// Plan keys understood by the backend. The catalog is configuration the
// core consumes, not computes: amounts are integer currency units (PKR).
const (
	WeeklyUnlimited  = "weekly_unlimited"
	MonthlySpecific  = "monthly_specific"
	MonthlyUnlimited = "monthly_unlimited"
)

// fallbackDurationDays applies to plan keys missing from the catalog so
// DurationDays stays total over every identifier a stored link may carry.
const fallbackDurationDays = 30

type Plan struct {
	Key            string
	DisplayName    string
	Amount         int64
	DiscountAmount int64
	DurationDays   int

	// Metered plans are capped per cycle instead of unlimited.
	Metered    bool
	MeteredCap int64

	// RequiredBooks is the exact number of books a checkout for this
	// plan must name. Zero means the plan is not book-restricted.
	RequiredBooks int
}

type Catalog struct {
	plans map[string]Plan
}

func DefaultCatalog() *Catalog {
	return &Catalog{plans: map[string]Plan{
		WeeklyUnlimited: {
			Key:            WeeklyUnlimited,
			DisplayName:    "Weekly Unlimited (14 Days)",
			Amount:         450,
			DiscountAmount: 400,
			DurationDays:   14,
		},
		MonthlySpecific: {
			Key:            MonthlySpecific,
			DisplayName:    "Monthly Specific (30 Papers)",
			Amount:         800,
			DiscountAmount: 750,
			DurationDays:   30,
			Metered:        true,
			MeteredCap:     30,
			RequiredBooks:  1,
		},
		MonthlyUnlimited: {
			Key:            MonthlyUnlimited,
			DisplayName:    "Monthly Unlimited (30 Days)",
			Amount:         1200,
			DiscountAmount: 1150,
			DurationDays:   30,
		},
	}}
}

func (c *Catalog) Lookup(key string) (Plan, bool) {
	p, ok := c.plans[key]
	return p, ok
}

func (c *Catalog) DurationDays(key string) int {
	if p, ok := c.plans[key]; ok {
		return p.DurationDays
	}
	return fallbackDurationDays
}

func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.plans))
	for k := range c.plans {
		keys = append(keys, k)
	}
	return keys
}
