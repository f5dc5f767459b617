package stripe

// Plan is the tag of a subscription tier offered on the pricing page.
type Plan string

const (
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// AllPlans lists every tier in display order.
var AllPlans = []Plan{PlanStarter, PlanProfessional, PlanEnterprise}

// Config holds the complete Stripe configuration
type Config struct {
	APIKey        string          `yaml:"api_key" json:"api_key"`
	WebhookSecret string          `yaml:"webhook_secret" json:"webhook_secret"`
	Prices        map[Plan]string `yaml:"prices" json:"prices"`
}

// Catalog resolves plan tags into Stripe price IDs.
type Catalog struct {
	prices map[Plan]string
}

// NewCatalog builds the catalog from the configured prices. Tags other than
// the three known tiers and empty price IDs are dropped.
func NewCatalog(prices map[Plan]string) *Catalog {
	c := &Catalog{prices: make(map[Plan]string, len(AllPlans))}
	for _, plan := range AllPlans {
		if id := prices[plan]; id != "" {
			c.prices[plan] = id
		}
	}
	return c
}

// PriceID returns the price configured for tag. Unknown tags and known tags
// without a configured price both report false.
func (c *Catalog) PriceID(tag string) (string, bool) {
	id, ok := c.prices[Plan(tag)]
	return id, ok
}

// Plans returns the tiers that have a configured price.
func (c *Catalog) Plans() []Plan {
	plans := make([]Plan, 0, len(c.prices))
	for _, plan := range AllPlans {
		if _, ok := c.prices[plan]; ok {
			plans = append(plans, plan)
		}
	}
	return plans
}
