package pricing

// Stage is a named, pure transformation over a quote.
type Stage struct {
	Name  string
	Apply func(Quote) Quote
}

// Pipeline runs stages in declaration order. The composition of the pricing
// pipeline is declared once here instead of being re-derived by every caller.
type Pipeline struct {
	Stages []Stage
}

// Stage names in canonical evaluation order.
const (
	StageBundle    = "bundle"
	StageCoupon    = "coupon"
	StageShipping  = "shipping"
	StageInsurance = "insurance"
	StageCharges   = "charges"
	StageTax       = "tax"
	StageTotal     = "total"
)

// New assembles a pipeline from the provided stages followed by the final
// total stage.
func New(stages ...Stage) Pipeline {
	all := make([]Stage, 0, len(stages)+1)
	all = append(all, stages...)
	all = append(all, totalStage())
	return Pipeline{Stages: all}
}

// Run evaluates every stage against the quote.
func (p Pipeline) Run(q Quote) Quote {
	for _, s := range p.Stages {
		if s.Apply == nil {
			continue
		}
		q = s.Apply(q)
	}
	return q
}

func totalStage() Stage {
	return Stage{
		Name: StageTotal,
		Apply: func(q Quote) Quote {
			q.Total = q.DiscountedSubtotal() + q.ShippingPayable() + q.InsurancePremium + q.ChargesTotal() + q.Tax
			return q
		},
	}
}
