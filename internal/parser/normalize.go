package parser

import "feedcore/pkg/domain"

// Normalization records how inclusions were rescaled to a 100% total.
type Normalization struct {
	Normalized    bool    `json:"normalized"`
	OriginalTotal float64 `json:"original_total"`
	Factor        float64 `json:"factor"`
}

// Normalize rescales every item by 100/S where S is the parsed total, so the
// inclusions sum to 100. Formulas with no items or a non-positive total are
// left untouched and reported as not normalized.
func Normalize(p *Parsed) Normalization {
	total := p.Total
	if len(p.Items) == 0 || total <= 0 {
		return Normalization{OriginalTotal: total}
	}
	factor := 100 / total
	for i := range p.Items {
		p.Items[i].Inclusion = domain.Round(p.Items[i].Inclusion*factor, 6)
	}
	p.Total = 100
	n := Normalization{
		Normalized:    true,
		OriginalTotal: domain.Round(total, 4),
		Factor:        domain.Round(factor, 8),
	}
	p.Normalization = &n
	return n
}
