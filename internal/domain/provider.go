package domain

import (
	"math"
	"time"
)

// ServiceCategory is a kind of home service a provider can offer.
type ServiceCategory string

const (
	CategoryPlumbing        ServiceCategory = "plumbing"
	CategoryElectrical      ServiceCategory = "electrical"
	CategoryCleaning        ServiceCategory = "cleaning"
	CategoryCarpentry       ServiceCategory = "carpentry"
	CategoryPainting        ServiceCategory = "painting"
	CategoryApplianceRepair ServiceCategory = "appliance_repair"
	CategoryGardening       ServiceCategory = "gardening"
	CategoryPestControl     ServiceCategory = "pest_control"
	CategoryMoving          ServiceCategory = "moving"
	CategoryHVAC            ServiceCategory = "hvac"
)

var knownCategories = map[ServiceCategory]struct{}{
	CategoryPlumbing:        {},
	CategoryElectrical:      {},
	CategoryCleaning:        {},
	CategoryCarpentry:       {},
	CategoryPainting:        {},
	CategoryApplianceRepair: {},
	CategoryGardening:       {},
	CategoryPestControl:     {},
	CategoryMoving:          {},
	CategoryHVAC:            {},
}

// Valid reports whether c is one of the known service categories.
func (c ServiceCategory) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// Rating scores are accepted within this inclusive range.
const (
	MinRatingScore = 1.0
	MaxRatingScore = 5.0
)

// RatingStat is the running rating of a provider.
// Sum is kept instead of the average so the mean stays exact regardless of fold order.
type RatingStat struct {
	Sum   float64
	Count int
}

// Average returns the arithmetic mean of all folded scores, 0 when nothing was folded.
func (r RatingStat) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	return r.Sum / float64(r.Count)
}

// Pricing describes how a provider charges for a visit.
type Pricing struct {
	BasePrice float64
	PerKmRate float64
}

// Quote returns the price of a visit at the given distance, rounded to cents.
func (p Pricing) Quote(distanceMeters float64) float64 {
	price := p.BasePrice + p.PerKmRate*distanceMeters/1000
	return math.Round(price*100) / 100
}

// Provider is a professional offering one or more service categories.
type Provider struct {
	ID           string
	BusinessName string
	Phone        string
	Categories   []ServiceCategory
	Location     Point
	Available    bool
	Verified     bool
	Suspended    bool
	Rating       RatingStat
	Pricing      Pricing
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Offers reports whether the provider offers the given category.
func (p *Provider) Offers(category ServiceCategory) bool {
	for _, c := range p.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Bookable reports whether the provider can currently take new work.
func (p *Provider) Bookable() bool {
	return p.Available && !p.Suspended
}
