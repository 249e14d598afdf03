package domain

// Handling class of a product; drives which agent types may carry it.
type ProductClass string

const (
	ClassStandard  ProductClass = "standard"
	ClassFragile   ProductClass = "fragile"
	ClassOversized ProductClass = "oversized"
	ClassHazardous ProductClass = "hazardous"
)

func (c ProductClass) Valid() bool {
	switch c {
	case ClassStandard, ClassFragile, ClassOversized, ClassHazardous:
		return true
	}
	return false
}

// A stocked item stored in exactly one zone.
type Product struct {
	ID     string
	Name   string
	Zone   string
	Class  ProductClass
	Weight float64 // kg per unit
	Volume float64 // litres per unit

	// Product ids that must not travel in the same load as this one.
	IncompatibleWith []string
}
