package models

// StoreSummary holds aggregate figures over the stored vehicles.
type StoreSummary struct {
	TotalRecords  int
	PricedRecords int
	AveragePrice  float64
	MinPrice      int
	MaxPrice      int
	MostExpensive *CleanRecord
	Cheapest      *CleanRecord
	RecordsByMake map[string]int
	RecordsByYear map[string]int
}
