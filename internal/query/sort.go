package query

import "netwatch/internal/apperr"

// sortKeys and sortOrders are the closed enumerations spec.md §4.9
// requires ("the engine accepts sort keys only from a fixed enumerated
// set ... this is the defense against injection of raw sort strings").
var sortKeys = map[string]bool{
	"totalBytes": true,
	"bytesIn":    true,
	"bytesOut":   true,
	"lastSeen":   true,
	"firstSeen":  true,
}

var sortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

func validateSort(sortBy, order string) error {
	if sortBy != "" && !sortKeys[sortBy] {
		return apperr.Validationf("unknown sortBy %q", sortBy)
	}
	if order != "" && !sortOrders[order] {
		return apperr.Validationf("unknown order %q", order)
	}
	return nil
}
