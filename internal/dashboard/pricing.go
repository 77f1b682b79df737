package dashboard

import (
	"strings"

	"github.com/briangreenhill/dentsi/dentsi"
)

// DefaultServicePrice is charged for services missing from the price list
const DefaultServicePrice = 100

type servicePrice struct {
	name  string
	price float64
}

// Checked in order; a longer name must come before any name it contains.
var servicePrices = []servicePrice{
	{"Regular Cleaning", 120},
	{"Deep Cleaning", 250},
	{"Cleaning", 120},
	{"Dental Filling", 250},
	{"Filling", 250},
	{"Crown Placement", 1200},
	{"Crown", 1200},
	{"Root Canal", 1500},
	{"Tooth Extraction", 300},
	{"Extraction", 300},
	{"Teeth Whitening", 400},
	{"Whitening", 400},
	{"Dental Implant", 3500},
	{"Implant", 3500},
	{"Emergency Visit", 200},
	{"Emergency", 200},
	{"Consultation", 75},
	{"Checkup", 75},
}

// ServicePrice returns the list price for a free-text service type
func ServicePrice(serviceType string) float64 {
	st := strings.ToLower(serviceType)
	for _, sp := range servicePrices {
		if strings.Contains(st, strings.ToLower(sp.name)) {
			return sp.price
		}
	}
	return DefaultServicePrice
}

// EstimateRevenue sums list prices over booked appointments, that is the
// ones with a patient attached.
func EstimateRevenue(appointments []dentsi.Appointment) float64 {
	var total float64
	for _, a := range appointments {
		if a.Patient == nil {
			continue
		}
		total += ServicePrice(a.ServiceType)
	}
	return total
}
