// Package dashboard assembles what the dashboard pages show out of backend
// reads, and decides when the page should announce offline mode.
package dashboard

import (
	"context"
	"time"

	"github.com/briangreenhill/dentsi/dentsi"
)

// Source is the subset of the backend client the overview reads from
type Source interface {
	Health(ctx context.Context) dentsi.Result[dentsi.Health]
	Clinics(ctx context.Context) dentsi.Result[[]dentsi.Clinic]
	Stats(ctx context.Context, clinicID string) dentsi.Result[dentsi.DashboardStats]
	Appointments(ctx context.Context, opts dentsi.ListOptions) dentsi.Result[[]dentsi.Appointment]
	Calls(ctx context.Context, opts dentsi.ListOptions) dentsi.Result[[]dentsi.Call]
}

// Limits caps the list sections of the overview
type Limits struct {
	Appointments int
	Calls        int
}

// Section names reported in Overview.Degraded
const (
	SectionHealth       = "health"
	SectionClinics      = "clinics"
	SectionStats        = "stats"
	SectionAppointments = "appointments"
	SectionCalls        = "calls"
)

type Overview struct {
	ClinicID     string                `json:"clinicId,omitempty"`
	Clinic       *dentsi.Clinic        `json:"clinic,omitempty"`
	Health       dentsi.Health         `json:"health"`
	Clinics      []dentsi.Clinic       `json:"clinics"`
	Stats        dentsi.DashboardStats `json:"stats"`
	Appointments []dentsi.Appointment  `json:"appointments"`
	Calls        []dentsi.Call         `json:"calls"`
	Revenue      float64               `json:"revenue"`
	Offline      bool                  `json:"offline"`
	Degraded     []string              `json:"degraded"`
	GeneratedAt  time.Time             `json:"generatedAt"`
}

// Build runs the overview's reads one after another and folds the results
// into a single view. It never fails; sections that fell back are listed in
// Degraded.
func Build(ctx context.Context, src Source, clinicID string, limits Limits) Overview {
	ov := Overview{
		ClinicID:    clinicID,
		Degraded:    []string{},
		GeneratedAt: time.Now(),
	}

	health := src.Health(ctx)
	ov.Health = health.Value
	ov.note(SectionHealth, health.Fallback)

	clinics := src.Clinics(ctx)
	ov.Clinics = clinics.Value
	ov.note(SectionClinics, clinics.Fallback)
	for i := range ov.Clinics {
		if ov.Clinics[i].ID == clinicID {
			ov.Clinic = &ov.Clinics[i]
			break
		}
	}

	stats := src.Stats(ctx, clinicID)
	ov.Stats = stats.Value
	ov.note(SectionStats, stats.Fallback)

	appts := src.Appointments(ctx, dentsi.ListOptions{ClinicID: clinicID, Limit: limits.Appointments})
	ov.Appointments = appts.Value
	ov.note(SectionAppointments, appts.Fallback)

	calls := src.Calls(ctx, dentsi.ListOptions{ClinicID: clinicID, Limit: limits.Calls})
	ov.Calls = calls.Value
	ov.note(SectionCalls, calls.Fallback)

	ov.Revenue = stats.Value.Revenue.Estimated
	if stats.Fallback || ov.Revenue == 0 {
		ov.Revenue = EstimateRevenue(ov.Appointments)
	}

	ov.Offline = health.Fallback || !health.Value.Healthy()
	return ov
}

func (ov *Overview) note(section string, fallback bool) {
	if fallback {
		ov.Degraded = append(ov.Degraded, section)
	}
}

// DemoMode reports whether any section is showing fallback data
func (ov Overview) DemoMode() bool {
	return ov.Offline || len(ov.Degraded) > 0
}
