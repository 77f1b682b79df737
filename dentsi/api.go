package dentsi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// timeout used for the active-clinic toggle, which is best effort
const setActiveClinicTimeout = 5 * time.Second

// ErrInvalidID is returned for record ids that cannot be used as a path segment
var ErrInvalidID = errors.New("invalid id")

// segment escapes id for use as a single path segment. Ids that would
// change the path ("", ".", "..") are rejected.
func segment(id string) (string, error) {
	switch id {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return url.PathEscape(id), nil
}

// ListOptions filters the paginated dashboard lists. Zero values are left
// out of the query string.
type ListOptions struct {
	ClinicID string
	Status   string // appointments and calls
	Type     string // escalations
	Limit    int
}

func (o ListOptions) params() map[string]string {
	p := map[string]string{
		"clinicId": o.ClinicID,
		"status":   o.Status,
		"type":     o.Type,
	}
	if o.Limit > 0 {
		p["limit"] = strconv.Itoa(o.Limit)
	}
	return p
}

// Health checks backend liveness. Falls back to status "offline".
func (c *Client) Health(ctx context.Context) Result[Health] {
	return fetch(ctx, c, "/health", nil, Health{Status: "offline"})
}

// Clinics lists every clinic the backend knows about
func (c *Client) Clinics(ctx context.Context) Result[[]Clinic] {
	return fetch(ctx, c, "/clinics", nil, []Clinic{})
}

// Stats returns the dashboard counters, optionally scoped to one clinic
func (c *Client) Stats(ctx context.Context, clinicID string) Result[DashboardStats] {
	return fetch(ctx, c, "/api/dashboard/stats", map[string]string{"clinicId": clinicID}, DashboardStats{})
}

func (c *Client) Appointments(ctx context.Context, opts ListOptions) Result[[]Appointment] {
	opts.Type = ""
	return fetch(ctx, c, "/api/dashboard/appointments", opts.params(), []Appointment{})
}

func (c *Client) Calls(ctx context.Context, opts ListOptions) Result[[]Call] {
	opts.Type = ""
	return fetch(ctx, c, "/api/dashboard/calls", opts.params(), []Call{})
}

// Escalations lists calls that were handed to staff or need a callback
func (c *Client) Escalations(ctx context.Context, opts ListOptions) Result[[]Escalation] {
	opts.Status = ""
	return fetch(ctx, c, "/api/dashboard/escalations", opts.params(), []Escalation{})
}

// DashboardHealth returns the call-quality summary. Falls back to status "offline".
func (c *Client) DashboardHealth(ctx context.Context, clinicID string) Result[DashboardHealth] {
	return fetch(ctx, c, "/api/dashboard/health", map[string]string{"clinicId": clinicID},
		DashboardHealth{Status: "offline", Issues: []string{}})
}

// Patients returns the raw patient list
func (c *Client) Patients(ctx context.Context) Result[[]Patient] {
	return fetch(ctx, c, "/patients", nil, []Patient{})
}

// RecentCalls returns the raw call log from GET /calls
func (c *Client) RecentCalls(ctx context.Context) Result[[]Call] {
	return fetch(ctx, c, "/calls", nil, []Call{})
}

// StartDemo opens a simulated inbound call against the voice agent
func (c *Client) StartDemo(ctx context.Context, clinicID, callerPhone string) DemoSession {
	var s DemoSession
	in := map[string]string{"clinicId": clinicID, "callerPhone": callerPhone}
	send(ctx, c, http.MethodPost, "/webhook/demo/start", in, c.demoTimeout, &s)
	return s
}

// SendDemoMessage sends one caller utterance in a running demo session
func (c *Client) SendDemoMessage(ctx context.Context, sessionID, message, clinicID string) DemoReply {
	var r DemoReply
	in := map[string]string{"sessionId": sessionID, "userMessage": message, "clinicId": clinicID}
	send(ctx, c, http.MethodPost, "/webhook/demo", in, c.demoTimeout, &r)
	return r
}

// UpdateClinicPhone assigns a phone number to a clinic
func (c *Client) UpdateClinicPhone(ctx context.Context, clinicID, phone string) WriteResult {
	var w WriteResult
	id, err := segment(clinicID)
	if err != nil {
		w.setOutcome(false, err)
		return w
	}
	send(ctx, c, http.MethodPatch, "/clinics/"+id+"/phone", map[string]string{"phone": phone}, c.timeout, &w)
	return w
}

// SetActiveClinic tells the backend which clinic inbound demo calls route to
func (c *Client) SetActiveClinic(ctx context.Context, clinicID string) WriteResult {
	var w WriteResult
	send(ctx, c, http.MethodPost, "/admin/set-active-clinic", map[string]string{"clinic_id": clinicID}, setActiveClinicTimeout, &w)
	return w
}

// ResolveEscalation marks an escalated call as handled
func (c *Client) ResolveEscalation(ctx context.Context, id string) WriteResult {
	var w WriteResult
	seg, err := segment(id)
	if err != nil {
		w.setOutcome(false, err)
		return w
	}
	send(ctx, c, http.MethodPatch, "/api/dashboard/escalations/"+seg+"/resolve", nil, c.timeout, &w)
	return w
}
