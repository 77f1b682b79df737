package dentsi

import (
	"encoding/json"
	"strings"
)

// Health is the backend liveness payload from GET /health
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Healthy reports whether the backend answered with a good status
func (h Health) Healthy() bool {
	switch strings.ToLower(h.Status) {
	case "ok", "healthy":
		return true
	}
	return false
}

type Clinic struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Phone    string          `json:"phone"`
	Address  string          `json:"address"`
	Hours    string          `json:"hours"`
	Services json.RawMessage `json:"services,omitempty"`
	Count    *ClinicCount    `json:"_count,omitempty"`
}

type ClinicCount struct {
	Appointments int `json:"appointments"`
	Calls        int `json:"calls"`
}

// DashboardStats is the data section of GET /api/dashboard/stats
type DashboardStats struct {
	Calls        CallStats        `json:"calls"`
	Appointments AppointmentStats `json:"appointments"`
	Revenue      RevenueStats     `json:"revenue"`
}

type CallStats struct {
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	Escalated   int     `json:"escalated"`
	SuccessRate float64 `json:"successRate"`
}

type AppointmentStats struct {
	Total            int     `json:"total"`
	Confirmed        int     `json:"confirmed"`
	Cancelled        int     `json:"cancelled"`
	ConfirmationRate float64 `json:"confirmationRate"`
}

type RevenueStats struct {
	Estimated float64 `json:"estimated"`
	Currency  string  `json:"currency"`
}

// Ref is the short form of a related record embedded in list rows
type Ref struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type Appointment struct {
	ID              string  `json:"id"`
	ClinicID        string  `json:"clinic_id"`
	PatientID       *string `json:"patient_id"`
	CallID          *string `json:"call_id"`
	AppointmentDate string  `json:"appointment_date"`
	ServiceType     string  `json:"service_type"`
	Status          string  `json:"status"`
	Notes           *string `json:"notes"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	Clinic          *Ref    `json:"clinic,omitempty"`
	Patient         *Ref    `json:"patient,omitempty"`
}

type Call struct {
	ID        string  `json:"id"`
	ClinicID  string  `json:"clinic_id"`
	PatientID *string `json:"patient_id"`
	CallSID   string  `json:"call_sid"`
	Status    string  `json:"status"`
	Duration  *int    `json:"duration"`
	Metadata  *string `json:"metadata"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	Clinic    *Ref    `json:"clinic,omitempty"`
	Patient   *Ref    `json:"patient,omitempty"`
}

// Escalation is a call whose status is "callback" or "escalated"
type Escalation = Call

type Patient struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Email         *string       `json:"email"`
	DateOfBirth   string        `json:"date_of_birth"`
	InsuranceInfo *string       `json:"insurance_info"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
	Count         *PatientCount `json:"_count,omitempty"`
}

type PatientCount struct {
	Appointments int `json:"appointments"`
}

// DashboardHealth is the operational health summary from GET /api/dashboard/health
type DashboardHealth struct {
	Status    string        `json:"status"` // "healthy", "degraded", "critical"
	Timestamp string        `json:"timestamp,omitempty"`
	Metrics   HealthMetrics `json:"metrics"`
	Issues    []string      `json:"issues"`
}

type HealthMetrics struct {
	TotalCalls24h   int     `json:"totalCalls24h"`
	ErrorRate       float64 `json:"errorRate"`
	EscalationRate  float64 `json:"escalationRate"`
	AvgCallDuration float64 `json:"avgCallDuration"`
}

// DemoSession is the reply to POST /webhook/demo/start
type DemoSession struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"sessionId"`
	Greeting   string `json:"greeting,omitempty"`
	ClinicName string `json:"clinicName,omitempty"`
	Error      string `json:"error,omitempty"`
}

// DemoReply is the agent's answer to one demo message
type DemoReply struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// WriteResult is the generic reply to a mutating call
type WriteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *DemoSession) setOutcome(ok bool, err error) {
	s.Success = ok
	if err != nil {
		s.Error = err.Error()
	}
}

func (r *DemoReply) setOutcome(ok bool, err error) {
	r.Success = ok
	if err != nil {
		r.Error = err.Error()
		r.Response = "Error: " + err.Error()
	}
}

func (w *WriteResult) setOutcome(ok bool, err error) {
	w.Success = ok
	if err != nil {
		w.Error = err.Error()
	}
}
