package routes

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/dentsi/dentsi"
	"github.com/briangreenhill/dentsi/internal/dashboard"
	appmw "github.com/briangreenhill/dentsi/internal/http/middleware"
)

// session keys
const (
	keyClinicID   = "clinic_id"
	keyDemoID     = "demo_session_id"
	keyDemoClinic = "demo_clinic_name"
	keyTranscript = "demo_transcript"
	keyFlash      = "flash"
)

// Backend is everything the dashboard asks of the voice-agent backend
type Backend interface {
	dashboard.Source
	Escalations(ctx context.Context, opts dentsi.ListOptions) dentsi.Result[[]dentsi.Escalation]
	Patients(ctx context.Context) dentsi.Result[[]dentsi.Patient]
	DashboardHealth(ctx context.Context, clinicID string) dentsi.Result[dentsi.DashboardHealth]

	StartDemo(ctx context.Context, clinicID, callerPhone string) dentsi.DemoSession
	SendDemoMessage(ctx context.Context, sessionID, message, clinicID string) dentsi.DemoReply
	UpdateClinicPhone(ctx context.Context, clinicID, phone string) dentsi.WriteResult
	SetActiveClinic(ctx context.Context, clinicID string) dentsi.WriteResult
	ResolveEscalation(ctx context.Context, id string) dentsi.WriteResult
}

type Server struct {
	Router  *chi.Mux
	Sess    *scs.SessionManager
	Tmpl    *template.Template
	Backend Backend
	Limits  dashboard.Limits
	Log     zerolog.Logger
}

type ServerOptions struct {
	Sess    *scs.SessionManager
	Tmpl    *template.Template
	Backend Backend
	Limits  dashboard.Limits
	Log     zerolog.Logger
}

// Turn is one line of a demo conversation
type Turn struct {
	Role string `json:"role"` // "caller" or "agent"
	Text string `json:"text"`
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Sess: opts.Sess, Tmpl: opts.Tmpl, Backend: opts.Backend, Limits: opts.Limits, Log: opts.Log}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			s.Log.Error().Err(err).Msg("write health check response")
		}
	})

	r.Get("/", s.handleHome)
	r.Get("/api/overview", s.handleOverviewJSON)
	r.Get("/appointments", s.handleAppointments)
	r.Get("/calls", s.handleCalls)
	r.Get("/escalations", s.handleEscalations)
	r.Get("/clinics", s.handleClinics)
	r.Get("/patients", s.handlePatients)

	r.Post("/clinic/select", s.handleSelectClinic)
	r.Post("/clinics/{clinicID}/phone", s.handleClinicPhone)
	r.Post("/escalations/{id}/resolve", s.handleResolveEscalation)

	r.Group(func(dr chi.Router) {
		dr.Use(s.demoSessionToContext)
		dr.Get("/demo", s.handleDemo)
		dr.Post("/demo/start", s.handleDemoStart)
		dr.Post("/demo/reset", s.handleDemoReset)
		dr.With(appmw.RequireDemoSession).Post("/demo/message", s.handleDemoMessage)
	})

	return s
}

func (s *Server) demoSessionToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := s.Sess.GetString(r.Context(), keyDemoID); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), appmw.DemoSessionKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if flash := s.Sess.PopString(r.Context(), keyFlash); flash != "" {
		data["Flash"] = flash
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.Tmpl.ExecuteTemplate(w, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render template failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// clinicID picks the clinic from the query string, then the session
func (s *Server) clinicID(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get("clinicId")); id != "" {
		return id
	}
	return s.Sess.GetString(r.Context(), keyClinicID)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	clinicID := s.clinicID(r)
	ov := dashboard.Build(r.Context(), s.Backend, clinicID, s.Limits)
	callHealth := s.Backend.DashboardHealth(r.Context(), clinicID)

	s.render(w, r, "overview", map[string]any{
		"Title":      "Overview",
		"Overview":   ov,
		"CallHealth": callHealth.Value,
		"Offline":    ov.Offline,
		"DemoMode":   ov.DemoMode(),
	})
}

func (s *Server) handleOverviewJSON(w http.ResponseWriter, r *http.Request) {
	ov := dashboard.Build(r.Context(), s.Backend, s.clinicID(r), s.Limits)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ov); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encode overview")
	}
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	res := s.Backend.Appointments(r.Context(), dentsi.ListOptions{
		ClinicID: s.clinicID(r),
		Status:   status,
		Limit:    s.Limits.Appointments,
	})

	s.render(w, r, "appointments", map[string]any{
		"Title":        "Appointments",
		"Appointments": res.Value,
		"Filter":       status,
		"Offline":      res.Fallback,
	})
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	res := s.Backend.Calls(r.Context(), dentsi.ListOptions{
		ClinicID: s.clinicID(r),
		Status:   status,
		Limit:    s.Limits.Calls,
	})

	s.render(w, r, "calls", map[string]any{
		"Title":   "Calls",
		"Calls":   res.Value,
		"Filter":  status,
		"Offline": res.Fallback,
	})
}

func (s *Server) handleEscalations(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	res := s.Backend.Escalations(r.Context(), dentsi.ListOptions{
		ClinicID: s.clinicID(r),
		Type:     typ,
		Limit:    s.Limits.Calls,
	})

	s.render(w, r, "escalations", map[string]any{
		"Title":       "Escalations",
		"Escalations": res.Value,
		"Filter":      typ,
		"Offline":     res.Fallback,
	})
}

func (s *Server) handleClinics(w http.ResponseWriter, r *http.Request) {
	res := s.Backend.Clinics(r.Context())
	s.render(w, r, "clinics", map[string]any{
		"Title":   "Clinics",
		"Clinics": res.Value,
		"Offline": res.Fallback,
	})
}

func (s *Server) handlePatients(w http.ResponseWriter, r *http.Request) {
	res := s.Backend.Patients(r.Context())
	s.render(w, r, "patients", map[string]any{
		"Title":    "Patients",
		"Patients": res.Value,
		"Offline":  res.Fallback,
	})
}

func (s *Server) handleSelectClinic(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	clinicID := strings.TrimSpace(r.Form.Get("clinic_id"))
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}

	s.Sess.Put(r.Context(), keyClinicID, clinicID)

	// routing inbound demo calls is best effort; the dashboard works without it
	if res := s.Backend.SetActiveClinic(r.Context(), clinicID); !res.Success {
		hlog.FromRequest(r).Warn().Str("clinic_id", clinicID).Str("error", res.Error).Msg("set active clinic failed")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleClinicPhone(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	phone := strings.TrimSpace(r.Form.Get("phone"))
	if phone == "" {
		http.Error(w, "phone required", http.StatusBadRequest)
		return
	}

	res := s.Backend.UpdateClinicPhone(r.Context(), clinicID, phone)
	if res.Success {
		s.Sess.Put(r.Context(), keyFlash, "Phone updated to "+phone)
	} else {
		s.Sess.Put(r.Context(), keyFlash, "Could not update phone: "+res.Error)
	}
	http.Redirect(w, r, "/clinics", http.StatusSeeOther)
}

func (s *Server) handleResolveEscalation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res := s.Backend.ResolveEscalation(r.Context(), id)
	if res.Success {
		s.Sess.Put(r.Context(), keyFlash, "Escalation resolved")
	} else {
		s.Sess.Put(r.Context(), keyFlash, "Could not resolve escalation: "+res.Error)
	}
	http.Redirect(w, r, "/escalations", http.StatusSeeOther)
}

// ---- Demo conversation

func (s *Server) transcript(ctx context.Context) []Turn {
	var turns []Turn
	if raw := s.Sess.GetString(ctx, keyTranscript); raw != "" {
		if err := json.Unmarshal([]byte(raw), &turns); err != nil {
			s.Log.Warn().Err(err).Msg("discarding unreadable demo transcript")
			return nil
		}
	}
	return turns
}

func (s *Server) saveTranscript(ctx context.Context, turns []Turn) {
	raw, err := json.Marshal(turns)
	if err != nil {
		s.Log.Error().Err(err).Msg("encode demo transcript")
		return
	}
	s.Sess.Put(ctx, keyTranscript, string(raw))
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "demo", map[string]any{
		"Title":      "Demo call",
		"SessionID":  appmw.DemoSessionID(r),
		"ClinicName": s.Sess.GetString(r.Context(), keyDemoClinic),
		"Transcript": s.transcript(r.Context()),
	})
}

func (s *Server) handleDemoStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	clinicID := strings.TrimSpace(r.Form.Get("clinic_id"))
	if clinicID == "" {
		clinicID = s.Sess.GetString(r.Context(), keyClinicID)
	}
	caller := strings.TrimSpace(r.Form.Get("caller_phone"))

	demo := s.Backend.StartDemo(r.Context(), clinicID, caller)
	if !demo.Success || demo.SessionID == "" {
		hlog.FromRequest(r).Warn().Str("clinic_id", clinicID).Str("error", demo.Error).Msg("demo start failed")
		s.Sess.Put(r.Context(), keyFlash, "Could not start demo call: "+demo.Error)
		http.Redirect(w, r, "/demo", http.StatusSeeOther)
		return
	}

	// a fresh session id, so the old one cannot be replayed
	if err := s.Sess.RenewToken(r.Context()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("renew session token")
	}
	s.Sess.Put(r.Context(), keyDemoID, demo.SessionID)
	s.Sess.Put(r.Context(), keyDemoClinic, demo.ClinicName)

	var turns []Turn
	if demo.Greeting != "" {
		turns = append(turns, Turn{Role: "agent", Text: demo.Greeting})
	}
	s.saveTranscript(r.Context(), turns)
	http.Redirect(w, r, "/demo", http.StatusSeeOther)
}

func (s *Server) handleDemoMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	msg := strings.TrimSpace(r.Form.Get("message"))
	if msg == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	id := appmw.DemoSessionID(r)
	turns := append(s.transcript(r.Context()), Turn{Role: "caller", Text: msg})

	reply := s.Backend.SendDemoMessage(r.Context(), id, msg, s.Sess.GetString(r.Context(), keyClinicID))
	if !reply.Success {
		hlog.FromRequest(r).Warn().Str("session_id", id).Str("error", reply.Error).Msg("demo message failed")
	}
	turns = append(turns, Turn{Role: "agent", Text: reply.Response})

	s.saveTranscript(r.Context(), turns)
	http.Redirect(w, r, "/demo", http.StatusSeeOther)
}

func (s *Server) handleDemoReset(w http.ResponseWriter, r *http.Request) {
	s.Sess.Remove(r.Context(), keyDemoID)
	s.Sess.Remove(r.Context(), keyDemoClinic)
	s.Sess.Remove(r.Context(), keyTranscript)
	http.Redirect(w, r, "/demo", http.StatusSeeOther)
}
