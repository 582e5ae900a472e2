package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/camden-git/attendancebackend/models"
	"github.com/camden-git/attendancebackend/session"
)

// SessionHandler exposes the session controller. Now is the clock every
// request is evaluated against.
type SessionHandler struct {
	Controller            *session.Controller
	DefaultNormalDuration time.Duration
	DefaultLateDuration   time.Duration
	Now                   func() time.Time
}

type startSessionRequest struct {
	StarterKey        string `json:"starter_key" validate:"required,max=128"`
	Title             string `json:"title" validate:"required,max=200"`
	Description       string `json:"description" validate:"max=2000"`
	NormalDurationSec *int64 `json:"normal_duration_sec" validate:"omitempty,gte=1"`
	EndClock          string `json:"end_clock" validate:"omitempty,datetime=15:04"`
	LateDurationSec   *int64 `json:"late_duration_sec" validate:"omitempty,gte=0"`
}

type scanRequest struct {
	Key string `json:"key" validate:"required"`
}

type sessionStateResponse struct {
	Phase        session.Phase         `json:"phase"`
	Session      *models.Session       `json:"session"`
	RemainingSec int64                 `json:"remaining_sec"`
	Roster       []session.RosterEntry `json:"roster"`
}

func (sh *SessionHandler) now() time.Time {
	if sh.Now == nil {
		return time.Now()
	}
	return sh.Now()
}

// StartSession opens a session. Omitted durations fall back to the
// configured defaults; end_clock replaces the normal duration.
func (sh *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	now := sh.now()
	var req startSessionRequest
	if verr := decodeJSON(r, &req); verr != nil {
		// a live session is reported ahead of any problem with the payload
		if state, err := sh.Controller.Current(now); err == nil && state.Session != nil {
			WriteError(w, r, &apperrors.ConflictError{
				Code:   apperrors.CodeActiveSession,
				Reason: fmt.Sprintf("session %d is already active", state.Session.ID),
			})
			return
		}
		WriteError(w, r, verr)
		return
	}

	in := session.StartInput{
		StarterKey:   req.StarterKey,
		Title:        req.Title,
		Description:  req.Description,
		EndClock:     req.EndClock,
		LateDuration: sh.DefaultLateDuration,
	}
	switch {
	case req.NormalDurationSec != nil:
		in.NormalDuration = time.Duration(*req.NormalDurationSec) * time.Second
	case req.EndClock == "":
		in.NormalDuration = sh.DefaultNormalDuration
	}
	if req.LateDurationSec != nil {
		in.LateDuration = time.Duration(*req.LateDurationSec) * time.Second
	}

	state, err := sh.Controller.Start(in, now)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	sh.writeState(w, r, http.StatusCreated, state)
}

// CurrentSession returns the phase, countdown and live roster.
func (sh *SessionHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	state, err := sh.Controller.Current(sh.now())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	sh.writeState(w, r, http.StatusOK, state)
}

// Scan submits one scanned key. Ignored scans still answer 200 with their
// outcome.
func (sh *SessionHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	result, err := sh.Controller.ProcessScan(req.Key, sh.now())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Outcome == session.ScanRecorded {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// CloseSession ends the active session early.
func (sh *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	state, err := sh.Controller.Close(sh.now())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	sh.writeState(w, r, http.StatusOK, state)
}

func (sh *SessionHandler) writeState(w http.ResponseWriter, r *http.Request, status int, state session.State) {
	roster, err := sh.Controller.Roster()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if roster == nil {
		roster = []session.RosterEntry{}
	}
	writeJSON(w, status, sessionStateResponse{
		Phase:        state.Phase,
		Session:      state.Session,
		RemainingSec: int64((state.Remaining + time.Second - 1) / time.Second),
		Roster:       roster,
	})
}
