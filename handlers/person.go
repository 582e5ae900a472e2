package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/camden-git/attendancebackend/models"
	"github.com/camden-git/attendancebackend/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RosterRefresher rebroadcasts the live roster after registry changes.
type RosterRefresher interface {
	RefreshRoster() error
}

type PersonHandler struct {
	Registry    *services.RegistryService
	Roster      RosterRefresher
	MaxUploadMB int
}

type personRequest struct {
	Key  string `json:"key" validate:"omitempty,max=128"`
	Name string `json:"name" validate:"required,max=200"`
	DOB  string `json:"dob" validate:"required,datetime=2006-01-02"`
	Role string `json:"role" validate:"max=100"`
}

func (req personRequest) input() services.PersonInput {
	return services.PersonInput{Key: req.Key, Name: req.Name, DOB: req.DOB, Role: req.Role}
}

func (ph *PersonHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	people, err := ph.Registry.Find(services.FindOptions{
		Query:     q.Get("q"),
		Sort:      q.Get("sort"),
		Direction: q.Get("dir"),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if people == nil {
		people = []models.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

func (ph *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.Key == "" {
		WriteError(w, r, apperrors.Validation("key", "is required"))
		return
	}

	person, err := ph.Registry.AddPerson(req.input())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	ph.refreshRoster()
	writeJSON(w, http.StatusCreated, person)
}

func (ph *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	person, err := ph.Registry.Get(chi.URLParam(r, "key"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (ph *PersonHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	person, err := ph.Registry.UpdatePerson(chi.URLParam(r, "key"), req.input())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	ph.refreshRoster()
	writeJSON(w, http.StatusOK, person)
}

func (ph *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := ph.Registry.DeletePerson(chi.URLParam(r, "key")); err != nil {
		WriteError(w, r, err)
		return
	}
	ph.refreshRoster()
	writeJSON(w, http.StatusNoContent, nil)
}

// DownloadTemplate serves the empty import workbook.
func (ph *PersonHandler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="Template.xlsx"`)
	if err := ph.Registry.WriteTemplate(w); err != nil {
		zap.S().Errorf("Error writing import template: %v", err)
	}
}

// ImportPeople accepts a multipart upload in the "file" field.
func (ph *PersonHandler) ImportPeople(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(ph.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteAPIError(w, http.StatusRequestEntityTooLarge, string(apperrors.CodeValidation),
				fmt.Sprintf("upload exceeds %d MB", maxBytes>>20))
			return
		}
		WriteError(w, r, apperrors.Validation("file", "invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, r, apperrors.Validation("file", "is required"))
		return
	}
	defer file.Close()

	result, err := ph.Registry.ImportPeople(file)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	zap.S().Infof("Imported %d people from %s (%d skipped)", result.Imported, header.Filename, len(result.Skipped))
	if result.Imported > 0 {
		ph.refreshRoster()
	}
	writeJSON(w, http.StatusOK, result)
}

func (ph *PersonHandler) refreshRoster() {
	if ph.Roster == nil {
		return
	}
	if err := ph.Roster.RefreshRoster(); err != nil {
		zap.S().Warnf("Failed to refresh roster after registry change: %v", err)
	}
}
