package services

import (
	"strings"
	"time"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/camden-git/attendancebackend/database"
	"github.com/camden-git/attendancebackend/logger"
	"github.com/camden-git/attendancebackend/models"
	"github.com/camden-git/attendancebackend/repository"
	"go.uber.org/zap"
)

// DateLayout is the stored date-of-birth format.
const DateLayout = "2006-01-02"

// PersonInput is the mutable part of a person. Key is ignored on update.
type PersonInput struct {
	Key  string
	Name string
	DOB  string
	Role string
}

// FindOptions filters and orders a people listing. Empty Sort and Direction
// mean name ascending.
type FindOptions struct {
	Query     string
	Sort      string
	Direction string
}

// RegistryService manages the people who may be scanned in.
type RegistryService struct {
	people repository.PersonRepositoryInterface
	now    func() time.Time
}

// NewRegistryService creates a registry. A nil clock uses time.Now.
func NewRegistryService(people repository.PersonRepositoryInterface, now func() time.Time) *RegistryService {
	if now == nil {
		now = time.Now
	}
	return &RegistryService{people: people, now: now}
}

// AddPerson registers a new person. The key must not already exist.
func (s *RegistryService) AddPerson(in PersonInput) (*models.Person, error) {
	in = trimInput(in)
	if in.Key == "" {
		return nil, apperrors.Validation("key", "is required")
	}
	person, err := s.buildPerson(in)
	if err != nil {
		return nil, err
	}
	person.Key = in.Key

	if err := s.people.Create(person); err != nil {
		return nil, translateStoreError(err, "person", in.Key)
	}
	zap.L().Info("person added", zap.String(logger.FieldPersonKey, person.Key))
	return person, nil
}

// UpdatePerson rewrites name, dob and role of an existing person. Age is
// recomputed.
func (s *RegistryService) UpdatePerson(key string, in PersonInput) (*models.Person, error) {
	key = strings.TrimSpace(key)
	in = trimInput(in)
	person, err := s.buildPerson(in)
	if err != nil {
		return nil, err
	}
	person.Key = key

	if err := s.people.Update(person); err != nil {
		return nil, translateStoreError(err, "person", key)
	}
	return s.Get(key)
}

// DeletePerson removes a person together with their attendance history. A
// person who started any recorded session cannot be deleted until that
// history is purged.
func (s *RegistryService) DeletePerson(key string) error {
	key = strings.TrimSpace(key)
	if _, err := s.Get(key); err != nil {
		return err
	}

	started, err := s.people.CountStartedSessions(key)
	if err != nil {
		return err
	}
	if started > 0 {
		return apperrors.Conflict("person %q started %d recorded session(s); delete that history first", key, started)
	}

	if err := s.people.Delete(key); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return apperrors.Conflict("person %q is still referenced by a session", key)
		}
		return translateStoreError(err, "person", key)
	}
	zap.L().Info("person deleted", zap.String(logger.FieldPersonKey, key))
	return nil
}

// Get returns one person by key.
func (s *RegistryService) Get(key string) (*models.Person, error) {
	person, err := s.people.GetByKey(strings.TrimSpace(key))
	if err != nil {
		return nil, translateStoreError(err, "person", key)
	}
	return person, nil
}

// Find lists people matching opts.Query in name, dob, age or role.
func (s *RegistryService) Find(opts FindOptions) ([]models.Person, error) {
	sortKey := strings.ToLower(strings.TrimSpace(opts.Sort))
	if sortKey == "" {
		sortKey = database.DefaultPersonSort
	}
	if !database.IsValidPersonSort(sortKey) {
		return nil, apperrors.Validation("sort", "must be one of name, dob, age, role")
	}
	dir := strings.ToLower(strings.TrimSpace(opts.Direction))
	if dir == "" {
		dir = database.DefaultSortDirection
	}
	if !database.IsValidSortDirection(dir) {
		return nil, apperrors.Validation("dir", "must be asc or desc")
	}
	return s.people.Find(opts.Query, sortKey, dir)
}

func (s *RegistryService) buildPerson(in PersonInput) (*models.Person, error) {
	if in.Name == "" {
		return nil, apperrors.Validation("name", "is required")
	}
	if in.DOB == "" {
		return nil, apperrors.Validation("dob", "is required")
	}
	dob, err := time.Parse(DateLayout, in.DOB)
	if err != nil {
		return nil, apperrors.Validation("dob", "must be YYYY-MM-DD")
	}
	age, err := AgeOn(dob, s.now())
	if err != nil {
		return nil, err
	}
	return &models.Person{Name: in.Name, DOB: dob.Format(DateLayout), Age: age, Role: in.Role}, nil
}

// AgeOn returns completed years between dob and now. A date of birth in the
// future is a validation error.
func AgeOn(dob, now time.Time) (int, error) {
	y1, m1, d1 := dob.Date()
	y2, m2, d2 := now.Date()
	if y1 > y2 || (y1 == y2 && (m1 > m2 || (m1 == m2 && d1 > d2))) {
		return 0, apperrors.Validation("dob", "%s is in the future", dob.Format(DateLayout))
	}
	age := y2 - y1
	if m2 < m1 || (m2 == m1 && d2 < d1) {
		age--
	}
	return age, nil
}

func trimInput(in PersonInput) PersonInput {
	return PersonInput{
		Key:  strings.TrimSpace(in.Key),
		Name: strings.TrimSpace(in.Name),
		DOB:  strings.TrimSpace(in.DOB),
		Role: strings.TrimSpace(in.Role),
	}
}
