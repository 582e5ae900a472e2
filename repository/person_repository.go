package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camden-git/attendancebackend/database"
	"github.com/camden-git/attendancebackend/models"
	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PersonRepository handles database operations for Person records
type PersonRepository struct {
	DB *gorm.DB
}

// NewPersonRepository creates a new instance of PersonRepository
func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{DB: db}
}

// Create creates a new person record in the database
func (r *PersonRepository) Create(person *models.Person) error {
	now := time.Now().Unix()
	if person.CreatedAt == 0 {
		person.CreatedAt = now
	}
	if person.UpdatedAt == 0 {
		person.UpdatedAt = now
	}

	err := r.DB.Create(person).Error
	if err != nil {
		return fmt.Errorf("failed to create person %s: %w", person.Key, err)
	}
	return nil
}

// GetByKey retrieves a person by their scanned key
func (r *PersonRepository) GetByKey(key string) (*models.Person, error) {
	var person models.Person
	err := r.DB.Where("key = ?", key).First(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get person by key %s: %w", key, err)
	}
	return &person, nil
}

// ListAll retrieves all people, ordered by name
func (r *PersonRepository) ListAll() ([]models.Person, error) {
	return r.Find("", database.SortByName, database.SortAsc)
}

// Find returns people whose name, dob, age or role contain filter
// (case-insensitive), ordered by sortKey and direction.
func (r *PersonRepository) Find(filter, sortKey, direction string) ([]models.Person, error) {
	people := []models.Person{}
	query := r.DB.Model(&models.Person{})

	if filter = strings.TrimSpace(filter); filter != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(filter)) + "%"
		query = query.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR dob LIKE ? ESCAPE '\' OR CAST(age AS TEXT) LIKE ? ESCAPE '\' OR LOWER(role) LIKE ? ESCAPE '\')`,
			like, like, like, like,
		)
	}

	err := query.Order(database.PersonOrderClause(sortKey, direction)).Find(&people).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find people for '%s': %w", filter, err)
	}
	return people, nil
}

// Update rewrites the mutable fields of a person. The key never changes.
func (r *PersonRepository) Update(person *models.Person) error {
	person.UpdatedAt = time.Now().Unix()
	// map so that zero values (empty role, age 0) are written too
	result := r.DB.Model(&models.Person{}).Where("key = ?", person.Key).Updates(map[string]interface{}{
		"name":       person.Name,
		"dob":        person.DOB,
		"age":        person.Age,
		"role":       person.Role,
		"updated_at": person.UpdatedAt,
	})

	if result.Error != nil {
		return fmt.Errorf("failed to update person %s: %w", person.Key, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a person and their attendance history in one transaction
func (r *PersonRepository) Delete(key string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("person_key = ?", key).Delete(&models.AttendanceEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete attendance for person %s: %w", key, err)
		}
		result := tx.Where("key = ?", key).Delete(&models.Person{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete person %s: %w", key, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CountStartedSessions counts sessions that reference key as their starter
func (r *PersonRepository) CountStartedSessions(key string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Session{}).Where("starter_key = ?", key).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions started by %s: %w", key, err)
	}
	return count, nil
}
