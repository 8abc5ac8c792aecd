package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ExerciseCategories = []string{"chest", "back", "shoulders", "arms", "legs", "core", "cardio", "full_body"}
	MuscleGroups       = []string{
		"chest", "back", "lats", "rhomboids", "shoulders", "biceps", "triceps", "forearms",
		"core", "obliques", "quadriceps", "hamstrings", "glutes", "calves", "full_body",
	}
	Difficulties = []string{"beginner", "intermediate", "advanced"}
)

const exerciseColumns = `id, name, description, category, target_muscles, equipment, difficulty, instructions,
tips, form_checkpoints, calories_per_minute, is_active, created_at, updated_at`

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, defLimit, maxLimit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

func (p Pagination) WithTotal(total int) Pagination {
	p.Total = total
	p.Pages = (total + p.Limit - 1) / p.Limit
	return p
}

// jsonContains builds a LIKE pattern matching a string element of a JSON array column.
func jsonContains(value string) string {
	raw, _ := json.Marshal(value)
	return "%" + string(raw) + "%"
}

type ExerciseFilter struct {
	Category     string
	Difficulty   string
	TargetMuscle string
	Equipment    string
	Search       string
	Page         Pagination
}

func ListExercises(ctx context.Context, q sqlx.ExtContext, f ExerciseFilter) ([]models.Exercise, Pagination, error) {
	clauses := []string{"is_active = ?"}
	args := []interface{}{true}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, f.Difficulty)
	}
	if f.TargetMuscle != "" {
		clauses = append(clauses, "target_muscles LIKE ?")
		args = append(args, jsonContains(f.TargetMuscle))
	}
	if f.Equipment != "" {
		clauses = append(clauses, "equipment LIKE ?")
		args = append(args, jsonContains(f.Equipment))
	}
	if s := CleanSearchTerm(f.Search); s != "" {
		clauses = append(clauses, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + strings.ToLower(s) + "%"
		args = append(args, pattern, pattern)
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := db.Get(ctx, q, &total, `SELECT COUNT(*) FROM exercises`+where, args...); err != nil {
		return nil, Pagination{}, err
	}
	items := []models.Exercise{}
	args = append(args, f.Page.Limit, f.Page.Offset())
	if err := db.Select(ctx, q, &items, `SELECT `+exerciseColumns+` FROM exercises`+where+` ORDER BY name LIMIT ? OFFSET ?`, args...); err != nil {
		return nil, Pagination{}, err
	}
	return items, f.Page.WithTotal(total), nil
}

func GetExercise(ctx context.Context, q sqlx.ExtContext, id string) (models.Exercise, error) {
	var ex models.Exercise
	if err := db.Get(ctx, q, &ex, `SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id); err != nil {
		if db.IsNotFound(err) {
			return models.Exercise{}, ErrNotFound("Exercise not found")
		}
		return models.Exercise{}, err
	}
	return ex, nil
}

type ExerciseInput struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Category          string           `json:"category"`
	TargetMuscles     []string         `json:"targetMuscles"`
	Equipment         []string         `json:"equipment"`
	Difficulty        string           `json:"difficulty"`
	Instructions      []string         `json:"instructions"`
	Tips              []string         `json:"tips"`
	FormCheckpoints   json.RawMessage  `json:"formCheckpoints"`
	CaloriesPerMinute *decimal.Decimal `json:"caloriesPerMinute"`
}

func (in ExerciseInput) validate() error {
	v := Violations{}
	LengthBetween("name", in.Name, 1, 150, v)
	OneOf("category", in.Category, ExerciseCategories, v)
	if in.Difficulty != "" {
		OneOf("difficulty", in.Difficulty, Difficulties, v)
	}
	if len(in.TargetMuscles) == 0 {
		v.Add("targetMuscles", "must contain at least one muscle")
	}
	if len(in.Instructions) == 0 {
		v.Add("instructions", "must contain at least one step")
	}
	if len(in.FormCheckpoints) > 0 && !json.Valid(in.FormCheckpoints) {
		v.Add("formCheckpoints", "must be valid JSON")
	}
	if in.CaloriesPerMinute != nil {
		NonNegativeDecimal("caloriesPerMinute", *in.CaloriesPerMinute, v)
	}
	return v.Err()
}

func (in ExerciseInput) apply(ex *models.Exercise) {
	ex.Name = strings.TrimSpace(in.Name)
	ex.Description = in.Description
	ex.Category = in.Category
	ex.TargetMuscles = CleanList(in.TargetMuscles, 0)
	ex.Equipment = CleanList(in.Equipment, 0)
	ex.Difficulty = in.Difficulty
	if ex.Difficulty == "" {
		ex.Difficulty = "beginner"
	}
	ex.Instructions = in.Instructions
	ex.Tips = in.Tips
	ex.FormCheckpoints = models.RawJSON(in.FormCheckpoints)
	if len(ex.FormCheckpoints) == 0 {
		ex.FormCheckpoints = models.RawJSON("[]")
	}
	ex.CaloriesPerMinute = decimal.NullDecimal{}
	if in.CaloriesPerMinute != nil {
		ex.CaloriesPerMinute = decimal.NullDecimal{Decimal: *in.CaloriesPerMinute, Valid: true}
	}
}

func CreateExercise(ctx context.Context, q sqlx.ExtContext, in ExerciseInput) (models.Exercise, error) {
	if err := in.validate(); err != nil {
		return models.Exercise{}, err
	}
	now := time.Now().UTC()
	ex := models.Exercise{ID: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	in.apply(&ex)
	if err := insertExercise(ctx, q, ex); err != nil {
		if db.IsUniqueViolation(err) {
			return models.Exercise{}, ErrConflict("An exercise with this name already exists")
		}
		return models.Exercise{}, err
	}
	return ex, nil
}

func insertExercise(ctx context.Context, q sqlx.ExtContext, ex models.Exercise) error {
	_, err := db.Exec(ctx, q, `
INSERT INTO exercises (id, name, description, category, target_muscles, equipment, difficulty, instructions,
                       tips, form_checkpoints, calories_per_minute, is_active, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ex.ID, ex.Name, ex.Description, ex.Category, ex.TargetMuscles, ex.Equipment, ex.Difficulty, ex.Instructions,
		ex.Tips, ex.FormCheckpoints, ex.CaloriesPerMinute, ex.IsActive, ex.CreatedAt, ex.UpdatedAt)
	return err
}

func UpdateExercise(ctx context.Context, q sqlx.ExtContext, id string, in ExerciseInput) (models.Exercise, error) {
	ex, err := GetExercise(ctx, q, id)
	if err != nil {
		return models.Exercise{}, err
	}
	if err := in.validate(); err != nil {
		return models.Exercise{}, err
	}
	in.apply(&ex)
	ex.UpdatedAt = time.Now().UTC()
	_, err = db.Exec(ctx, q, `
UPDATE exercises SET name = ?, description = ?, category = ?, target_muscles = ?, equipment = ?, difficulty = ?,
  instructions = ?, tips = ?, form_checkpoints = ?, calories_per_minute = ?, updated_at = ?
WHERE id = ?`,
		ex.Name, ex.Description, ex.Category, ex.TargetMuscles, ex.Equipment, ex.Difficulty,
		ex.Instructions, ex.Tips, ex.FormCheckpoints, ex.CaloriesPerMinute, ex.UpdatedAt, ex.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Exercise{}, ErrConflict("An exercise with this name already exists")
		}
		return models.Exercise{}, err
	}
	return ex, nil
}

// CanManageExercises is true for admins and approved trainers.
func CanManageExercises(ctx context.Context, q sqlx.ExtContext, userID string) (bool, error) {
	user, err := GetActiveUser(ctx, q, userID)
	if err != nil {
		return false, err
	}
	if user.Role == models.RoleAdmin || user.Role == models.RoleTrainer {
		return true, nil
	}
	var approved bool
	err = db.Get(ctx, q, &approved, `SELECT EXISTS(SELECT 1 FROM trainers WHERE user_id = ? AND application_status = ? AND is_active = ?)`,
		userID, models.ApplicationApproved, true)
	return approved, err
}

func findExerciseByName(ctx context.Context, q sqlx.ExtContext, name string) (*models.Exercise, error) {
	var ex models.Exercise
	err := db.Get(ctx, q, &ex, `SELECT `+exerciseColumns+` FROM exercises WHERE LOWER(name) = ?`, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &ex, nil
}
