package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

// StudentSearch filters students by name substring and required skills.
// An empty Name or Skills matches every student.
type StudentSearch struct {
	ExcludeUserID string
	Name          string
	Skills        []string
	Limit         int
}

type StudentRepository interface {
	// SetSkills replaces the student's skill list. It returns nil when the
	// user has no student profile.
	SetSkills(ctx context.Context, userID string, skills []string) (*model.Profile, error)
	// ListSkills returns every distinct skill across students, sorted.
	ListSkills(ctx context.Context) ([]string, error)
	Search(ctx context.Context, q StudentSearch) ([]model.StudentMatch, error)
}

type studentRepo struct {
	db sqlxDB
}

func NewStudentRepository(db *sqlx.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) SetSkills(ctx context.Context, userID string, skills []string) (*model.Profile, error) {
	if skills == nil {
		skills = []string{}
	}
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, `
		UPDATE student_profiles SET skills = $2
		WHERE user_id = $1
		RETURNING *
	`, userID, pq.Array(skills))
	return HandleNotFound(&profile, err)
}

func (r *studentRepo) ListSkills(ctx context.Context) ([]string, error) {
	skills := []string{}
	err := r.db.SelectContext(ctx, &skills, `
		SELECT DISTINCT skill
		FROM student_profiles, unnest(skills) AS skill
		ORDER BY skill
	`)
	return skills, err
}

func (r *studentRepo) Search(ctx context.Context, q StudentSearch) ([]model.StudentMatch, error) {
	skills := q.Skills
	if skills == nil {
		skills = []string{}
	}
	matches := []model.StudentMatch{}
	err := r.db.SelectContext(ctx, &matches, `
		SELECT u.id, u.name, u.email, u.role, p.skills
		FROM users u
		JOIN student_profiles p ON p.user_id = u.id
		WHERE u.id::text <> $1
		  AND u.name ILIKE $2 ESCAPE '\'
		  AND p.skills @> $3
		ORDER BY u.name, u.id
		LIMIT $4
	`, q.ExcludeUserID, containsPattern(q.Name), pq.Array(skills), q.Limit)
	return matches, err
}
