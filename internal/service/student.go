package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/config"
	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/repository"
)

// ConnectionStates reports how the caller relates to other users.
type ConnectionStates interface {
	States(ctx context.Context, userID string) (map[string]model.ConnectionState, error)
}

type StudentService struct {
	students    repository.StudentRepository
	connections ConnectionStates
}

func NewStudentService(students repository.StudentRepository, connections ConnectionStates) *StudentService {
	return &StudentService{students: students, connections: connections}
}

func (s *StudentService) ListSkills(ctx context.Context) ([]string, error) {
	skills, err := s.students.ListSkills(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list skills: %w", err))
	}
	return skills, nil
}

// UpdateSkills replaces the caller's skills. Only students have a skill list.
func (s *StudentService) UpdateSkills(ctx context.Context, userID string, skills []string) (*model.Profile, error) {
	profile, err := s.students.SetSkills(ctx, userID, NormalizeSkills(skills))
	if err != nil {
		if repository.IsInvalidText(err) {
			return nil, apperrors.NotFound("Student profile")
		}
		return nil, apperrors.Database(fmt.Errorf("set skills: %w", err))
	}
	if profile == nil {
		return nil, apperrors.NotFound("Student profile")
	}
	return profile, nil
}

// Search finds other students whose name contains name and who have every
// skill in skills. At least one filter is required.
func (s *StudentService) Search(ctx context.Context, callerID, name string, skills []string) ([]model.StudentCard, error) {
	name = strings.TrimSpace(name)
	skills = NormalizeSkills(skills)
	if name == "" && len(skills) == 0 {
		return nil, apperrors.MissingRequired("name or skills")
	}

	matches, err := s.students.Search(ctx, repository.StudentSearch{
		ExcludeUserID: callerID,
		Name:          name,
		Skills:        skills,
		Limit:         config.SearchResultLimit,
	})
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("search students: %w", err))
	}

	states, err := s.connections.States(ctx, callerID)
	if err != nil {
		return nil, err
	}

	cards := make([]model.StudentCard, 0, len(matches))
	for _, m := range matches {
		state, ok := states[m.UserID]
		if !ok {
			state = model.StateNone
		}
		cardSkills := []string(m.Skills)
		if cardSkills == nil {
			cardSkills = []string{}
		}
		cards = append(cards, model.StudentCard{
			User:             model.PublicUser{ID: m.UserID, Name: m.Name, Email: m.Email, Role: m.Role},
			Skills:           cardSkills,
			ConnectionStatus: state,
		})
	}
	return cards, nil
}

// NormalizeSkills lower-cases and trims skills, dropping blanks and
// duplicates while keeping first-seen order.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	result := make([]string, 0, len(skills))
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		result = append(result, skill)
	}
	return result
}
