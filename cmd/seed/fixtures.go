package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stemsi/proctor-backend/internal/model"
	"gopkg.in/yaml.v3"
)

// fixtures is the on-disk shape of a seed file. Exam windows are relative
// to the seeding time so a fresh seed always has live and upcoming exams.
type fixtures struct {
	Users     []userFixture     `yaml:"users"`
	Exams     []examFixture     `yaml:"exams"`
	Questions []questionFixture `yaml:"questions"`
}

type userFixture struct {
	ID         string `yaml:"id"`
	Email      string `yaml:"email"`
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	Year       int    `yaml:"year"`
	Department string `yaml:"department"`
}

type examFixture struct {
	Name                string        `yaml:"name"`
	Year                int           `yaml:"year"`
	Department          string        `yaml:"department"`
	Section             string        `yaml:"section"`
	DurationMinutes     int           `yaml:"duration_minutes"`
	StartsIn            time.Duration `yaml:"starts_in"`
	OpenFor             time.Duration `yaml:"open_for"`
	RandomQuestionCount int           `yaml:"random_question_count"`
}

type questionFixture struct {
	Section    string   `yaml:"section"`
	Year       int      `yaml:"year"`
	Department string   `yaml:"department"`
	Prompt     string   `yaml:"prompt"`
	Choices    []string `yaml:"choices"`
	Answer     string   `yaml:"answer"`
	// Repeat generates numbered copies of the prompt, for filling pools.
	Repeat int `yaml:"repeat"`
}

func loadFixtures(path string) (*fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return parseFixtures(data)
}

func parseFixtures(data []byte) (*fixtures, error) {
	var f fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, u := range f.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("users[%d]: id is required", i)
		}
	}
	for i, e := range f.Exams {
		if e.Name == "" || e.Year < 1 || e.OpenFor <= 0 {
			return nil, fmt.Errorf("exams[%d]: name, year and open_for are required", i)
		}
	}
	return &f, nil
}

func (e examFixture) toExam(now time.Time, creator string) *model.Exam {
	start := now.Add(e.StartsIn).UTC().Truncate(time.Second)
	duration := e.DurationMinutes
	if duration <= 0 {
		duration = int(e.OpenFor.Minutes())
	}
	return &model.Exam{
		Name:                e.Name,
		Year:                e.Year,
		Department:          model.NormalizeDepartment(e.Department),
		Section:             model.NormalizeSection(e.Section),
		DurationMinutes:     duration,
		StartTime:           start,
		EndTime:             start.Add(e.OpenFor),
		RandomQuestionCount: e.RandomQuestionCount,
		CreatedBy:           creator,
	}
}

func (q questionFixture) expand(creator string) []model.Question {
	n := max(q.Repeat, 1)
	out := make([]model.Question, 0, n)
	for i := 1; i <= n; i++ {
		prompt := q.Prompt
		if q.Repeat > 1 {
			prompt = fmt.Sprintf("%s (#%d)", strings.TrimSpace(q.Prompt), i)
		}
		out = append(out, model.Question{
			Prompt:     prompt,
			Choices:    q.Choices,
			Answer:     q.Answer,
			Year:       q.Year,
			Department: model.NormalizeDepartment(q.Department),
			Section:    model.NormalizeSection(q.Section),
			CreatedBy:  creator,
		})
	}
	return out
}
