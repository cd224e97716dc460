package service

import (
	"time"

	"github.com/stemsi/proctor-backend/internal/model"
)

// Classify places now relative to the inclusive window [start, end].
func Classify(start, end, now time.Time) model.ExamWindow {
	switch {
	case now.Before(start):
		return model.ExamWindowUpcoming
	case now.After(end):
		return model.ExamWindowEnded
	default:
		return model.ExamWindowLive
	}
}

// Listing decorates e with its classification at now.
func Listing(e model.Exam, now time.Time) model.ExamListing {
	w := Classify(e.StartTime, e.EndTime, now)
	return model.ExamListing{
		Exam:       e,
		Status:     w,
		IsLive:     w == model.ExamWindowLive,
		IsUpcoming: w == model.ExamWindowUpcoming,
	}
}

// IsEligible reports whether student may see exam. Year 1 students only see
// general exams, whatever department they declared.
func IsEligible(exam *model.Exam, student *model.User) bool {
	if exam.Year != student.Year {
		return false
	}
	examDept := model.NormalizeDepartment(exam.Department)
	if student.Year == 1 {
		return examDept == model.DepartmentGeneral
	}
	return examDept == model.DepartmentGeneral || examDept == model.NormalizeDepartment(student.Department)
}
