// Package grade manages the grades teachers give to students.
package grade

import (
	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/student"
)

const (
	MinValue = 2
	MaxValue = 5
)

type Grade struct {
	ID         string         `json:"id,omitempty"`
	TeacherID  string         `json:"teacherId"`
	ClassID    string         `json:"classId"`
	StudentID  string         `json:"studentId"`
	SubjectID  string         `json:"subjectId"`
	GradeValue int            `json:"gradeValue"`
	Date       core.Timestamp `json:"date"`
}

func Key(g Grade) string { return g.ID }

// Item is a grade with the student it was given to.
type Item struct {
	Student student.Student
	Grade   Grade
}

func itemKey(it Item) string { return it.Grade.ID }

// Less orders items by date, oldest first.
func Less(a, b Item) bool {
	return a.Grade.Date.Before(b.Grade.Date.Time)
}
