package models

import "time"

const (
	PriorityHigh   = "High"
	PriorityNormal = "Normal"
)

type Task struct {
	ID          uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description" gorm:"not null;default:''"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	Priority    string     `json:"priority" gorm:"not null;default:'Normal'"`
	Category    string     `json:"category" gorm:"not null;default:''"`
	DueDate     *string    `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Position    int        `json:"position" gorm:"not null;default:0"`
}

// IsCompleted reports completion from the flag and timestamp pair,
// which move together through every write path.
func (t *Task) IsCompleted() bool {
	return t.Completed && t.CompletedAt != nil
}

// PriorityRank orders High before Normal before anything else.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	default:
		return 3
	}
}
