// Package criteria defines the closed set of achievement criteria and the
// predicates that decide whether a learner satisfies them.
//
// Every criterion measures a current value against a required value; a
// criterion is met when the measurement applies and current >= required.
package criteria

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind is the discriminator stored in the "type" field of a criteria document.
type Kind string

const (
	KindTotalPoints            Kind = "total_points"
	KindCourseCompletion       Kind = "course_completion"
	KindLessonsCompleted       Kind = "lessons_completed"
	KindPerfectScore           Kind = "perfect_score"
	KindStudyTime              Kind = "study_time"
	KindStreak                 Kind = "streak"
	KindContentViewed          Kind = "content_viewed"
	KindTasksCompleted         Kind = "tasks_completed"
	KindCoursesCompleted       Kind = "courses_completed"
	KindProgressPercentage     Kind = "progress_percentage"
	KindPointsEarned           Kind = "points_earned"
	KindAccountAge             Kind = "account_age"
	KindMastery                Kind = "mastery"
	KindHelpOthers             Kind = "help_others"
	KindCommunityParticipation Kind = "community_participation"
)

// ProgressContext describes the course progress an evaluation was triggered by.
type ProgressContext struct {
	CourseID     uuid.UUID
	Percentage   float64
	PointsEarned int
	IsCompleted  bool
}

// MasteryContext is a subject mastery measurement supplied by the caller.
type MasteryContext struct {
	Subject string
	Level   float64
}

// SocialContext is community activity supplied by the caller.
type SocialContext struct {
	HelpGiven          int
	ParticipationScore int
}

// State is a fresh snapshot of everything criteria can be evaluated against.
type State struct {
	Points           int
	StudyMinutes     int
	AccountAgeDays   int
	LessonsCompleted int
	CoursesCompleted int
	ContentViewed    int
	TasksCompleted   int
	PerfectScores    int
	CurrentStreak    int
	CompletedCourses map[uuid.UUID]bool

	Progress *ProgressContext
	Mastery  *MasteryContext
	Social   *SocialContext
}

// Criteria is implemented only by the variants in this package.
type Criteria interface {
	Kind() Kind
	// Describe is a short human description of the goal.
	Describe() string
	// measure returns the current and required values, and false when the
	// state carries nothing this criterion can be measured against.
	measure(s State) (current, required float64, ok bool)
	params() map[string]any
}

// Met evaluates c against s. Thresholds are inclusive.
func Met(c Criteria, s State) bool {
	if c == nil {
		return false
	}
	current, required, ok := c.measure(s)
	return ok && current >= required
}

// Measure exposes the raw measurement used by Met.
func Measure(c Criteria, s State) (current, required float64, ok bool) {
	if c == nil {
		return 0, 0, false
	}
	return c.measure(s)
}

type TotalPoints struct{ MinPoints int }

func (TotalPoints) Kind() Kind         { return KindTotalPoints }
func (c TotalPoints) Describe() string { return fmt.Sprintf("Earn %d points", c.MinPoints) }
func (c TotalPoints) measure(s State) (float64, float64, bool) {
	return float64(s.Points), float64(c.MinPoints), true
}
func (c TotalPoints) params() map[string]any { return map[string]any{"min_points": c.MinPoints} }

// CourseCompletion requires every listed course. With no courses listed it
// is satisfied by the completed course in the evaluation's progress context.
type CourseCompletion struct{ CourseIDs []uuid.UUID }

func (CourseCompletion) Kind() Kind { return KindCourseCompletion }
func (c CourseCompletion) Describe() string {
	if len(c.CourseIDs) == 0 {
		return "Complete a course"
	}
	return fmt.Sprintf("Complete %d specific courses", len(c.CourseIDs))
}
func (c CourseCompletion) measure(s State) (float64, float64, bool) {
	if len(c.CourseIDs) == 0 {
		if s.Progress == nil {
			return 0, 0, false
		}
		if s.Progress.IsCompleted {
			return 1, 1, true
		}
		return 0, 1, true
	}
	done := 0
	for _, id := range c.CourseIDs {
		if s.CompletedCourses[id] {
			done++
		}
	}
	return float64(done), float64(len(c.CourseIDs)), true
}
func (c CourseCompletion) params() map[string]any {
	ids := make([]string, len(c.CourseIDs))
	for i, id := range c.CourseIDs {
		ids[i] = id.String()
	}
	return map[string]any{"course_ids": ids}
}

type LessonsCompleted struct{ Required int }

func (LessonsCompleted) Kind() Kind { return KindLessonsCompleted }
func (c LessonsCompleted) Describe() string {
	if c.Required == 1 {
		return "Complete your first lesson"
	}
	return fmt.Sprintf("Complete %d lessons", c.Required)
}
func (c LessonsCompleted) measure(s State) (float64, float64, bool) {
	return float64(s.LessonsCompleted), float64(c.Required), true
}
func (c LessonsCompleted) params() map[string]any { return map[string]any{"required": c.Required} }

type PerfectScore struct{ Required int }

func (PerfectScore) Kind() Kind { return KindPerfectScore }
func (c PerfectScore) Describe() string {
	return fmt.Sprintf("Score 100%% on %d items", c.Required)
}
func (c PerfectScore) measure(s State) (float64, float64, bool) {
	return float64(s.PerfectScores), float64(c.Required), true
}
func (c PerfectScore) params() map[string]any { return map[string]any{"required": c.Required} }

type StudyTime struct{ MinMinutes int }

func (StudyTime) Kind() Kind { return KindStudyTime }
func (c StudyTime) Describe() string {
	return fmt.Sprintf("Study for %d minutes", c.MinMinutes)
}
func (c StudyTime) measure(s State) (float64, float64, bool) {
	return float64(s.StudyMinutes), float64(c.MinMinutes), true
}
func (c StudyTime) params() map[string]any { return map[string]any{"min_minutes": c.MinMinutes} }

// Streak compares against the learner's current consecutive-day streak.
type Streak struct{ MinDays int }

func (Streak) Kind() Kind { return KindStreak }
func (c Streak) Describe() string {
	return fmt.Sprintf("Learn %d days in a row", c.MinDays)
}
func (c Streak) measure(s State) (float64, float64, bool) {
	return float64(s.CurrentStreak), float64(c.MinDays), true
}
func (c Streak) params() map[string]any { return map[string]any{"min_days": c.MinDays} }

type ContentViewed struct{ Required int }

func (ContentViewed) Kind() Kind { return KindContentViewed }
func (c ContentViewed) Describe() string {
	return fmt.Sprintf("Open %d content items", c.Required)
}
func (c ContentViewed) measure(s State) (float64, float64, bool) {
	return float64(s.ContentViewed), float64(c.Required), true
}
func (c ContentViewed) params() map[string]any { return map[string]any{"required": c.Required} }

type TasksCompleted struct{ Required int }

func (TasksCompleted) Kind() Kind { return KindTasksCompleted }
func (c TasksCompleted) Describe() string {
	return fmt.Sprintf("Complete %d tasks", c.Required)
}
func (c TasksCompleted) measure(s State) (float64, float64, bool) {
	return float64(s.TasksCompleted), float64(c.Required), true
}
func (c TasksCompleted) params() map[string]any { return map[string]any{"required": c.Required} }

type CoursesCompleted struct{ Required int }

func (CoursesCompleted) Kind() Kind { return KindCoursesCompleted }
func (c CoursesCompleted) Describe() string {
	return fmt.Sprintf("Complete %d courses", c.Required)
}
func (c CoursesCompleted) measure(s State) (float64, float64, bool) {
	return float64(s.CoursesCompleted), float64(c.Required), true
}
func (c CoursesCompleted) params() map[string]any { return map[string]any{"required": c.Required} }

type ProgressPercentage struct{ MinPercentage float64 }

func (ProgressPercentage) Kind() Kind { return KindProgressPercentage }
func (c ProgressPercentage) Describe() string {
	return fmt.Sprintf("Reach %.0f%% of a course", c.MinPercentage)
}
func (c ProgressPercentage) measure(s State) (float64, float64, bool) {
	if s.Progress == nil {
		return 0, 0, false
	}
	return s.Progress.Percentage, c.MinPercentage, true
}
func (c ProgressPercentage) params() map[string]any {
	return map[string]any{"min_percentage": c.MinPercentage}
}

// PointsEarned compares against the points earned inside one course.
type PointsEarned struct{ MinPoints int }

func (PointsEarned) Kind() Kind { return KindPointsEarned }
func (c PointsEarned) Describe() string {
	return fmt.Sprintf("Earn %d points in a course", c.MinPoints)
}
func (c PointsEarned) measure(s State) (float64, float64, bool) {
	if s.Progress == nil {
		return 0, 0, false
	}
	return float64(s.Progress.PointsEarned), float64(c.MinPoints), true
}
func (c PointsEarned) params() map[string]any { return map[string]any{"min_points": c.MinPoints} }

type AccountAge struct{ MinDays int }

func (AccountAge) Kind() Kind { return KindAccountAge }
func (c AccountAge) Describe() string {
	return fmt.Sprintf("Be a member for %d days", c.MinDays)
}
func (c AccountAge) measure(s State) (float64, float64, bool) {
	return float64(s.AccountAgeDays), float64(c.MinDays), true
}
func (c AccountAge) params() map[string]any { return map[string]any{"min_days": c.MinDays} }

// AnySubject matches every subject in a Mastery criterion.
const AnySubject = "any"

type Mastery struct {
	Subject  string
	MinLevel float64
}

func (Mastery) Kind() Kind { return KindMastery }
func (c Mastery) Describe() string {
	return fmt.Sprintf("Reach mastery %.0f in %s", c.MinLevel, c.Subject)
}
func (c Mastery) measure(s State) (float64, float64, bool) {
	if s.Mastery == nil {
		return 0, 0, false
	}
	if c.Subject != AnySubject && c.Subject != s.Mastery.Subject {
		return 0, 0, false
	}
	return s.Mastery.Level, c.MinLevel, true
}
func (c Mastery) params() map[string]any {
	return map[string]any{"subject": c.Subject, "mastery_level": c.MinLevel}
}

type HelpOthers struct{ MinHelp int }

func (HelpOthers) Kind() Kind { return KindHelpOthers }
func (c HelpOthers) Describe() string {
	return fmt.Sprintf("Help other learners %d times", c.MinHelp)
}
func (c HelpOthers) measure(s State) (float64, float64, bool) {
	if s.Social == nil {
		return 0, 0, false
	}
	return float64(s.Social.HelpGiven), float64(c.MinHelp), true
}
func (c HelpOthers) params() map[string]any { return map[string]any{"help_count": c.MinHelp} }

type CommunityParticipation struct{ MinScore int }

func (CommunityParticipation) Kind() Kind { return KindCommunityParticipation }
func (c CommunityParticipation) Describe() string {
	return fmt.Sprintf("Reach a participation score of %d", c.MinScore)
}
func (c CommunityParticipation) measure(s State) (float64, float64, bool) {
	if s.Social == nil {
		return 0, 0, false
	}
	return float64(s.Social.ParticipationScore), float64(c.MinScore), true
}
func (c CommunityParticipation) params() map[string]any {
	return map[string]any{"participation_score": c.MinScore}
}
