package criteria

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ErrUnknownKind is returned for a criteria document with an unsupported type.
var ErrUnknownKind = errors.New("unknown criteria type")

// Parse builds a Criteria from a decoded document such as
// {"type": "total_points", "min_points": 500}.
func Parse(doc map[string]any) (Criteria, error) {
	c, err := parse(doc)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func parse(doc map[string]any) (Criteria, error) {
	kind, _ := doc["type"].(string)
	if kind == "" {
		return nil, errors.New("criteria: missing type")
	}

	switch Kind(kind) {
	case KindTotalPoints:
		n, err := requiredInt(doc, "min_points")
		return TotalPoints{MinPoints: n}, err
	case KindCourseCompletion:
		ids, err := uuidList(doc, "course_ids")
		return CourseCompletion{CourseIDs: ids}, err
	case KindLessonsCompleted, "first_lesson":
		n, err := optionalInt(doc, 1, "required", "min_lessons")
		return LessonsCompleted{Required: n}, err
	case KindPerfectScore:
		n, err := optionalInt(doc, 1, "required")
		return PerfectScore{Required: n}, err
	case KindStudyTime:
		n, err := requiredInt(doc, "min_minutes")
		return StudyTime{MinMinutes: n}, err
	case KindStreak:
		n, err := requiredInt(doc, "min_days", "required_streak")
		return Streak{MinDays: n}, err
	case KindContentViewed:
		n, err := optionalInt(doc, 1, "required")
		return ContentViewed{Required: n}, err
	case KindTasksCompleted:
		n, err := optionalInt(doc, 1, "required")
		return TasksCompleted{Required: n}, err
	case KindCoursesCompleted:
		n, err := optionalInt(doc, 1, "required")
		return CoursesCompleted{Required: n}, err
	case KindProgressPercentage:
		f, err := requiredFloat(doc, "min_percentage")
		if err == nil && (f < 0 || f > 100) {
			err = fmt.Errorf("criteria: min_percentage %v out of range 0..100", f)
		}
		return ProgressPercentage{MinPercentage: f}, err
	case KindPointsEarned:
		n, err := requiredInt(doc, "min_points")
		return PointsEarned{MinPoints: n}, err
	case KindAccountAge:
		n, err := requiredInt(doc, "min_days")
		return AccountAge{MinDays: n}, err
	case KindMastery:
		subject, _ := doc["subject"].(string)
		if subject == "" {
			subject = AnySubject
		}
		f, err := requiredFloat(doc, "mastery_level", "min_level")
		return Mastery{Subject: subject, MinLevel: f}, err
	case KindHelpOthers:
		n, err := requiredInt(doc, "help_count")
		return HelpOthers{MinHelp: n}, err
	case KindCommunityParticipation:
		n, err := requiredInt(doc, "participation_score")
		return CommunityParticipation{MinScore: n}, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// ParseJSON decodes and parses a JSON criteria document.
func ParseJSON(raw []byte) (Criteria, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("criteria: %w", err)
	}
	return Parse(doc)
}

// Document renders c back into its stored form, including the type field.
func Document(c Criteria) map[string]any {
	doc := c.params()
	doc["type"] = string(c.Kind())
	return doc
}

// Spec wraps a Criteria for JSON and database columns.
type Spec struct {
	Criteria
}

func (s Spec) MarshalJSON() ([]byte, error) {
	if s.Criteria == nil {
		return []byte("null"), nil
	}
	return json.Marshal(Document(s.Criteria))
}

func (s *Spec) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		s.Criteria = nil
		return nil
	}
	c, err := ParseJSON(b)
	if err != nil {
		return err
	}
	s.Criteria = c
	return nil
}

func (s Spec) Value() (driver.Value, error) {
	if s.Criteria == nil {
		return nil, errors.New("criteria: empty spec")
	}
	b, err := json.Marshal(Document(s.Criteria))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Spec) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalJSON([]byte(v))
	case []byte:
		return s.UnmarshalJSON(v)
	case nil:
		s.Criteria = nil
		return nil
	}
	return fmt.Errorf("criteria: unsupported column type %T", src)
}

func lookup(doc map[string]any, keys []string) (any, string, bool) {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v, k, true
		}
	}
	return nil, "", false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func requiredFloat(doc map[string]any, keys ...string) (float64, error) {
	v, key, ok := lookup(doc, keys)
	if !ok {
		return 0, fmt.Errorf("criteria: missing %s", keys[0])
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || f < 0 {
		return 0, fmt.Errorf("criteria: %s must be a non-negative number", key)
	}
	return f, nil
}

func requiredInt(doc map[string]any, keys ...string) (int, error) {
	f, err := requiredFloat(doc, keys...)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("criteria: %s must be a whole number", keys[0])
	}
	return int(f), nil
}

func optionalInt(doc map[string]any, def int, keys ...string) (int, error) {
	if _, _, ok := lookup(doc, keys); !ok {
		return def, nil
	}
	return requiredInt(doc, keys...)
}

func uuidList(doc map[string]any, key string) ([]uuid.UUID, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if ss, isStrings := raw.([]string); isStrings {
			items = make([]any, len(ss))
			for i, s := range ss {
				items[i] = s
			}
		} else {
			return nil, fmt.Errorf("criteria: %s must be a list", key)
		}
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("criteria: %s contains invalid id %v: %w", key, item, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
