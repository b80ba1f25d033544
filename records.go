package reminisce

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrPatientDataUnavailable marks a fatal record-loading failure. Retrieval
// is meaningless without records, so this is never default-substituted.
var ErrPatientDataUnavailable = errors.New("patient data unavailable")

// PatientProfile is the demographic/biographic record. Immutable once loaded.
type PatientProfile struct {
	PatientID      string   `json:"patient_id"`
	Name           string   `json:"name"`
	Age            int      `json:"age"`
	BirthYear      int      `json:"birth_year"`
	Gender         string   `json:"gender"`
	Career         string   `json:"career"`
	EducationLevel string   `json:"education_level"`
	Hobbies        []string `json:"hobbies"`
	MaritalStatus  string   `json:"marital_status"`
	ChildrenCount  int      `json:"children_count"`
}

// Participant is one (role, name) pair attached to a routine activity.
type Participant struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// Activity is one time-boxed entry of the daily routine. The interval is
// a 24-hour clock pair of zero-padded "HH:MM" strings.
type Activity struct {
	TimeStart    string        `json:"time_start"`
	TimeEnd      string        `json:"time_end"`
	Label        string        `json:"activity"`
	Location     string        `json:"location"`
	Details      string        `json:"details"`
	Participants []Participant `json:"participants"`
}

// DailyRoutine is the per-patient schedule record.
type DailyRoutine struct {
	Activities []Activity `json:"activities"`
}

// MemoryID tolerates both string and numeric ids in source records.
// Anything else decodes to the empty string.
type MemoryID string

func (id *MemoryID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = MemoryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = MemoryID(n.String())
		return nil
	}
	*id = ""
	return nil
}

// Memory is one recollection drawn from a life-story interview.
type Memory struct {
	ID          MemoryID `json:"id,omitempty"`
	Year        int      `json:"year"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Details     string   `json:"details,omitempty"`
	Impact      string   `json:"impact,omitempty"`
	People      []string `json:"people,omitempty"`
}

// Interviewee identifies who gave a life-story interview.
type Interviewee struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Age          int    `json:"age"`
	Background   string `json:"background"`
}

// Interview is one recorded session of the life-story record.
type Interview struct {
	Interviewee       Interviewee `json:"interviewee"`
	Memories          []Memory    `json:"memories"`
	RelationshipStory string      `json:"relationship_story,omitempty"`
	Observations      string      `json:"observations,omitempty"`
	RecentChanges     string      `json:"recent_changes,omitempty"`
}

// LifeStory is the per-patient interview record.
type LifeStory struct {
	Interviews []Interview `json:"interviews"`
}

// PatientRecords bundles the three read-only per-patient records.
type PatientRecords struct {
	PatientID string
	Profile   PatientProfile
	Story     LifeStory
	Routine   DailyRoutine
}

// LoadPatientRecords reads the three per-patient JSON records from the
// conventional tree:
//
//	<dataDir>/Profiles/<id>_profile.json
//	<dataDir>/Life_Stories/<id>_story.json
//	<dataDir>/Daily_Routines/<id>_routine.json
//
// Any missing or malformed file fails the whole load with an error that
// matches ErrPatientDataUnavailable via errors.Is.
func LoadPatientRecords(dataDir, patientID string) (*PatientRecords, error) {
	if patientID == "" {
		return nil, fmt.Errorf("reminisce: %w: empty patient id", ErrPatientDataUnavailable)
	}

	rec := &PatientRecords{PatientID: patientID}

	if err := readRecord(filepath.Join(dataDir, "Profiles", patientID+"_profile.json"), &rec.Profile); err != nil {
		return nil, fmt.Errorf("reminisce: %w: profile for %s: %v", ErrPatientDataUnavailable, patientID, err)
	}
	if err := readRecord(filepath.Join(dataDir, "Life_Stories", patientID+"_story.json"), &rec.Story); err != nil {
		return nil, fmt.Errorf("reminisce: %w: life story for %s: %v", ErrPatientDataUnavailable, patientID, err)
	}
	if err := readRecord(filepath.Join(dataDir, "Daily_Routines", patientID+"_routine.json"), &rec.Routine); err != nil {
		return nil, fmt.Errorf("reminisce: %w: daily routine for %s: %v", ErrPatientDataUnavailable, patientID, err)
	}

	return rec, nil
}

func readRecord(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ActivityAt returns the routine activity whose interval contains t, or nil.
// Bounds are inclusive on both ends and compared as zero-padded "HH:MM"
// strings, which orders the same as numeric time of day. Intervals in the
// source data may overlap; the first match in record order wins.
func (r DailyRoutine) ActivityAt(t time.Time) *Activity {
	hm := t.Format("15:04")
	for i := range r.Activities {
		a := &r.Activities[i]
		if a.TimeStart <= hm && hm <= a.TimeEnd {
			return a
		}
	}
	return nil
}
