package reminisce

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clock(t *testing.T, hm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", hm)
	if err != nil {
		t.Fatalf("parse clock %q: %v", hm, err)
	}
	return time.Date(2024, 6, 3, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}

func TestLoadPatientRecords(t *testing.T) {
	rec, err := LoadPatientRecords("testdata", "P001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if rec.Profile.Name != "Arthur Bennett" {
		t.Errorf("expected profile name Arthur Bennett, got %q", rec.Profile.Name)
	}
	if rec.Profile.Career != "Teacher" {
		t.Errorf("expected career Teacher, got %q", rec.Profile.Career)
	}
	if len(rec.Routine.Activities) != 4 {
		t.Errorf("expected 4 routine activities, got %d", len(rec.Routine.Activities))
	}
	if len(rec.Story.Interviews) != 1 {
		t.Fatalf("expected 1 interview, got %d", len(rec.Story.Interviews))
	}
	if got := len(rec.Story.Interviews[0].Memories); got != 3 {
		t.Errorf("expected 3 memories, got %d", got)
	}
	if rec.Story.Interviews[0].Interviewee.Relationship != "daughter" {
		t.Errorf("unexpected interviewee: %+v", rec.Story.Interviews[0].Interviewee)
	}
}

func TestLoadPatientRecordsMissingPatient(t *testing.T) {
	_, err := LoadPatientRecords("testdata", "P999")
	if err == nil {
		t.Fatal("expected error for unknown patient")
	}
	if !errors.Is(err, ErrPatientDataUnavailable) {
		t.Errorf("expected ErrPatientDataUnavailable, got %v", err)
	}
}

func TestLoadPatientRecordsEmptyID(t *testing.T) {
	_, err := LoadPatientRecords("testdata", "")
	if !errors.Is(err, ErrPatientDataUnavailable) {
		t.Errorf("expected ErrPatientDataUnavailable, got %v", err)
	}
}

func TestLoadPatientRecordsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"Profiles", "Life_Stories", "Daily_Routines"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile := func(path, content string) {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(filepath.Join(dir, "Profiles", "P002_profile.json"), `{"name": `)
	writeFile(filepath.Join(dir, "Life_Stories", "P002_story.json"), `{"interviews": []}`)
	writeFile(filepath.Join(dir, "Daily_Routines", "P002_routine.json"), `{"activities": []}`)

	_, err := LoadPatientRecords(dir, "P002")
	if !errors.Is(err, ErrPatientDataUnavailable) {
		t.Errorf("malformed profile should fail the load, got %v", err)
	}
}

func TestActivityAtBoundaries(t *testing.T) {
	routine := DailyRoutine{Activities: []Activity{
		{TimeStart: "06:00", TimeEnd: "07:00", Label: "Breakfast"},
	}}

	cases := []struct {
		hm   string
		want bool
	}{
		{"05:59", false},
		{"06:00", true}, // inclusive start
		{"06:30", true},
		{"07:00", true}, // inclusive end
		{"07:01", false},
	}
	for _, c := range cases {
		got := routine.ActivityAt(clock(t, c.hm))
		if (got != nil) != c.want {
			t.Errorf("at %s: expected match=%v, got %v", c.hm, c.want, got)
		}
	}
}

func TestActivityAtFirstMatchOnOverlap(t *testing.T) {
	routine := DailyRoutine{Activities: []Activity{
		{TimeStart: "09:00", TimeEnd: "10:00", Label: "Gardening"},
		{TimeStart: "09:30", TimeEnd: "10:30", Label: "Physio"},
	}}

	got := routine.ActivityAt(clock(t, "09:45"))
	if got == nil || got.Label != "Gardening" {
		t.Errorf("the first matching interval should win, got %+v", got)
	}
}

func TestActivityAtNoMatch(t *testing.T) {
	rec, err := LoadPatientRecords("testdata", "P001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := rec.Routine.ActivityAt(clock(t, "03:00")); got != nil {
		t.Errorf("expected no activity at 03:00, got %+v", got)
	}
	if got := rec.Routine.ActivityAt(clock(t, "06:15")); got == nil || got.Label != "Morning Exercise" {
		t.Errorf("expected Morning Exercise at 06:15, got %+v", got)
	}
}

func TestMemoryIDUnmarshalShapes(t *testing.T) {
	var m Memory
	if err := json.Unmarshal([]byte(`{"id": "m-1", "title": "A"}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.ID != "m-1" {
		t.Errorf("string id: got %q", m.ID)
	}

	if err := json.Unmarshal([]byte(`{"id": 42, "title": "B"}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.ID != "42" {
		t.Errorf("numeric id should decode to its decimal text, got %q", m.ID)
	}

	if err := json.Unmarshal([]byte(`{"id": {"x": 1}, "title": "C"}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.ID != "" {
		t.Errorf("unrecognized id shape should decode to empty, got %q", m.ID)
	}
}
