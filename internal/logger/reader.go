package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
)

// ReadEvents loads every event from an audit log. A missing file yields no
// events; malformed lines are skipped.
func ReadEvents(path string) ([]AssessmentEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []AssessmentEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event AssessmentEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

// Filter returns the events whose severity matches, case-insensitively.
// An empty severity keeps everything.
func Filter(events []AssessmentEvent, severity string) []AssessmentEvent {
	if severity == "" {
		return events
	}
	var out []AssessmentEvent
	for _, e := range events {
		if strings.EqualFold(e.Severity, severity) {
			out = append(out, e)
		}
	}
	return out
}

// Summary counts events per severity.
type Summary struct {
	Total    int
	Red      int
	Yellow   int
	Green    int
	DryRuns  int
	Approved int
	First    string
	Last     string
}

// Summarize tallies events.
func Summarize(events []AssessmentEvent) Summary {
	s := Summary{Total: len(events)}
	for _, e := range events {
		switch strings.ToUpper(e.Severity) {
		case "RED":
			s.Red++
		case "YELLOW":
			s.Yellow++
		case "GREEN":
			s.Green++
		}
		if e.DryRun {
			s.DryRuns++
		}
		if e.UserAction == "approve_once" {
			s.Approved++
		}
	}
	if len(events) > 0 {
		s.First = events[0].Timestamp
		s.Last = events[len(events)-1].Timestamp
	}
	return s
}
