package eventlog

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/hivemind-ai/queen/internal/session"
)

// ReadEvents parses every complete line of EVENTS.jsonl. A trailing
// malformed line (partial write) is tolerated and discarded rather than
// failing the read, per §3's durability contract.
func ReadEvents(sessionPath string) ([]Event, error) {
	lines, err := readLines(session.EventsPath(sessionPath))
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(lines))
	for i, line := range lines {
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			if i == len(lines)-1 {
				break // trailing partial line, discard
			}
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// ReadBacklog parses BACKLOG.jsonl with the same trailing-line tolerance.
func ReadBacklog(sessionPath string) ([]BacklogRecord, error) {
	lines, err := readLines(session.BacklogPath(sessionPath))
	if err != nil {
		return nil, err
	}
	out := make([]BacklogRecord, 0, len(lines))
	for i, line := range lines {
		var rec BacklogRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			if i == len(lines)-1 {
				break
			}
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		lines = append(lines, line)
	}
	return lines, nil
}
