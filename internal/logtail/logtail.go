package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Line is one parsed log entry.
type Line struct {
	Time    string
	Level   string
	Message string
	// Fields holds the remaining structured fields as "key=value" pairs in
	// key order.
	Fields []string
	Raw    string
}

// Read returns at most maxLines entries from the end of the file at path.
// maxLines <= 0 returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]Line, error) {
	raw, err := tail(path, maxLines)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, Parse(r))
	}
	return lines, nil
}

func tail(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var all []string
		for scanner.Scan() {
			all = append(all, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return all, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Parse splits a zap json or console line. Lines in neither shape are kept
// whole as the message.
func Parse(raw string) Line {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		if line, ok := parseJSON(trimmed); ok {
			line.Raw = raw
			return line
		}
	}
	if line, ok := parseConsole(raw); ok {
		return line
	}
	return Line{Message: raw, Raw: raw}
}

func parseJSON(raw string) (Line, bool) {
	var entry map[string]any
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Line{}, false
	}
	line := Line{
		Time:    stringField(entry, "time"),
		Level:   strings.ToUpper(stringField(entry, "level")),
		Message: stringField(entry, "message"),
	}
	delete(entry, "time")
	delete(entry, "level")
	delete(entry, "message")
	delete(entry, "caller")
	delete(entry, "stacktrace")
	line.Fields = pairs(entry)
	return line, true
}

// parseConsole handles zap's console encoding: tab separated time, level,
// optional caller and logger, message, then a json object of fields.
func parseConsole(raw string) (Line, bool) {
	parts := strings.Split(raw, "\t")
	if len(parts) < 3 || !isLevel(parts[1]) {
		return Line{}, false
	}
	line := Line{Time: parts[0], Level: strings.ToUpper(parts[1]), Raw: raw}
	rest := parts[2:]
	if last := rest[len(rest)-1]; len(rest) > 1 && strings.HasPrefix(last, "{") {
		var fields map[string]any
		if err := json.Unmarshal([]byte(last), &fields); err == nil {
			line.Fields = pairs(fields)
			rest = rest[:len(rest)-1]
		}
	}
	line.Message = rest[len(rest)-1]
	return line, true
}

func isLevel(s string) bool {
	switch strings.ToUpper(s) {
	case "DEBUG", "INFO", "WARN", "ERROR", "DPANIC", "PANIC", "FATAL":
		return true
	}
	return false
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func pairs(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return out
}
