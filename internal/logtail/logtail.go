package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
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
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
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

// Attr is one key=value pair of a record.
type Attr struct {
	Key   string
	Value string
}

// Entry is a parsed slog text record.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	Attrs     []Attr
	Raw       string
}

// Parse splits a slog text-handler line into its fields. Lines that are not
// key=value records come back with only Raw and Message set.
func Parse(line string) Entry {
	entry := Entry{Raw: line}
	pairs, ok := splitPairs(line)
	if !ok {
		entry.Message = line
		return entry
	}
	for _, p := range pairs {
		switch p.Key {
		case "time":
			entry.Time = p.Value
		case "level":
			entry.Level = strings.ToUpper(p.Value)
		case "msg":
			entry.Message = p.Value
		case "component":
			entry.Component = p.Value
		default:
			entry.Attrs = append(entry.Attrs, p)
		}
	}
	if entry.Level == "" && entry.Message == "" {
		return Entry{Raw: line, Message: line}
	}
	return entry
}

// ShortTime trims the date and sub-second part of an RFC 3339 timestamp.
func (e Entry) ShortTime() string {
	t := e.Time
	if i := strings.IndexByte(t, 'T'); i >= 0 {
		t = t[i+1:]
	}
	if i := strings.IndexAny(t, ".+-Z"); i >= 0 {
		t = t[:i]
	}
	return t
}

// Filter keeps entries at or above minLevel whose text contains query
// (case-insensitive). Unparsed lines are kept when minLevel is empty.
func Filter(entries []Entry, minLevel, query string) []Entry {
	min := levelRank(minLevel)
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if min > 0 && levelRank(e.Level) < min {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Raw), query) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ParseLines parses every line.
func ParseLines(lines []string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, Parse(line))
	}
	return entries
}

func levelRank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return 1
	case "INFO":
		return 2
	case "WARN":
		return 3
	case "ERROR":
		return 4
	default:
		return 0
	}
}

func splitPairs(line string) ([]Attr, bool) {
	var pairs []Attr
	rest := strings.TrimSpace(line)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 || strings.ContainsAny(rest[:eq], " \t\"") {
			return nil, false
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := closingQuote(rest)
			if end < 0 {
				return nil, false
			}
			unquoted, err := strconv.Unquote(rest[:end+1])
			if err != nil {
				return nil, false
			}
			value = unquoted
			rest = rest[end+1:]
		} else {
			sp := strings.IndexByte(rest, ' ')
			if sp < 0 {
				sp = len(rest)
			}
			value = rest[:sp]
			rest = rest[sp:]
		}
		pairs = append(pairs, Attr{Key: key, Value: value})
		rest = strings.TrimLeft(rest, " ")
	}
	return pairs, len(pairs) > 0
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
