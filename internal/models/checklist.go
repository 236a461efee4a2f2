package models

import (
	"regexp"
	"strings"
)

var checklistItem = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+\S`)

// Checklist counts markdown checkbox lines found in a task's notes.
type Checklist struct {
	Done  int
	Total int
}

// ParseChecklist scans notes for "- [ ] item" and "- [x] item" lines.
func ParseChecklist(notes string) Checklist {
	var c Checklist
	for _, line := range strings.Split(notes, "\n") {
		m := checklistItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		c.Total++
		if m[1] != " " {
			c.Done++
		}
	}
	return c
}

// Empty reports whether the notes held no checklist.
func (c Checklist) Empty() bool {
	return c.Total == 0
}
