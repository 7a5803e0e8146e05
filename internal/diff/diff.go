// Package diff renders line oriented differences between two iterations of
// generated content.
package diff

import "strings"

// NoChanges is returned by Lines when the walk emits nothing.
const NoChanges = "[No changes]"

// Lines compares newContent against oldContent line by line. A line present
// only in the new content is rendered as "+ line", a changed line as
// "- old" followed by "+ new". Unchanged lines are omitted.
//
// Lines of oldContent past the end of newContent are never visited, so
// trailing deletions are not reported.
func Lines(oldContent, newContent string) string {
	var result []string
	walk(oldContent, newContent, func(op byte, line string) {
		result = append(result, string(op)+" "+line)
	})

	if len(result) == 0 {
		return NoChanges
	}

	return strings.Join(result, "\n")
}

// Stats counts the additions and removals Lines would render.
func Stats(oldContent, newContent string) (added, removed int) {
	walk(oldContent, newContent, func(op byte, _ string) {
		if op == '+' {
			added++
		} else {
			removed++
		}
	})

	return added, removed
}

func walk(oldContent, newContent string, emit func(op byte, line string)) {
	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")

	for i, newLine := range newLines {
		if i >= len(oldLines) {
			emit('+', newLine)
			continue
		}

		if oldLine := oldLines[i]; newLine != oldLine {
			emit('-', oldLine)
			emit('+', newLine)
		}
	}
}
