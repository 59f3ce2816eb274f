package transport

import (
	"regexp"
	"strings"
)

// Prompt handling shared by the interactive SSH and Telnet drivers. Network
// CLIs signal command completion by re-printing their prompt, so drivers read
// until the accumulated output ends in a prompt line.

var promptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^<[^>]+>$`),          // <FW-HX>
	regexp.MustCompile(`^\[[^\]]+\]$`),       // [H3C]
	regexp.MustCompile(`^[a-zA-Z0-9_.-]+>$`), // Router>
	regexp.MustCompile(`^[a-zA-Z0-9_.-]+#$`), // Router#
	regexp.MustCompile(`^[a-zA-Z0-9_.-]+\$$`),
}

// isPromptLine reports whether a line looks like a device CLI prompt.
func isPromptLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	for _, pattern := range promptPatterns {
		if pattern.MatchString(trimmed) {
			return true
		}
	}

	// Prompts with extra decoration still end in a sentinel character and
	// stay short; long lines ending in '>' are usually data.
	if len(trimmed) < 100 {
		switch trimmed[len(trimmed)-1] {
		case '>', '#', ']', '$':
			return true
		}
	}
	return false
}

// lastLine returns the final non-empty line of accumulated output.
func lastLine(data string) string {
	lines := strings.Split(data, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// extractOutput strips the echoed command and the trailing prompt from raw
// session output. The second return reports whether a prompt terminated the
// output (i.e. the command completed).
func extractOutput(data, prompt, command string) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	if len(lines) == 0 {
		return "", false
	}

	start := 0
	if first := strings.TrimSpace(lines[0]); command != "" &&
		(first == command || strings.Contains(first, command)) {
		start = 1
	}

	body := lines[start:]
	if len(body) == 0 {
		return "", false
	}

	last := strings.TrimSpace(body[len(body)-1])
	promptSeen := last == prompt ||
		(prompt != "" && strings.HasPrefix(last, prompt)) ||
		(isPromptLine(last) && len(last) < 50)
	if promptSeen {
		body = body[:len(body)-1]
	}

	return strings.TrimRight(strings.Join(body, "\n"), "\n"), promptSeen
}
