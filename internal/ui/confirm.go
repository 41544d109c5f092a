package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ChooseAction prints an information box followed by a numbered list of
// actions and reads the user's choice from in. It returns the chosen action,
// or "" when there are no actions or the user just pressed Enter.
// Either the number or the action text is accepted.
func ChooseAction(in io.Reader, out io.Writer, title, message string, actions []string) string {
	_, _ = fmt.Fprintln(out, NewInfoResult(title, message).Render())
	if len(actions) == 0 {
		return ""
	}

	for i, action := range actions {
		_, _ = fmt.Fprintf(out, "  %s %s\n", ActionKeyStyle.Render(fmt.Sprintf("[%d]", i+1)), action)
	}
	_, _ = fmt.Fprint(out, PromptStyle.Render("Choose an action, or press Enter to dismiss: "))

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return ""
	}

	return matchAction(strings.TrimSpace(input), actions)
}

func matchAction(input string, actions []string) string {
	if input == "" {
		return ""
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(actions) {
			return actions[n-1]
		}
		return ""
	}
	for _, action := range actions {
		if strings.EqualFold(input, action) {
			return action
		}
	}
	return ""
}
