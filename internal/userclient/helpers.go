package userclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cert-quiz/internal/quiz"
)

var errInvalidAnswer = errors.New("invalid answer")

type answerInput struct {
	indices []int
	skip    bool
	submit  bool
}

// promptAnswer reads one answer line. A blank line skips the question and
// "submit" ends the walk early.
func promptAnswer(reader *bufio.Reader, out io.Writer, question questionItem) (answerInput, error) {
	optionCount := len(question.Choices)
	if optionCount < 1 {
		return answerInput{skip: true}, nil
	}

	maxLetter := byte('A' + optionCount - 1)
	if question.Kind == quiz.KindMulti {
		fmt.Fprintf(out, "Your answers (letters A-%c, comma separated): ", maxLetter)
	} else {
		fmt.Fprintf(out, "Your answer (A-%c): ", maxLetter)
	}

	line, err := reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return answerInput{}, err
	}

	answer := strings.ToUpper(strings.TrimSpace(line))
	switch answer {
	case "":
		return answerInput{skip: true}, nil
	case "SUBMIT":
		return answerInput{submit: true}, nil
	}

	seen := make(map[int]struct{})
	indices := make([]int, 0, optionCount)
	for _, part := range strings.FieldsFunc(answer, func(r rune) bool { return r == ',' || r == ' ' }) {
		if len(part) != 1 || part[0] < 'A' || part[0] > maxLetter {
			return answerInput{}, errInvalidAnswer
		}
		idx := int(part[0] - 'A')
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		return answerInput{}, errInvalidAnswer
	}
	if question.Kind != quiz.KindMulti && len(indices) != 1 {
		return answerInput{}, errInvalidAnswer
	}
	return answerInput{indices: indices}, nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  show")
	fmt.Fprintln(out, "  play")
	fmt.Fprintln(out, "  username <name>")
	fmt.Fprintln(out, "  submit")
	fmt.Fprintln(out, "  result")
	fmt.Fprintln(out, "  restart")
	fmt.Fprintln(out, "  leaderboard [limit]")
	fmt.Fprintln(out, "  history [username] [limit]")
	fmt.Fprintln(out, "  exit")
}

func parsePositiveLimit(args []string, index int, defaultValue int) (int, error) {
	if len(args) <= index {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}

func formatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	remaining := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%02d:%02d", int(remaining.Minutes()), seconds%60)
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func describeClientError(err error, serverURL string) error {
	if errors.Is(err, ErrServiceUnavailable) {
		return fmt.Errorf("quiz service unavailable at %s", serverURL)
	}
	return err
}

func printQuestion(out io.Writer, position, total int, question questionItem) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d [%s]\n%s\n\n", position, total, question.Category, question.Text)
	for _, image := range question.ImageURLs {
		fmt.Fprintf(out, "(image: %s)\n", image)
	}
	selected := make(map[string]struct{}, len(question.Selected))
	for _, choice := range question.Selected {
		selected[choice] = struct{}{}
	}
	for idx, choice := range question.Choices {
		marker := " "
		if _, ok := selected[choice]; ok {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %c. %s\n", marker, 'A'+idx, choice)
	}
	fmt.Fprintln(out)
}

func printReport(out io.Writer, report quiz.Report) {
	fmt.Fprintln(out)
	if report.Forced {
		fmt.Fprintln(out, "Time is up. The attempt was submitted automatically.")
	}
	fmt.Fprintln(out, report.Summary)
	fmt.Fprintln(out, report.Verdict)
	for _, category := range report.Categories {
		fmt.Fprintln(out, category.Line)
	}
}
