package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cert-quiz/internal/quiz"
)

const (
	maxAttempts = 3
	sessionID   = "local"
)

type command int

const (
	commandAnswer command = iota
	commandSkip
	commandSubmit
	commandRestart
	commandQuit
)

// Run plays attempts against the service until the user quits or input ends.
// The timer is polled on every prompt, so an attempt that runs out of time is
// graded before the next question is shown.
func Run(ctx context.Context, service *quiz.Service, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	for {
		view, err := service.Current(ctx, sessionID)
		if err != nil {
			return err
		}

		if !view.Submitted {
			fmt.Fprintf(out, "\nPL-300 practice exam: %d questions, %s on the clock.\n", len(view.Inputs), formatDuration(view.Remaining))
			fmt.Fprintln(out, "Answer with letters (A or A,C). Commands: submit, restart, quit. Empty line skips.")

			next, err := playAttempt(ctx, service, reader, out, view)
			if err != nil {
				return err
			}
			switch next {
			case commandQuit:
				return nil
			case commandRestart:
				if _, err := service.Restart(ctx, sessionID); err != nil {
					return err
				}
				continue
			}

			view, err = service.Current(ctx, sessionID)
			if err != nil {
				return err
			}
			if !view.Submitted {
				if view, err = service.Submit(ctx, sessionID); err != nil && !errors.Is(err, quiz.ErrAttemptSubmitted) {
					return err
				}
			}
		}

		if view.Report != nil {
			printReport(out, *view.Report)
		}

		fmt.Fprint(out, "\nType restart for a new attempt, anything else quits: ")
		line, err := reader.ReadString('\n')
		if strings.EqualFold(strings.TrimSpace(line), "restart") {
			if _, err := service.Restart(ctx, sessionID); err != nil {
				return err
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

func playAttempt(ctx context.Context, service *quiz.Service, reader *bufio.Reader, out io.Writer, view quiz.View) (command, error) {
	for _, input := range view.Inputs {
		current, err := service.Current(ctx, sessionID)
		if err != nil {
			return commandQuit, err
		}
		if current.Submitted {
			fmt.Fprintln(out, "\nTime is up. Your answers were submitted.")
			return commandSubmit, nil
		}

		printQuestion(out, input, len(view.Inputs), current.Remaining)

		cmd, options := getAnswer(reader, out, input)
		switch cmd {
		case commandQuit, commandRestart, commandSubmit:
			return cmd, nil
		case commandSkip:
			continue
		}

		if err := record(ctx, service, input, options); err != nil {
			if errors.Is(err, quiz.ErrAttemptSubmitted) {
				fmt.Fprintln(out, "\nTime is up. Your answers were submitted.")
				return commandSubmit, nil
			}
			return commandQuit, err
		}
	}
	return commandSubmit, nil
}

func record(ctx context.Context, service *quiz.Service, input quiz.Input, options []string) error {
	if input.Kind == quiz.KindSingle {
		_, err := service.Dispatch(ctx, sessionID, quiz.SelectOption{Index: input.Index, Option: options[0]})
		return err
	}
	for _, option := range options {
		if _, err := service.Dispatch(ctx, sessionID, quiz.ToggleOption{Index: input.Index, Option: option, On: true}); err != nil {
			return err
		}
	}
	return nil
}

func printQuestion(out io.Writer, input quiz.Input, total int, remaining time.Duration) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d [%s] (%s left)\n", input.Index+1, total, input.Question.Category, formatDuration(remaining))
	fmt.Fprintf(out, "%s\n", input.Question.Text)
	for _, url := range input.Question.ImageURLs {
		fmt.Fprintf(out, "  image: %s\n", url)
	}
	if input.Kind == quiz.KindMulti {
		fmt.Fprintf(out, "(select %d)\n", len(input.Question.CorrectAnswers))
	}
	fmt.Fprintln(out)
	for idx, choice := range input.Question.Choices {
		fmt.Fprintf(out, "%c. %s\n", 'A'+idx, choice)
	}
	fmt.Fprint(out, "> ")
}

func getAnswer(reader *bufio.Reader, out io.Writer, input quiz.Input) (command, []string) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return commandQuit, nil
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return commandSkip, nil
		case "submit":
			return commandSubmit, nil
		case "restart":
			return commandRestart, nil
		case "quit", "exit":
			return commandQuit, nil
		}

		options, ok := parseLetters(line, input.Question.Choices)
		if ok && (input.Kind == quiz.KindMulti || len(options) == 1) {
			return commandAnswer, options
		}

		if attempt < maxAttempts {
			maxLetter := rune('A' + len(input.Question.Choices) - 1)
			if input.Kind == quiz.KindSingle {
				fmt.Fprintf(out, "Invalid input. Please enter one letter A-%c.\n> ", maxLetter)
			} else {
				fmt.Fprintf(out, "Invalid input. Please enter letters A-%c separated by commas.\n> ", maxLetter)
			}
		}
	}
	return commandSkip, nil
}

// parseLetters maps "a, c" to the matching choices. Repeated letters count once.
func parseLetters(line string, choices []string) ([]string, bool) {
	seen := make(map[int]struct{})
	var options []string
	for _, part := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' }) {
		part = strings.ToUpper(part)
		if len(part) != 1 {
			return nil, false
		}
		idx := int(part[0] - 'A')
		if idx < 0 || idx >= len(choices) {
			return nil, false
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		options = append(options, choices[idx])
	}
	return options, len(options) > 0
}

func printReport(out io.Writer, report quiz.Report) {
	fmt.Fprintln(out)
	if report.Forced {
		fmt.Fprintln(out, "Time expired; unanswered questions were marked incorrect.")
	}
	fmt.Fprintln(out, report.Summary)
	fmt.Fprintln(out, report.Verdict)
	fmt.Fprintln(out)
	for _, category := range report.Categories {
		fmt.Fprintln(out, category.Line)
	}

	fmt.Fprintln(out)
	for idx, outcome := range report.Outcomes {
		mark := "Wrong"
		if outcome.Correct {
			mark = "Correct"
		}
		selected := strings.Join(outcome.Selected, ", ")
		if selected == "" {
			selected = "(none)"
		}
		fmt.Fprintf(out, "Q%d %s. You chose: %s. Correct answer: %s\n",
			idx+1, mark, selected, strings.Join(outcome.Question.CorrectAnswers, ", "))
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
