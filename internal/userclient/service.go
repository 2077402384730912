package userclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cert-quiz/internal/quiz"
)

const (
	defaultServer            = "http://127.0.0.1:8080"
	defaultLeaderboardLimit  = 10
	defaultHistoryLimit      = 10
	defaultHTTPTimeout       = 5 * time.Second
	defaultMaxInvalidAnswers = 3
)

type Config struct {
	Username          string
	SessionID         string
	ServerURL         string
	LeaderboardLimit  int
	HistoryLimit      int
	MaxInvalidAnswers int
	HTTPTimeout       time.Duration
}

type repl struct {
	client            *HTTPClient
	reader            *bufio.Reader
	out               io.Writer
	serverURL         string
	username          string
	leaderboardLimit  int
	historyLimit      int
	maxInvalidAnswers int
}

func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultServer
	}

	leaderboardLimit := cfg.LeaderboardLimit
	if leaderboardLimit <= 0 {
		leaderboardLimit = defaultLeaderboardLimit
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	maxInvalidAnswers := cfg.MaxInvalidAnswers
	if maxInvalidAnswers <= 0 {
		maxInvalidAnswers = defaultMaxInvalidAnswers
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	client := NewHTTPClient(serverURL, &http.Client{Timeout: timeout})
	client.UseSession(cfg.SessionID)

	r := &repl{
		client:            client,
		reader:            bufio.NewReader(in),
		out:               out,
		serverURL:         serverURL,
		username:          strings.TrimSpace(cfg.Username),
		leaderboardLimit:  leaderboardLimit,
		historyLimit:      historyLimit,
		maxInvalidAnswers: maxInvalidAnswers,
	}

	fmt.Fprintf(out, "quiz-user-service\nserver=%s\n", serverURL)
	if r.username != "" {
		if _, err := client.SetUsername(ctx, r.username); err != nil {
			fmt.Fprintf(out, "error: %v\n", describeClientError(err, serverURL))
		} else {
			fmt.Fprintf(out, "username=%s\n", strings.ToLower(r.username))
		}
	}
	fmt.Fprintln(out)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := r.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		var cmdErr error
		switch command {
		case "help":
			printHelp(out)
		case "exit", "quit":
			return nil
		case "show":
			cmdErr = r.show(ctx)
		case "play":
			cmdErr = r.play(ctx)
		case "username":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: username <name>")
				continue
			}
			cmdErr = r.setUsername(ctx, args[1])
		case "submit":
			cmdErr = r.submit(ctx)
		case "result":
			cmdErr = r.result(ctx)
		case "restart":
			cmdErr = r.restart(ctx)
		case "leaderboard":
			limit, parseErr := parsePositiveLimit(args, 1, r.leaderboardLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid leaderboard limit: %v\n", parseErr)
				continue
			}
			cmdErr = r.leaderboard(ctx, limit)
		case "history":
			username := r.username
			if len(args) > 1 {
				username = args[1]
			}
			if username == "" {
				fmt.Fprintln(out, "usage: history <username> [limit]")
				continue
			}
			limit, parseErr := parsePositiveLimit(args, 2, r.historyLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid history limit: %v\n", parseErr)
				continue
			}
			cmdErr = r.history(ctx, username, limit)
		default:
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
		}
		if cmdErr != nil {
			if errors.Is(cmdErr, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", describeClientError(cmdErr, r.serverURL))
		}
	}
}

func (r *repl) show(ctx context.Context) error {
	attempt, err := r.client.Attempt(ctx)
	if err != nil {
		return err
	}
	r.printStatus(attempt)
	if attempt.Report != nil {
		printReport(r.out, *attempt.Report)
		return nil
	}
	for idx, question := range attempt.Questions {
		printQuestion(r.out, idx+1, len(attempt.Questions), question)
	}
	return nil
}

// play walks the running attempt question by question. The server owns the
// clock, so every answer may come back with the attempt already graded.
func (r *repl) play(ctx context.Context) error {
	attempt, err := r.client.Attempt(ctx)
	if err != nil {
		return err
	}
	if attempt.Report != nil {
		fmt.Fprintln(r.out, "This attempt is already submitted. Use 'restart' for a new one.")
		printReport(r.out, *attempt.Report)
		return nil
	}

	total := len(attempt.Questions)
	for position := 0; position < total; position++ {
		question := attempt.Questions[position]
		fmt.Fprintf(r.out, "\nTime left: %s\n", formatRemaining(attempt.RemainingSeconds))
		printQuestion(r.out, position+1, total, question)

		input, err := r.readAnswer(question)
		if err != nil {
			return err
		}
		if input.submit {
			break
		}
		if input.skip {
			continue
		}

		attempt, err = r.record(ctx, question, input.indices)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
				return r.result(ctx)
			}
			return err
		}
		if attempt.Report != nil {
			printReport(r.out, *attempt.Report)
			return nil
		}
	}

	submitNow, err := promptYesNo(r.reader, r.out, "Submit this attempt now? (yes/no): ")
	if err != nil {
		return err
	}
	if !submitNow {
		fmt.Fprintln(r.out, "Answers saved. Use 'submit' when ready.")
		return nil
	}
	return r.submit(ctx)
}

func (r *repl) readAnswer(question questionItem) (answerInput, error) {
	invalidCount := 0
	for {
		input, err := promptAnswer(r.reader, r.out, question)
		if err == nil {
			return input, nil
		}
		if !errors.Is(err, errInvalidAnswer) {
			return answerInput{}, err
		}
		invalidCount++
		if invalidCount >= r.maxInvalidAnswers {
			fmt.Fprintln(r.out, "Skipping question after multiple invalid responses.")
			return answerInput{skip: true}, nil
		}
		fmt.Fprintf(r.out, "Invalid input. Attempts remaining: %d\n", r.maxInvalidAnswers-invalidCount)
	}
}

// record sends a radio pick as one select and a multi pick as the toggles
// that move the stored selection to the wanted set.
func (r *repl) record(ctx context.Context, question questionItem, indices []int) (attemptResponse, error) {
	if question.Kind != quiz.KindMulti {
		return r.client.Select(ctx, question.Index, question.Choices[indices[0]])
	}

	wanted := make(map[string]struct{}, len(indices))
	for _, idx := range indices {
		wanted[question.Choices[idx]] = struct{}{}
	}
	current := make(map[string]struct{}, len(question.Selected))
	for _, choice := range question.Selected {
		current[choice] = struct{}{}
	}

	var (
		attempt attemptResponse
		changed bool
		err     error
	)
	for _, choice := range question.Choices {
		_, want := wanted[choice]
		_, have := current[choice]
		if want == have {
			continue
		}
		attempt, err = r.client.Toggle(ctx, question.Index, choice, want)
		if err != nil {
			return attemptResponse{}, err
		}
		changed = true
		if attempt.Report != nil {
			return attempt, nil
		}
	}
	if !changed {
		return r.client.Attempt(ctx)
	}
	return attempt, nil
}

func (r *repl) setUsername(ctx context.Context, username string) error {
	attempt, err := r.client.SetUsername(ctx, username)
	if err != nil {
		return err
	}
	r.username = attempt.Username
	fmt.Fprintf(r.out, "username=%s\n", attempt.Username)
	return nil
}

func (r *repl) submit(ctx context.Context) error {
	attempt, err := r.client.Submit(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			fmt.Fprintln(r.out, "This attempt was already submitted.")
			return r.result(ctx)
		}
		return err
	}
	if attempt.Report != nil {
		printReport(r.out, *attempt.Report)
	}
	return nil
}

func (r *repl) result(ctx context.Context) error {
	report, err := r.client.Result(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			fmt.Fprintln(r.out, "The attempt is still running.")
			return nil
		}
		return err
	}
	printReport(r.out, report)
	return nil
}

func (r *repl) restart(ctx context.Context) error {
	attempt, err := r.client.Restart(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "New attempt %s with %d questions.\n", attempt.AttemptID, len(attempt.Questions))
	return nil
}

func (r *repl) leaderboard(ctx context.Context, limit int) error {
	entries, err := r.client.Leaderboard(ctx, limit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No leaderboard entries yet.")
		return nil
	}

	fmt.Fprintln(r.out, "Leaderboard:")
	for idx, entry := range entries {
		fmt.Fprintf(r.out, "%d. %s best=%s%% attempts=%d last=%s\n",
			idx+1,
			entry.Username,
			formatScore(entry.Percentage),
			entry.Attempts,
			entry.LastAttempt.Format(time.RFC3339),
		)
	}
	return nil
}

func (r *repl) history(ctx context.Context, username string, limit int) error {
	payload, err := r.client.History(ctx, username, limit)
	if err != nil {
		return err
	}

	if len(payload.Attempts) == 0 {
		fmt.Fprintf(r.out, "No attempts recorded for %s.\n", payload.Username)
		return nil
	}

	fmt.Fprintf(r.out, "History for %s:\n", payload.Username)
	for idx, entry := range payload.Attempts {
		status := "failed"
		if entry.Passed {
			status = "passed"
		}
		if entry.Forced {
			status += " (time up)"
		}
		fmt.Fprintf(r.out, "%d. %d/%d %s%% %s at %s\n",
			idx+1,
			entry.Correct,
			entry.Total,
			formatScore(entry.Percentage),
			status,
			entry.SubmittedAt,
		)
	}
	return nil
}

func (r *repl) printStatus(attempt attemptResponse) {
	fmt.Fprintf(r.out, "attempt=%s session=%s\n", attempt.AttemptID, attempt.SessionID)
	if attempt.Username != "" {
		fmt.Fprintf(r.out, "username=%s\n", attempt.Username)
	}
	fmt.Fprintf(r.out, "timer=%s remaining=%s\n", attempt.Timer, formatRemaining(attempt.RemainingSeconds))
}
