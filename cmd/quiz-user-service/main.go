package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cert-quiz/internal/userclient"
)

func main() {
	username := flag.String("username", "", "username recorded with graded attempts")
	sessionID := flag.String("session", "", "resume an existing session id")
	server := flag.String("server", "http://127.0.0.1:8080", "quiz service base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP timeout")
	flag.Parse()

	err := userclient.Run(context.Background(), os.Stdin, os.Stdout, userclient.Config{
		Username:    *username,
		SessionID:   *sessionID,
		ServerURL:   *server,
		HTTPTimeout: *timeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
