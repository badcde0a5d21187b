// Command mailsift triages a mailbox: it fetches recent messages over IMAP,
// classifies them with a Claude model against user-defined categories, and
// applies the resulting star, move, archive and trash actions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

const usage = `mailsift - AI mailbox triage

Usage:
  mailsift <command> [flags]

Commands:
  configure   Interactive setup: IMAP account, API key, model
  process     Fetch, classify and apply actions (supports --dry-run)
  fetch       List candidate messages without classifying
  compare     Classify with two models and show disagreements
  rules       Show the configured categories and their actions
  folders     List mailbox folders on the server
  history     Show recent runs from the local ledger

Run "mailsift <command> -h" for command flags.
`

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logrus.SetLevel(logrus.WarnLevel)
	if os.Getenv("MAILSIFT_DEBUG") != "" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "configure":
		err = runConfigure(ctx, os.Args[2:])
	case "process":
		err = runProcess(ctx, os.Args[2:])
	case "fetch":
		err = runFetch(ctx, os.Args[2:])
	case "compare":
		err = runCompare(ctx, os.Args[2:])
	case "rules":
		err = runRules(os.Args[2:])
	case "folders":
		err = runFolders(ctx, os.Args[2:])
	case "history":
		err = runHistory(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
