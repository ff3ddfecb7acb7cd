package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quizly/internal/api"
	"quizly/internal/config"
	"quizly/internal/domain"
	"quizly/internal/review"
	"quizly/internal/session"
)

// NewPlayCmd builds the CLI subcommand that runs a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		topic   string
		source  string
		model   string
		apiBase string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, *configPath, topic, source, model, apiBase)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "quiz topic (category or AI subject)")
	cmd.Flags().StringVar(&source, "source", "", "question source: curated or generated")
	cmd.Flags().StringVar(&model, "model", "", "model override for generated questions")
	cmd.Flags().StringVar(&apiBase, "api-base", "", "quiz API base URL")
	return cmd
}

func runPlay(cmd *cobra.Command, configPath, topic, source, model, apiBase string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if topic == "" {
		topic = cfg.Client.Topic
	}
	if topic == "" {
		topic = "general"
	}
	if source == "" {
		source = cfg.Client.Source
	}
	if source == "" {
		source = string(domain.SourceCurated)
	}
	if model == "" {
		model = cfg.Client.Model
	}
	if apiBase == "" {
		apiBase = cfg.Client.APIBase
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	client := api.NewClient(apiBase, api.WithLogger(log))
	ctrl := session.New(client, session.Options{
		FeedbackDuration: config.TTLDuration(cfg.Client.FeedbackDuration, 2*time.Second),
		QuestionLimit:    cfg.Client.QuestionLimit,
	})
	defer ctrl.Close()

	states, cancel := ctrl.Subscribe()
	defer cancel()

	in := bufio.NewScanner(os.Stdin)
	out := cmd.OutOrStdout()

	ctrl.Start(cmd.Context(), topic, domain.Source(source), model)

	promptedIndex := -1
	for state := range states {
		switch state.Phase {
		case session.PhaseLoading:
			fmt.Fprintln(out, "Loading questions...")
			promptedIndex = -1

		case session.PhaseError:
			fmt.Fprintln(out, state.ErrorMessage)
			fmt.Fprint(out, "Press r to retry, anything else to quit: ")
			if !in.Scan() || strings.TrimSpace(strings.ToLower(in.Text())) != "r" {
				return nil
			}
			ctrl.Retry()

		case session.PhaseInProgress:
			if state.FeedbackVisible || state.Index == promptedIndex {
				continue
			}
			promptedIndex = state.Index
			question, ok := state.Current()
			if !ok {
				continue
			}
			fmt.Fprintf(out, "\nQuestion %d of %d: %s\n", state.Index+1, len(state.Questions), question.Text)
			for _, opt := range question.Options {
				fmt.Fprintf(out, "  %s) %s\n", opt.ID, opt.Text)
			}
			if !promptAnswer(in, out, ctrl, question) {
				ctrl.Restart()
				return nil
			}

		case session.PhaseSubmitting:
			fmt.Fprintln(out, "\nSubmitting your answers...")

		case session.PhaseComplete:
			fmt.Fprintln(out)
			review.Render(out, *state.Result, state.Questions)
			return nil
		}
	}
	return nil
}

// promptAnswer reads a valid option, submits it, and prints the feedback.
// Returns false when the user quits.
func promptAnswer(in *bufio.Scanner, out io.Writer, ctrl *session.Controller, question domain.Question) bool {
	for {
		fmt.Fprint(out, "Your answer (or q to quit): ")
		if !in.Scan() {
			return false
		}
		answer := strings.TrimSpace(strings.ToLower(in.Text()))
		if answer == "q" {
			return false
		}
		if !hasOption(question, answer) {
			fmt.Fprintln(out, "Pick one of the listed options.")
			continue
		}
		ctrl.Select(answer)
		correct, ok := ctrl.Submit()
		if !ok {
			return true
		}
		if correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Incorrect. The correct answer was %s.\n", question.CorrectAnswer)
		}
		return true
	}
}

func hasOption(q domain.Question, optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
