package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"blitz-quiz-service/internal/client"
	"blitz-quiz-service/internal/protocol"
	"github.com/spf13/cobra"
)

// NewPlayCmd builds the CLI subcommand for a terminal participant. All quiz
// logic lives in the client package; this is presentation only.
func NewPlayCmd(port *string) *cobra.Command {
	var host string
	var name string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), host+":"+*port, name)
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "server host")
	cmd.Flags().StringVar(&name, "name", "", "participant name (prompted if empty)")
	return cmd
}

func runPlay(ctx context.Context, addr, name string) error {
	stdin := bufio.NewScanner(os.Stdin)

	if name == "" {
		fmt.Print("Enter your name: ")
		if !stdin.Scan() {
			return nil
		}
		name = strings.TrimSpace(stdin.Text())
	}
	if name == "" {
		return fmt.Errorf("a name is required to play")
	}

	c := client.New(addr)
	if err := c.Connect(ctx); err != nil {
		fmt.Println("Failed to connect to server")
		return err
	}
	defer c.Close()

	if err := c.SendName(name); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(runCtx)
	}()

	// Answers are read on their own goroutine so countdown events keep
	// flowing while the participant thinks.
	var current *protocol.QuestionPayload
	choices := make(chan string)
	go func() {
		defer close(choices)
		for stdin.Scan() {
			line := strings.TrimSpace(stdin.Text())
			if line == "" {
				continue
			}
			select {
			case choices <- line:
			case <-runCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return <-runErr
			}
			current = renderEvent(ev, current)
			if ev.Kind == client.EventFinal {
				return <-runErr
			}
		case line, ok := <-choices:
			if !ok {
				// stdin closed: end the quiz voluntarily and wait for the
				// final score.
				choices = nil
				if err := c.End(); err != nil {
					return err
				}
				continue
			}
			if line == "end" {
				if err := c.End(); err != nil {
					return err
				}
				continue
			}
			answer := resolveChoice(current, line)
			if answer == "" {
				fmt.Println("Pick an option number or type 'end'.")
				continue
			}
			if err := c.Answer(answer); err == client.ErrWindowExpired {
				fmt.Println("Too late, the window has expired.")
			} else if err != nil {
				return err
			}
		}
	}
}

func renderEvent(ev client.Event, current *protocol.QuestionPayload) *protocol.QuestionPayload {
	switch ev.Kind {
	case client.EventWelcome:
		fmt.Println(ev.Text)
	case client.EventQuestion:
		fmt.Printf("\n%s\n", ev.Question.Question)
		for i, opt := range ev.Question.Options {
			fmt.Printf("  %d) %s\n", i+1, opt)
		}
		fmt.Print("> ")
		return ev.Question
	case client.EventResult:
		fmt.Printf("%s  (score %d/%d)\n", ev.Text, ev.Score, ev.Answered)
	case client.EventTick:
		fmt.Printf("Time remaining: %ds\n", ev.Remaining)
	case client.EventExpired:
		fmt.Println(ev.Text)
	case client.EventFinal:
		fmt.Println(ev.Text)
	}
	return current
}

func resolveChoice(current *protocol.QuestionPayload, line string) string {
	if current == nil {
		return ""
	}
	i, err := strconv.Atoi(line)
	if err != nil || i < 1 || i > len(current.Options) {
		return ""
	}
	return current.Options[i-1]
}
