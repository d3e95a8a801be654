package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/ashureev/crackd/internal/mentor"
	"github.com/ashureev/crackd/internal/panel"
	"github.com/ashureev/crackd/internal/session"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	*rootOptions
	name    string
	skill   string
	timeout time.Duration
}

func newChatCmd(root *rootOptions) *cobra.Command {
	opts := &chatOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the mentor in your terminal",
		Long: `Start a local mentor session.

Paste a LeetCode URL or describe a problem, then answer the mentor's questions.
Commands:
  /panel  - show the strategy, patterns, tags and related problems
  /cancel - drop the reply being composed
  exit    - end the session`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "your name, used in the greeting (required)")
	cmd.Flags().StringVar(&opts.skill, "skill", string(domain.SkillBeginner), "skill level: Beginner, Intermediate or Advanced")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up on a reply after this long")
	return cmd
}

var errNameRequired = errors.New("--name is required")

func runChat(cmd *cobra.Command, opts *chatOptions) error {
	name := strings.TrimSpace(opts.name)
	if name == "" {
		return errNameRequired
	}
	skill, ok := domain.ParseSkillLevel(opts.skill)
	if !ok {
		return fmt.Errorf("unknown skill level %q", opts.skill)
	}
	catalog, err := mentor.LoadCatalog(opts.catalogPath)
	if err != nil {
		return err
	}

	logger := opts.logger(cmd.ErrOrStderr())
	ctrl := session.NewController(mentor.NewDispatcher(catalog, logger), session.Options{
		UserID:       "local",
		SessionID:    "cli",
		ReplyTimeout: opts.timeout,
		Logger:       logger,
	})
	defer ctrl.Close()

	out := newRenderer(cmd.OutOrStdout())
	ctrl.Greet(domain.Profile{Username: name, SkillLevel: skill})
	out.messages(ctrl.Messages())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		out.prompt()
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "exit", "quit", "/signout":
			out.info("Session ended. Keep practicing! 👋")
			return nil
		case "/panel":
			out.panel(ctrl.Snapshot().Panel)
			continue
		case "/cancel":
			ctrl.Cancel()
			continue
		}

		done, err := ctrl.Submit(cmd.Context(), line)
		if err != nil {
			if errors.Is(err, session.ErrInvalidInput) {
				continue
			}
			out.err(err)
			continue
		}
		<-done
		out.messages(ctrl.Messages())
	}
	return scanner.Err()
}

// renderer prints transcript messages it has not printed yet.
type renderer struct {
	w       io.Writer
	printed int
	you     func(a ...interface{}) string
	mentor  func(a ...interface{}) string
	system  func(a ...interface{}) string
	heading func(a ...interface{}) string
	faint   func(a ...interface{}) string
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{
		w:       w,
		you:     color.New(color.FgGreen, color.Bold).SprintFunc(),
		mentor:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		system:  color.New(color.FgYellow).SprintFunc(),
		heading: color.New(color.FgMagenta, color.Bold).SprintFunc(),
		faint:   color.New(color.Faint).SprintFunc(),
	}
}

func (r *renderer) prompt() {
	fmt.Fprint(r.w, r.you("You: "))
}

func (r *renderer) messages(all []domain.ChatMessage) {
	for _, msg := range all[r.printed:] {
		switch msg.Role {
		case domain.RoleUser:
			// Already on screen as typed.
		case domain.RoleSystem:
			fmt.Fprintln(r.w, r.system("⚠ "+msg.Content))
			fmt.Fprintln(r.w)
		default:
			fmt.Fprintln(r.w, r.mentor("Mentor:"))
			r.content(msg)
			fmt.Fprintln(r.w)
		}
	}
	r.printed = len(all)
}

// content prints code segments dimmed so prose stands out.
func (r *renderer) content(msg domain.ChatMessage) {
	for _, seg := range msg.Segments() {
		if seg.Code {
			fmt.Fprintln(r.w, r.faint(strings.Trim(seg.Text, "\n")))
			continue
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			fmt.Fprintln(r.w, text)
		}
	}
}

func (r *renderer) panel(v panel.Views) {
	fmt.Fprintln(r.w, r.heading(v.Strategy.Title))
	if v.Strategy.Empty() {
		fmt.Fprintln(r.w, r.faint("  "+v.Strategy.Placeholder))
	} else {
		fmt.Fprintln(r.w, "  "+v.Strategy.Text)
	}
	for _, list := range []panel.ListView{v.Patterns, v.Tags, v.Related} {
		fmt.Fprintln(r.w, r.heading(list.Title))
		if list.Empty() {
			fmt.Fprintln(r.w, r.faint("  "+list.Placeholder))
			continue
		}
		for _, item := range list.Items {
			fmt.Fprintln(r.w, "  • "+item)
		}
	}
	fmt.Fprintln(r.w)
}

func (r *renderer) info(s string) {
	fmt.Fprintln(r.w, r.mentor(s))
}

func (r *renderer) err(err error) {
	fmt.Fprintln(r.w, r.system("Error: "+err.Error()))
}
