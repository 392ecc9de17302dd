package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	"github.com/gumnutdev/quick-notes/pkg/client"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/utils"
)

const defaultServer = "http://localhost:8080"

type app struct {
	server  string
	jsonOut bool
	repo    *client.Client
	ws      *client.Workspace
	newID   func() string
	clock   utils.Clock
}

func newRootCmd() *cobra.Command {
	a := &app{newID: uuid.NewString, clock: utils.SystemClock}

	root := &cobra.Command{
		Use:           "notesctl",
		Short:         "Manage quick-notes from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.repo = client.New(a.server)
			a.ws = client.NewWorkspace(a.repo, client.WithClock(a.clock), client.WithIDGenerator(a.newID))
		},
	}
	server := os.Getenv("NOTES_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&a.server, "server", server, "notes API base URL (env NOTES_SERVER)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		a.listCmd(),
		a.showCmd(),
		a.newCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.linkCmd(),
		a.unlinkCmd(),
		a.connectCmd(),
		a.candidatesCmd(),
		a.graphCmd(),
	)
	return root
}

func (a *app) listCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, most recently modified first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, err := a.ws.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), notes)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTATUS\tLINKS\tMODIFIED")
			for _, n := range notes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					n.ID, n.Title, n.Category, n.Status, len(n.LinkedNotes), utils.FormatTime(n.ModifiedDate))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only notes whose title, content or category contains this text")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printNote(cmd.OutOrStdout(), n)
		},
	}
}

// noteFlags are the editable fields shared by new and edit.
type noteFlags struct {
	title, content, category, priority, status string
	mood                                       int
	links                                      []string
}

func (f *noteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "note title")
	cmd.Flags().StringVar(&f.content, "content", "", "note body")
	cmd.Flags().StringVar(&f.category, "category", "", "free-form category")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&f.status, "status", "", "draft, in-progress or complete")
	cmd.Flags().IntVar(&f.mood, "mood", 0, "mood from 1 to 10")
	cmd.Flags().StringSliceVar(&f.links, "link", nil, "ids of linked notes (replaces the current links)")
}

func (f *noteFlags) apply(cmd *cobra.Command, n *entities.Note) {
	flags := cmd.Flags()
	if flags.Changed("title") {
		n.Title = f.title
	}
	if flags.Changed("content") {
		n.Content = f.content
	}
	if flags.Changed("category") {
		n.Category = f.category
	}
	if flags.Changed("priority") {
		n.Priority = entities.Priority(f.priority)
	}
	if flags.Changed("status") {
		n.Status = entities.Status(f.status)
	}
	if flags.Changed("mood") {
		n.Mood = f.mood
	}
	if flags.Changed("link") {
		n.LinkedNotes = append([]string{}, f.links...)
	}
}

func (a *app) newCmd() *cobra.Command {
	var f noteFlags
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := entities.NewNote(a.newID(), a.clock())
			f.apply(cmd, &n)
			saved, err := a.ws.Save(cmd.Context(), n)
			if err != nil {
				return err
			}
			return a.printNote(cmd.OutOrStdout(), saved)
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var f noteFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f.apply(cmd, &n)
			saved, err := a.ws.Save(cmd.Context(), n.Touch(a.clock()))
			if err != nil {
				return err
			}
			return a.printNote(cmd.OutOrStdout(), saved)
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note and every link to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ws.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <id> <target>",
		Short: "Add a link from a note to another note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.ws.Link(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printNote(cmd.OutOrStdout(), n)
		},
	}
}

func (a *app) unlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <id> <target>",
		Short: "Remove a link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.ws.Unlink(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printNote(cmd.OutOrStdout(), n)
		},
	}
}

func (a *app) connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <source> <target>",
		Short: "Draw a new edge in the mind map",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.ws.Connect(cmd.Context(), args[0], args[1]); err != nil {
				if pkgerrors.IsConflict(err) {
					return fmt.Errorf("%s already links to %s", args[0], args[1])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func (a *app) candidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <id>",
		Short: "List notes that can still be linked from a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cands, err := a.ws.Candidates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), cands)
			}
			for _, c := range cands {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Title)
			}
			return nil
		},
	}
}

func (a *app) graphCmd() *cobra.Command {
	var active string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the mind map: node positions and edges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.ws.Select(active)
			g, err := a.ws.Graph(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), g)
			}
			out := cmd.OutOrStdout()
			for _, n := range g.Nodes {
				marker := " "
				if n.Active {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s (%g,%g) %s\n", marker, n.ID, n.Position.X, n.Position.Y, n.Note.Title)
			}
			for _, e := range g.Edges {
				fmt.Fprintf(out, "  %s -> %s\n", e.Source, e.Target)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&active, "active", "", "id of the note to highlight")
	return cmd
}

func (a *app) printNote(w io.Writer, n entities.Note) error {
	if a.jsonOut {
		return writeJSON(w, n)
	}
	fmt.Fprintf(w, "id:        %s\n", n.ID)
	fmt.Fprintf(w, "title:     %s\n", n.Title)
	fmt.Fprintf(w, "category:  %s\n", n.Category)
	fmt.Fprintf(w, "priority:  %s\n", n.Priority)
	fmt.Fprintf(w, "status:    %s\n", n.Status)
	fmt.Fprintf(w, "mood:      %d\n", n.Mood)
	fmt.Fprintf(w, "created:   %s\n", utils.FormatTime(n.CreatedDate))
	fmt.Fprintf(w, "modified:  %s\n", utils.FormatTime(n.ModifiedDate))
	fmt.Fprintf(w, "links:     %s\n", strings.Join(n.LinkedNotes, ", "))
	if n.Content != "" {
		fmt.Fprintf(w, "\n%s\n", n.Content)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
