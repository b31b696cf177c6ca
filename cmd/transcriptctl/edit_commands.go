package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/transcript-console/internal/editor"
)

func newEditCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newEditCommand(ctx),
		newRenameSpeakerCommand(ctx),
	}
}

// withSession opens an editing session, runs fn and saves whatever fn changed.
// The session never autosaves; the single explicit save is the only write.
func (c *commandContext) withSession(cmdCtx context.Context, transcriptID string, fn func(*editor.Session) error) error {
	backend, err := c.ensureBackend()
	if err != nil {
		return err
	}
	session, err := editor.Open(cmdCtx, cmdCtx, backend.Transcripts, transcriptID, editor.Options{
		AutosaveInterval: 24 * time.Hour,
		Logger:           c.log().Named("editor"),
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := fn(session); err != nil {
		return err
	}
	return session.Save(cmdCtx)
}

func parseEdits(args []string) ([][2]string, error) {
	edits := make([][2]string, 0, len(args))
	for _, arg := range args {
		segmentID, text, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(segmentID) == "" {
			return nil, fmt.Errorf("edit %q must look like <segment>=<text>", arg)
		}
		edits = append(edits, [2]string{strings.TrimSpace(segmentID), text})
	}
	return edits, nil
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <segment>=<text>...",
		Short: "Replace segment texts and save them in one request",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edits, err := parseEdits(args[1:])
			if err != nil {
				return err
			}
			var changed int
			err = ctx.withSession(cmd.Context(), args[0], func(s *editor.Session) error {
				for _, e := range edits {
					if err := s.Input(e[0], e[1]); err != nil {
						return err
					}
				}
				changed = len(s.Snapshot().Dirty)
				return nil
			})
			if err != nil {
				return err
			}
			if changed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes made")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d segment(s)\n", changed)
			return nil
		},
	}
}

func newRenameSpeakerCommand(ctx *commandContext) *cobra.Command {
	var segmentID string
	cmd := &cobra.Command{
		Use:   "rename-speaker <id> <old> <new>",
		Short: "Rename a speaker across a transcript, or in one segment with --segment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldName, newName := args[1], args[2]
			var renamed int
			err := ctx.withSession(cmd.Context(), args[0], func(s *editor.Session) error {
				if segmentID != "" {
					ok, err := s.RenameSegmentSpeaker(segmentID, oldName, newName)
					if ok {
						renamed = 1
					}
					return err
				}
				ids, err := s.RenameSpeaker(oldName, newName)
				renamed = len(ids)
				return err
			})
			if err != nil {
				return err
			}
			if renamed == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No segments spoken by %q\n", oldName)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q in %d segment(s)\n", oldName, newName, renamed)
			return nil
		},
	}
	cmd.Flags().StringVar(&segmentID, "segment", "", "Only rename the speaker of this segment")
	return cmd
}
