package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/library"
	"github.com/codebuildervaibhav/transcript-console/internal/storage"
)

const dateLayout = "2006-01-02"

func newTranscriptCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newListCommand(ctx),
		newShowCommand(ctx),
		newRenameCommand(ctx),
		newDeleteCommand(ctx),
	}
}

// withLibrary loads the transcript list and flushes pending renames afterwards.
func (c *commandContext) withLibrary(cmdCtx context.Context, fn func(*library.Library) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	backend, err := c.ensureBackend()
	if err != nil {
		return err
	}
	lib := library.New(cmdCtx, backend.Transcripts, cfg.RenameDebounce(), c.log().Named("library"))
	defer lib.Close()
	if err := lib.Load(cmdCtx); err != nil {
		return err
	}
	return fn(lib)
}

func parseDay(flag, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", flag, err)
	}
	return t, nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		page     int
		pageSize int
		from, to string
		query    string
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transcripts, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDay, err := parseDay("from", from)
			if err != nil {
				return err
			}
			toDay, err := parseDay("to", to)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				pageSize = library.PageSize(cfg.Library.ViewportHeight, cfg.Library.RowHeight)
			}
			if q := strings.TrimSpace(query); q != "" {
				if err := ctx.recordSearch(cmd.Context(), q); err != nil {
					ctx.log().Debug("failed to record search", zap.Error(err))
				}
			}

			return ctx.withLibrary(cmd.Context(), func(lib *library.Library) error {
				items := library.FilterByDate(lib.Items(), fromDay, toDay)
				items = library.FilterByName(items, query)
				result := library.Paginate(items, page, pageSize)
				if jsonOut {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if result.Total == 0 {
					fmt.Fprintln(out, "No transcripts")
					return nil
				}
				rows := make([][]string, 0, len(result.Items))
				for _, tr := range result.Items {
					rows = append(rows, []string{
						tr.ID,
						tr.Name,
						tr.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				writeRows(out, []string{"ID", "Name", "Created"}, rows, nil)
				if isTerminalWriter(out) {
					fmt.Fprintf(out, "Page %d of %d (%d transcripts)\n", result.Page, result.Pages, result.Total)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Rows per page (defaults to the configured viewport)")
	cmd.Flags().StringVar(&from, "from", "", "Only transcripts created on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Only transcripts created on or before this day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only transcripts whose name contains this text")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut, segments bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			tr, err := backend.Transcripts.GetTranscript(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, tr)
			}
			out := cmd.OutOrStdout()
			if segments {
				rows := make([][]string, 0, len(tr.Segments))
				for _, seg := range tr.Segments {
					rows = append(rows, []string{
						seg.ID,
						strconv.FormatFloat(seg.Start, 'f', 2, 64),
						strconv.FormatFloat(seg.End, 'f', 2, 64),
						seg.Speaker,
						seg.Text,
					})
				}
				writeRows(out, []string{"Segment", "Start", "End", "Speaker", "Text"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignRight})
				return nil
			}
			fmt.Fprintf(out, "%s (%s)\n\n", tr.Name, tr.CreatedAt.Local().Format("2006-01-02 15:04"))
			fmt.Fprint(out, storage.FormatTranscript(tr))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&segments, "segments", false, "List segments with their ids")
	return cmd
}

func newRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a transcript",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			return ctx.withLibrary(cmd.Context(), func(lib *library.Library) error {
				if err := lib.RenameNow(cmd.Context(), args[0], name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], strings.TrimSpace(name))
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete one or more transcripts",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(cmd.Context(), func(lib *library.Library) error {
				_, err := lib.DeleteMany(cmd.Context(), args)
				var partial *library.PartialFailureError
				if errors.As(err, &partial) {
					deleted := len(args) - len(partial.Failed)
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d transcripts\n", deleted, partial.Total)
					return fmt.Errorf("failed to delete %s: %w", strings.Join(partial.Failed, ", "), partial.Err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d transcripts\n", len(args))
				return nil
			})
		},
	}
}
