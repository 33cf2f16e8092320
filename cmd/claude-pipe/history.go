package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/asheshgoplani/claude-pipe/internal/config"
	"github.com/asheshgoplani/claude-pipe/internal/statedb"
)

// History table column widths
const (
	histColID      = 8
	histColWhen    = 16
	histColReason  = 11
	histColTime    = 7
	histColMessage = 60
)

// historyEntry is the JSON shape of one recorded exchange.
type historyEntry struct {
	ID         string    `json:"id"`
	Session    string    `json:"session"`
	Profile    string    `json:"profile,omitempty"`
	Message    string    `json:"message"`
	Response   string    `json:"response"`
	Reason     string    `json:"reason,omitempty"`
	Anchored   bool      `json:"anchored"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

func toEntry(r *statedb.ExchangeRow) historyEntry {
	return historyEntry{
		ID:         r.ID,
		Session:    r.Session,
		Profile:    r.Profile,
		Message:    r.Message,
		Response:   r.Response,
		Reason:     r.Reason,
		Anchored:   r.Anchored,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// messageSource lets fuzzy search rank exchanges by their message.
type messageSource []*statedb.ExchangeRow

func (s messageSource) String(i int) string { return s[i].Message }
func (s messageSource) Len() int            { return len(s) }

func newHistoryCmd(e *env, g *globalFlags) *cobra.Command {
	var (
		limit  int
		search string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "List past exchanges",
		Long: `List past exchanges, newest first.

Examples:
  claude-pipe history                 # Last 20 exchanges
  claude-pipe history --search readme # Fuzzy match on the message
  claude-pipe history show 1a2b3c4d   # Print one stored response`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, done := loadConfig(e, g)
			defer done(&err)

			db, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := selectHistory(db, cfg, search, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(e, entries(rows))
			}
			printHistory(e, rows)
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of exchanges to list (0 for all)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Fuzzy search over messages")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print the response of one exchange (an id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, done := loadConfig(e, g)
			defer done(&err)

			db, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			row, err := db.GetExchange(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(e, toEntry(row))
			}
			if row.Response == "" && row.Error != "" {
				return fmt.Errorf("exchange %s failed: %s", shortID(row.ID), row.Error)
			}
			fmt.Fprintln(e.stdout, row.Response)
			return nil
		},
	}
	cmd.AddCommand(show)
	return cmd
}

func openHistory(cfg *config.Config) (*statedb.StateDB, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	db, err := statedb.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// selectHistory lists rows newest first, or ranked by match quality when
// search is set.
func selectHistory(db *statedb.StateDB, cfg *config.Config, search string, limit int) ([]*statedb.ExchangeRow, error) {
	if search == "" {
		return db.ListExchanges(limit)
	}

	all, err := db.ListExchanges(cfg.HistoryKeep())
	if err != nil {
		return nil, err
	}
	matches := fuzzy.FindFrom(search, messageSource(all))
	out := make([]*statedb.ExchangeRow, 0, len(matches))
	for _, m := range matches {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[m.Index])
	}
	return out, nil
}

func entries(rows []*statedb.ExchangeRow) []historyEntry {
	out := make([]historyEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, toEntry(r))
	}
	return out
}

func writeJSON(e *env, v any) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHistory(e *env, rows []*statedb.ExchangeRow) {
	if len(rows) == 0 {
		fmt.Fprintln(e.stdout, "No exchanges recorded.")
		return
	}

	header := pad("ID", histColID) + "  " +
		pad("WHEN", histColWhen) + "  " +
		pad("REASON", histColReason) + "  " +
		pad("TIME", histColTime) + "  " +
		"MESSAGE"
	if e.stdoutTTY {
		header = headerStyle.Render(header)
	}
	fmt.Fprintln(e.stdout, header)

	for _, r := range rows {
		reason := r.Reason
		if r.Error != "" {
			reason = "error"
		}
		if !r.Anchored && r.Error == "" {
			reason += "*"
		}
		fmt.Fprintln(e.stdout,
			pad(shortID(r.ID), histColID)+"  "+
				pad(r.StartedAt.Local().Format("2006-01-02 15:04"), histColWhen)+"  "+
				pad(reason, histColReason)+"  "+
				pad(formatSeconds(r.Duration), histColTime)+"  "+
				oneLine(r.Message, histColMessage))
	}
}

func shortID(id string) string {
	if len(id) > histColID {
		return id[:histColID]
	}
	return id
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
