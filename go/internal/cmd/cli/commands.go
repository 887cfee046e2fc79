package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mcdev12/reactionduel/go/internal/channel"
	"github.com/mcdev12/reactionduel/go/internal/duel/match"
	"github.com/mcdev12/reactionduel/go/internal/models"
	"github.com/mcdev12/reactionduel/go/internal/stats"
)

var (
	player1Name string
	player2Name string
	statsPlayer string
	watchRoom   string
)

func init() {
	playCmd.Flags().StringVar(&player1Name, "p1", "", "Name of player 1 (clicks with 'a')")
	playCmd.Flags().StringVar(&player2Name, "p2", "", "Name of player 2 (clicks with 'l')")
	_ = playCmd.MarkFlagRequired("p1")
	_ = playCmd.MarkFlagRequired("p2")

	statsCmd.Flags().StringVar(&statsPlayer, "player", "", "Player to aggregate")
	_ = statsCmd.MarkFlagRequired("player")

	watchCmd.Flags().StringVar(&watchRoom, "room", "", "Room code to follow")
	_ = watchCmd.MarkFlagRequired("room")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a best-of-3 duel in this terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		p1, p2, err := models.ValidatePlayerNames(player1Name, player2Name)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, release, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()

		ctrl := match.New(clockwork.NewRealClock(), cfg.Timing.MatchConfig(), match.WithHistory(store))
		defer ctrl.Dispose()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: press a + Enter. %s: press l + Enter. Wait for GO!\n", p1, p2)
		return runPlay(ctx, ctrl, cmd.InOrStdin(), out, p1, p2)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a player's record from the match history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, release, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer release()

		summary := stats.NewApp(store).PlayerStats(cmd.Context(), strings.TrimSpace(statsPlayer))
		return printStats(cmd.OutOrStdout(), summary)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored matches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, release, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer release()

		return printHistory(cmd.OutOrStdout(), stats.NewApp(store).History(cmd.Context()))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live events of a room over NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		nc, err := channel.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Close()

		ch := channel.NewNATS(nc, watchRoom)
		defer ch.Disconnect()

		out := cmd.OutOrStdout()
		for _, event := range []string{
			channel.EventRoundStart,
			channel.EventClick,
			channel.EventRoundResult,
			channel.EventMatchComplete,
		} {
			ch.On(event, func(m channel.Message) {
				printMessage(out, m)
			})
		}

		fmt.Fprintf(out, "Watching room %s on %s\n", watchRoom, cfg.NATS.URL)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		return nil
	},
}

func printStats(w io.Writer, s stats.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Player\t%s\n", s.Player)
	fmt.Fprintf(tw, "Games\t%d\n", s.TotalGames)
	fmt.Fprintf(tw, "Wins\t%d\n", s.Wins)
	fmt.Fprintf(tw, "Losses\t%d\n", s.Losses)
	fmt.Fprintf(tw, "Win rate\t%d%%\n", s.WinRatePercent)
	if s.FastestTimeMs != nil {
		fmt.Fprintf(tw, "Fastest average\t%dms\n", *s.FastestTimeMs)
	} else {
		fmt.Fprintf(tw, "Fastest average\t-\n")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.RecentGames) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nRecent games:")
	return printHistory(w, s.RecentGames)
}

func printHistory(w io.Writer, records []models.MatchRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No matches played yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tPLAYERS\tWINNER\tROUNDS\tAVG")
	for _, r := range records {
		avg := "-"
		if r.AverageResponseTimeMs != nil {
			avg = fmt.Sprintf("%dms", *r.AverageResponseTimeMs)
		}
		winner := r.Winner
		if winner == "" {
			winner = "draw"
		}
		fmt.Fprintf(tw, "%s\t%s vs %s\t%s\t%d\t%s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Player1, r.Player2, winner, r.RoundsPlayed, avg)
	}
	return tw.Flush()
}

func printMessage(w io.Writer, m channel.Message) {
	var payload map[string]any
	if err := m.Decode(&payload); err != nil {
		fmt.Fprintf(w, "%s: undecodable payload: %v\n", m.Event, err)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", m.Event, payload)
		return
	}
	fmt.Fprintf(w, "%s %s\n", m.Event, data)
}
