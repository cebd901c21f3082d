package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	statusadapter "github.com/bnema/stars-relay/internal/adapters/render/status"
	"github.com/bnema/stars-relay/internal/domain"
	"github.com/spf13/cobra"
)

func newStateCmd(flags *rootFlags) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or repair persisted buyer state",
	}

	stateCmd.AddCommand(newStateListCmd(flags), newStateResetCmd(flags))

	return stateCmd
}

func newStateListCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	var waitingOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every known buyer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			states, err := app.store.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("load buyer state: %w", err)
			}

			return writeStatesOutput(cmd, app, states, waitingOnly, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of the rendered view")
	cmd.Flags().BoolVar(&waitingOnly, "waiting", false, "only buyers awaiting a recipient")

	return cmd
}

func newStateResetCmd(flags *rootFlags) *cobra.Command {
	var buyer string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear a buyer's waiting flag and pending order",
		Long:  "reset abandons an in-flight order for one buyer. The processed event count is kept, so old messages are not replayed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := domain.BuyerID(buyer)
			if err := id.Validate(); err != nil {
				return err
			}

			app, err := wireApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.store.SetWaiting(cmd.Context(), id, false); err != nil {
				return fmt.Errorf("clear waiting flag: %w", err)
			}
			if err := app.store.SetPendingOrder(cmd.Context(), id, domain.PendingOrder{}); err != nil {
				return fmt.Errorf("clear pending order: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&buyer, "buyer", "", "buyer id to reset")
	_ = cmd.MarkFlagRequired("buyer")

	return cmd
}

func writeStatesOutput(cmd *cobra.Command, app *app, states []domain.BuyerState, waitingOnly, asJSON bool) error {
	if asJSON {
		if waitingOnly {
			states = filterWaiting(states)
		}
		if states == nil {
			states = []domain.BuyerState{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}

	if app.statusRenderer == nil {
		return errors.New("no status renderer configured")
	}

	rendered, err := app.statusRenderer(states, statusadapter.RenderOptions{WaitingOnly: waitingOnly})
	if err != nil {
		return fmt.Errorf("render state: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func filterWaiting(states []domain.BuyerState) []domain.BuyerState {
	filtered := make([]domain.BuyerState, 0, len(states))
	for _, state := range states {
		if state.Waiting {
			filtered = append(filtered, state)
		}
	}
	return filtered
}
