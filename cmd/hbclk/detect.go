package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gen2brain/hifiberry"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List sound cards and the HiFiBerry boards their kernel drivers claim",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cards, err := hifiberry.EnumerateCards()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(cards) == 0 {
			fmt.Fprintln(out, "No sound cards found.")

			return nil
		}

		for _, card := range cards {
			fmt.Fprint(out, card)
		}

		kind, err := hifiberry.ParseBoardKind(opts.Board)
		if err != nil {
			return err
		}

		if card, ok := hifiberry.FindBoardCard(cards, kind); ok {
			fmt.Fprintf(out, "\n%s is driven by card %d, hbclk needs --force to touch it.\n", kind, card.ID)
		}

		return nil
	},
}
