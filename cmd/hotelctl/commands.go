package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmerrifield20/hotelledger/pkg/client"
	"github.com/spf13/cobra"
)

const requestTimeout = 15 * time.Second

func dial(opts *cliOptions) (*client.Client, error) {
	return client.New(opts.server, client.WithRetries(2))
}

func newBookCmd(opts *cliOptions) *cobra.Command {
	var req client.BookingRequest
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Queue a booking for the next block",
		Example: `  hotelctl book --name "Asha Rao" --room 101 \
    --check-in 2024-03-01 --check-out 2024-03-04 --amount 4500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			res, err := c.SubmitBooking(ctx, req)
			if err != nil {
				return fmt.Errorf("submit booking: %w", err)
			}
			return render(cmd.OutOrStdout(), opts.format, res, func(p *printer) {
				p.success(fmt.Sprintf("booking for %s queued (%d pending)", res.Transaction.CustomerName, res.Pending))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.CustomerName, "name", "", "customer name")
	f.StringVar(&req.RoomNumber, "room", "", "room number")
	f.StringVar(&req.CheckIn, "check-in", "", "check-in date (YYYY-MM-DD)")
	f.StringVar(&req.CheckOut, "check-out", "", "check-out date (YYYY-MM-DD)")
	f.StringVar(&req.Amount, "amount", "", "booking amount, recorded exactly as written")
	for _, name := range []string{"name", "room", "check-in", "check-out", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newMineCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Seal all pending bookings into a new block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			b, err := c.Mine(ctx)
			if err != nil {
				return fmt.Errorf("mine: %w", err)
			}
			result := map[string]any{"mined": b != nil}
			if b != nil {
				result["block"] = b
			}
			return render(cmd.OutOrStdout(), opts.format, result, func(p *printer) {
				if b == nil {
					p.info("nothing to mine: pending queue is empty")
					return
				}
				p.success(fmt.Sprintf("mined block %d with %d booking(s)", b.Index, b.Data.Len()))
				p.blocks([]client.Block{*b})
			})
		},
	}
}

func newChainCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chain [index]",
		Short: "Show every block, or a single block by index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			var blocks []client.Block
			if len(args) == 1 {
				idx, err := strconv.Atoi(args[0])
				if err != nil || idx < 0 {
					return fmt.Errorf("index must be a non-negative integer, got %q", args[0])
				}
				b, err := c.Block(ctx, idx)
				if err != nil {
					return fmt.Errorf("get block %d: %w", idx, err)
				}
				blocks = []client.Block{*b}
			} else {
				blocks, err = c.Blocks(ctx)
				if err != nil {
					return fmt.Errorf("list blocks: %w", err)
				}
			}
			return render(cmd.OutOrStdout(), opts.format, blocks, func(p *printer) {
				p.blocks(blocks)
			})
		},
	}
}

func newPendingCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List bookings waiting for the next block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			txs, err := c.Pending(ctx)
			if err != nil {
				return fmt.Errorf("list pending: %w", err)
			}
			return render(cmd.OutOrStdout(), opts.format, txs, func(p *printer) {
				if len(txs) == 0 {
					p.info("no pending bookings")
					return
				}
				p.transactions(txs)
			})
		},
	}
}

func newVerifyCmd(opts *cliOptions) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the chain's hashes and links",
		Long: `verify asks the node to walk its chain. With --local the chain is
downloaded and every hash is recomputed here instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			result := &client.VerifyResult{Valid: true}
			if local {
				if err := c.VerifyLocally(ctx); err != nil {
					var ie *client.IntegrityError
					if !errors.As(err, &ie) {
						return fmt.Errorf("verify: %w", err)
					}
					result = &client.VerifyResult{Valid: false, Error: ie.Error(), Index: &ie.Index}
				}
			} else {
				result, err = c.Verify(ctx)
				if err != nil {
					return fmt.Errorf("verify: %w", err)
				}
			}

			if err := render(cmd.OutOrStdout(), opts.format, result, func(p *printer) {
				if result.Valid {
					p.success("chain is valid")
				} else {
					p.failure("chain is compromised: " + result.Error)
				}
			}); err != nil {
				return err
			}
			if !result.Valid {
				return errCompromised
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "recompute hashes client-side instead of trusting the node")
	return cmd
}

var errCompromised = errors.New("ledger integrity check failed")

func newStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarise the node's ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			ov, err := c.Overview(ctx)
			if err != nil {
				return fmt.Errorf("overview: %w", err)
			}
			return render(cmd.OutOrStdout(), opts.format, ov, func(p *printer) {
				p.overview(ov)
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hotelctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hotelctl %s\n", version)
		},
	}
}
