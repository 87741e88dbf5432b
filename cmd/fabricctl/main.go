// fabricctl is the terminal client for Fabric Console.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/fabric-console/internal/console"
	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/health"
	"github.com/ashureev/fabric-console/internal/tui"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:5001"

type options struct {
	apiURL   string
	grpcAddr string
	verbose  bool
	timeout  time.Duration
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "fabricctl",
		Short: "Fabric Console in the terminal",
		Long: `fabricctl prints the Fabric Console views (orders, customers, inventory)
as terminal tables and runs the Fabric Intelligence chat.

The API root is taken from --api, then FABRIC_API_URL.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			var out io.Writer = io.Discard
			if opts.verbose {
				level = slog.LevelDebug
				out = cmd.ErrOrStderr()
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("FABRIC_API_URL", defaultAPIURL), "Fabric API root URL")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout for table commands")

	root.AddCommand(
		newOrdersCmd(opts),
		newOrderCmd(opts),
		newCustomersCmd(opts),
		newInventoryCmd(opts),
		newRouteCmd(opts),
		newChatCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

func (o *options) client() (*console.Client, error) {
	c, err := console.NewClient(o.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid --api %q: %w", o.apiURL, err)
	}
	slog.Debug("Using Fabric API", "base_url", c.BaseURL(), "session_id", c.SessionID())
	return c, nil
}

// tableCmd builds a command that loads one page and prints it.
func tableCmd(opts *options, use, short string, args cobra.PositionalArgs, render func(ctx context.Context, c *console.Client, args []string) string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			fmt.Fprintln(cmd.OutOrStdout(), render(ctx, c, args))
			return nil
		},
	}
}

func newOrdersCmd(opts *options) *cobra.Command {
	return tableCmd(opts, "orders", "List orders", cobra.NoArgs,
		func(ctx context.Context, c *console.Client, _ []string) string {
			return tui.RenderOrders(console.LoadOrdersPage(ctx, c))
		})
}

func newOrderCmd(opts *options) *cobra.Command {
	return tableCmd(opts, "order <order-id>", "Show one order with line item progress", cobra.ExactArgs(1),
		func(ctx context.Context, c *console.Client, args []string) string {
			return tui.RenderOrder(console.LoadOrderDetailPage(ctx, c, args[0]))
		})
}

func newCustomersCmd(opts *options) *cobra.Command {
	return tableCmd(opts, "customers", "List customers", cobra.NoArgs,
		func(ctx context.Context, c *console.Client, _ []string) string {
			return tui.RenderCustomers(console.LoadCustomersPage(ctx, c))
		})
}

func newInventoryCmd(opts *options) *cobra.Command {
	return tableCmd(opts, "inventory", "List stock positions", cobra.NoArgs,
		func(ctx context.Context, c *console.Client, _ []string) string {
			return tui.RenderInventory(console.LoadInventoryPage(ctx, c))
		})
}

func newRouteCmd(opts *options) *cobra.Command {
	var req domain.RouteRequest
	var withLogs bool
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Recommend a fulfillment route for an order line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			resp, err := c.OptimizeRoute(ctx, req)
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderRoute(resp, err, withLogs))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.ProductID, "product", "", "product SKU")
	cmd.Flags().IntVar(&req.Quantity, "quantity", 1, "units to ship")
	cmd.Flags().StringVar(&req.CustomerID, "customer", "", "customer ID")
	cmd.Flags().StringVar(&req.BusinessPriority, "priority", domain.PriorityMinimizeCost,
		"MINIMIZE_COST, MINIMIZE_CO2, PRIORITIZE_GOLD_TIER_SPEED or BALANCED_COST_TIME")
	cmd.Flags().BoolVar(&withLogs, "logs", false, "print the workflow log")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with Fabric Intelligence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			return tui.RunChat(cmd.Context(), c)
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the server's gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			status, err := health.Query(ctx, opts.grpcAddr, "")
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "UNKNOWN:", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.grpcAddr, "grpc", envOr("FABRIC_GRPC_ADDR", "localhost:50051"), "gRPC health address")
	return cmd
}
