package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/filter_products"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_products"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/change_unit_status"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/check_completion"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/create_product"
)

var createCmd = &cobra.Command{
	Use:   "create <internal-po>",
	Short: "Create a work order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		externalPO, _ := flags.GetString("external-po")
		name, _ := flags.GetString("name")
		company, _ := flags.GetString("company")
		fileHash, _ := flags.GetString("file-hash")
		units, _ := flags.GetStringSlice("units")

		product, err := svc.CreateProduct.Execute(cmd.Context(), &create_product.Request{
			InternalPO:  args[0],
			ExternalPO:  externalPO,
			Name:        name,
			CompanyName: company,
			FileHash:    fileHash,
			Units:       units,
			Options:     callOptions(),
		})
		if err != nil {
			return err
		}
		printProduct(cmd.OutOrStdout(), product)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <internal-po>",
	Short: "Show a work order and its units",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := svc.LoadProduct.Execute(cmd.Context(), args[0])
		if result == nil {
			return err
		}
		out := cmd.OutOrStdout()
		printProduct(out, result.Product)
		for _, f := range result.Failures {
			fmt.Fprintf(out, "  ! %s: %v\n", f.Unit, f.Err)
		}
		return err
	},
}

var setStatusCmd = &cobra.Command{
	Use:   "set-status <internal-po> <unit> <status>",
	Short: "Record a unit status change",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := domain.ParseUnitName(args[1])
		if err != nil {
			return err
		}
		status, err := domain.ParseStatus(args[2])
		if err != nil {
			return err
		}

		loaded, err := svc.LoadProduct.Execute(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		resp, err := svc.ChangeUnitStatus.Execute(cmd.Context(), &change_unit_status.Request{
			Product: loaded.Product,
			Unit:    unit,
			Status:  status,
			Options: callOptions(),
		})
		if resp == nil {
			return describe(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s -> %s at %d (tx %s)\n", args[0], unit, status, resp.Receipt.Timestamp, resp.Receipt.TxID)
		if resp.Completed {
			fmt.Fprintln(out, "work order completed")
		}
		return describe(err)
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <internal-po>",
	Short: "Ask the ledger to recheck completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := svc.LoadProduct.Execute(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		resp, err := svc.CheckCompletion.Execute(cmd.Context(), &check_completion.Request{
			Product: loaded.Product,
			Options: callOptions(),
		})
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s completed=%t\n", args[0], resp.Completed)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List work orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		query, _ := flags.GetString("query")
		matchRaw, _ := flags.GetString("match")
		company, _ := flags.GetString("company")
		unit, _ := flags.GetString("unit")
		completed, _ := flags.GetBool("completed")

		match, err := filter_products.ParseMatchField(matchRaw)
		if err != nil {
			return err
		}
		resp, err := svc.ListProducts.Execute(cmd.Context(), &list_products.Request{Spec: filter_products.Spec{
			TextQuery:     query,
			MatchField:    match,
			Company:       company,
			UnitType:      unit,
			CompletedOnly: completed,
		}})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(resp.Products) == 0 {
			fmt.Fprintln(out, "No work orders found.")
		}
		for _, p := range resp.Products {
			printProduct(out, p)
		}
		for _, f := range resp.Failures {
			fmt.Fprintf(out, "! %s: %v\n", f.InternalPO, f.Err)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().String("external-po", "", "External PO number")
	createCmd.Flags().String("name", "", "Product name")
	createCmd.Flags().String("company", "", "Company name")
	createCmd.Flags().String("file-hash", "", "Content address of the attached drawing")
	createCmd.Flags().StringSlice("units", nil, "Processing units, in order (e.g. laser-cutting,milling)")

	listCmd.Flags().StringP("query", "q", "", "Text to search for")
	listCmd.Flags().String("match", "internal_po", "Field to search: internal_po or name")
	listCmd.Flags().String("company", "", "Exact company name")
	listCmd.Flags().String("unit", "", "Only products with this unit")
	listCmd.Flags().Bool("completed", false, "Only completed products")
}

func printProduct(w io.Writer, p *domain.Product) {
	fmt.Fprintf(w, "%s  %s  %s  (ext %s)  completed=%t\n",
		p.InternalPO(), p.Name(), p.CompanyName(), p.ExternalPO(), p.IsCompleted())
	for _, u := range p.Units() {
		ts := u.StatusTime().String()
		if ts == "" {
			ts = "-"
		}
		fmt.Fprintf(w, "  %-14s %-12s %s\n", u.Name(), u.Status(), ts)
	}
}

// describe appends the ledger's own message and a retry hint to err.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var hints []string
	if msg := domain.LedgerMessage(err); msg != "" {
		hints = append(hints, "ledger says: "+msg)
	}
	if domain.IsRetryable(err) {
		hints = append(hints, "retry may succeed")
	}
	if len(hints) == 0 {
		return err
	}
	return fmt.Errorf("%w (%s)", err, strings.Join(hints, "; "))
}
