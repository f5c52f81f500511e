package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// NewListCommand pages through items exactly like GET /api/items.
func NewListCommand(root *RootOptions) *cobra.Command {
	var q, page, pageSize, limit string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items with search and pagination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := url.Values{}
			setIfChanged(cmd, v, "q", q)
			setIfChanged(cmd, v, "page", page)
			setIfChanged(cmd, v, "page-size", pageSize)
			setIfChanged(cmd, v, "limit", limit)

			res, err := root.backend().List(cmd.Context(), v)
			if err != nil {
				return err
			}
			return root.formatter(cmd.OutOrStdout()).Value(res, func(w io.Writer) error {
				if err := writeItemsTable(w, res.Data); err != nil {
					return err
				}
				p := res.Pagination
				_, err := fmt.Fprintf(w, "page %d/%d (%d items, %d per page)\n", p.Page, p.TotalPages, p.Total, p.PageSize)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&q, "q", "q", "", "case-insensitive name search")
	cmd.Flags().StringVar(&page, "page", "1", "page number (1-based)")
	cmd.Flags().StringVar(&pageSize, "page-size", "50", "items per page (max 1000)")
	cmd.Flags().StringVar(&limit, "limit", "", "legacy cap applied after pagination")

	return cmd
}

var listQueryKeys = map[string]string{"q": "q", "page": "page", "page-size": "pageSize", "limit": "limit"}

func setIfChanged(cmd *cobra.Command, v url.Values, flag, value string) {
	if cmd.Flags().Changed(flag) {
		v.Set(listQueryKeys[flag], value)
	}
}

// NewGetCommand prints one item by id.
func NewGetCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := root.backend().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return root.formatter(cmd.OutOrStdout()).Value(it, func(w io.Writer) error {
				return writeItemDetail(w, it)
			})
		},
	}
}

// NewAddCommand validates and appends an item the same way POST /api/items does.
// With --server the service itself validates and assigns the id.
func NewAddCommand(root *RootOptions) *cobra.Command {
	var name, price, category, description string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"name": name}
			if cmd.Flags().Changed("price") {
				f, err := strconv.ParseFloat(price, 64)
				if err != nil {
					payload["price"] = price
				} else {
					payload["price"] = f
				}
			}
			if category != "" {
				payload["category"] = category
			}
			if description != "" {
				payload["description"] = description
			}

			body, err := json.Marshal(payload)
			if err != nil {
				return err
			}

			created, err := root.backend().Create(cmd.Context(), body)
			if err != nil {
				return err
			}
			return root.formatter(cmd.OutOrStdout()).Value(created, func(w io.Writer) error {
				return writeItemDetail(w, created)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "item name (required)")
	cmd.Flags().StringVar(&price, "price", "", "item price")
	cmd.Flags().StringVar(&category, "category", "", "item category")
	cmd.Flags().StringVar(&description, "description", "", "item description")

	return cmd
}

// NewStatsCommand prints the item count and average price.
func NewStatsCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show item count and average price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := root.backend().Stats(cmd.Context())
			if err != nil {
				return err
			}
			return root.formatter(cmd.OutOrStdout()).Value(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "total: %d\naverage price: %s\n", res.Total,
					strconv.FormatFloat(res.AveragePrice, 'f', 2, 64))
				return err
			})
		},
	}
}
