package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	plugin "github.com/mesh-intelligence/inventory/internal/inventory"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	var quantity, unit, category string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item",
		Long: `Add creates an item. Quantity defaults to 1 and category to "Uncategorized".

Example:
  inventory add Flour --quantity 2 --unit kg --category Pantry`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]any{plugin.FieldName: args[0]}
			if quantity != "" {
				data[plugin.FieldQuantity] = quantity
			}
			if unit != "" {
				data[plugin.FieldUnit] = unit
			}
			if category != "" {
				data[plugin.FieldCategory] = category
			}
			return a.mutate(cmd, plugin.ServiceAddItem, data, func(item *types.Item) string {
				return fmt.Sprintf("Added %s (%s): %s", item.Name, item.EntityID, amount(item))
			})
		},
	}
	cmd.Flags().StringVar(&quantity, "quantity", "", "initial quantity (default 1)")
	cmd.Flags().StringVar(&unit, "unit", "", "unit of measurement")
	cmd.Flags().StringVar(&category, "category", "", "category (default Uncategorized)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <entity_id>",
		Short: "Remove an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, plugin.ServiceRemoveItem, map[string]any{plugin.FieldEntityID: args[0]},
				func(item *types.Item) string {
					return fmt.Sprintf("Removed %s (%s)", item.Name, args[0])
				})
		},
	}
}

func newIncreaseCmd(a *app) *cobra.Command {
	return newQuantityCmd(a, "increase", "Increase an item's quantity", plugin.ServiceIncreaseQuantity)
}

func newDecreaseCmd(a *app) *cobra.Command {
	return newQuantityCmd(a, "decrease", "Decrease an item's quantity", plugin.ServiceDecreaseQuantity)
}

func newQuantityCmd(a *app, use, short, service string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <entity_id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]any{
				plugin.FieldEntityID: args[0],
				plugin.FieldQuantity: args[1],
			}
			return a.mutate(cmd, service, data, func(item *types.Item) string {
				return fmt.Sprintf("%s: %s", item.Name, amount(item))
			})
		},
	}
}

// mutate dispatches service and prints the resulting item.
func (a *app) mutate(cmd *cobra.Command, service string, data map[string]any, summary func(*types.Item) string) error {
	inst, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	defer inst.Close()

	res, err := inst.Call(cmd.Context(), service, data)
	if err != nil {
		return err
	}
	item, ok := res.(*types.Item)
	if !ok {
		return sysError(fmt.Errorf("%s returned %T", service, res))
	}
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), viewOf(item))
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary(item))
	return nil
}

func newListCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Long: `List prints every item in insertion order.

Example:
  inventory list
  inventory list --category Pantry
  inventory list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer inst.Close()

			var items []*types.Item
			for _, item := range inst.Items() {
				if category == "" || strings.EqualFold(item.Category, category) {
					items = append(items, item)
				}
			}
			if a.flags.jsonMode {
				views := make([]itemView, len(items))
				for i, item := range items {
					views[i] = viewOf(item)
				}
				return writeJSON(cmd.OutOrStdout(), views)
			}
			printItemTable(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list items in this category")
	return cmd
}

type showResult struct {
	itemView
	LastChanged string         `json:"last_changed,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <entity_id>",
		Short: "Show one item and its published state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer inst.Close()

			item, err := inst.Plugin.Get(args[0])
			if err != nil {
				return err
			}
			res := showResult{itemView: viewOf(item)}
			if st, ok := inst.Runtime.States.Get(item.EntityID); ok {
				res.LastChanged = st.LastChanged.Format(time.RFC3339)
				res.LastUpdated = st.LastUpdated.Format(time.RFC3339)
				res.Attributes = st.Attributes
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printShow(cmd, res)
			return nil
		},
	}
}

func printShow(cmd *cobra.Command, res showResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Entity:    %s\n", res.EntityID)
	fmt.Fprintf(out, "ID:        %s\n", res.UniqueID)
	fmt.Fprintf(out, "Name:      %s\n", res.Name)
	fmt.Fprintf(out, "Category:  %s\n", res.Category)
	fmt.Fprintf(out, "Quantity:  %s\n", res.Quantity)
	if res.Unit != "" {
		fmt.Fprintf(out, "Unit:      %s\n", res.Unit)
	}
	if res.LastChanged != "" {
		fmt.Fprintf(out, "Changed:   %s\n", res.LastChanged)
	}
}
