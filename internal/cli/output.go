package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/inventory/pkg/types"
)

// itemView is the CLI rendering of an item. Quantity is a JSON number.
type itemView struct {
	EntityID string      `json:"entity_id"`
	UniqueID string      `json:"unique_id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Quantity json.Number `json:"quantity"`
	Unit     string      `json:"unit,omitempty"`
}

func viewOf(item *types.Item) itemView {
	return itemView{
		EntityID: item.EntityID,
		UniqueID: item.ID,
		Name:     item.Name,
		Category: item.Category,
		Quantity: json.Number(item.State()),
		Unit:     item.Unit,
	}
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// amount formats a quantity with its unit, e.g. "2 kg".
func amount(item *types.Item) string {
	if item.Unit == "" {
		return item.State()
	}
	return item.State() + " " + item.Unit
}

// printItemTable prints items in a human-readable table.
func printItemTable(w io.Writer, items []*types.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tNAME\tCATEGORY\tQUANTITY\tUNIT")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.EntityID, item.Name, item.Category, item.State(), item.Unit)
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "Total: %d item(s)\n", len(items))
}
