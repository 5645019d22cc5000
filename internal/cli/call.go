package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/inventory/pkg/types"
)

func newCallCmd(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "call <service>",
		Short: "Call an inventory service with raw service data",
		Long: `Call dispatches a service in the inventory domain with a JSON object as
its data, the way the host would.

Example:
  inventory call add_item --data '{"name":"Flour","quantity":2,"unit":"kg","category":"Pantry"}'
  inventory call decrease_quantity --data '{"entity_id":"inventory.pantry_flour","quantity":0.5}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := decodeData(data)
			if err != nil {
				return err
			}

			inst, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer inst.Close()

			res, err := inst.Call(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			if item, ok := res.(*types.Item); ok {
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), viewOf(item))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", args[0], item.EntityID, amount(item))
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&data, "data", "{}", "service data as a JSON object")
	return cmd
}

// decodeData parses a JSON object, keeping numbers as json.Number so
// quantities keep their decimal text.
func decodeData(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: --data: %v", types.ErrInvalidData, err)
	}
	return out, nil
}
