package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"MiniCatalog/internal/catalog"
)

// OutputFormatter renders command results as text, JSON or YAML.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Value writes v in the structured formats. text is delegated to textFn.
func (f *OutputFormatter) Value(v any, textFn func(io.Writer) error) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// go through JSON so custom marshalers (Item keeps unknown keys) apply
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return textFn(f.Writer)
	}
}

func writeItemsTable(w io.Writer, items []catalog.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCATEGORY")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", it.ID, it.Name, formatPrice(it.Price), it.Category)
	}
	return tw.Flush()
}

func writeItemDetail(w io.Writer, it catalog.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	// untyped values (odd ids, empty strings, non-numeric prices) come from Extra
	if it.ID != 0 {
		fmt.Fprintf(tw, "id:\t%d\n", it.ID)
	}
	if it.Name != "" {
		fmt.Fprintf(tw, "name:\t%s\n", it.Name)
	}
	if it.Price != nil {
		fmt.Fprintf(tw, "price:\t%s\n", formatPrice(it.Price))
	}
	if it.Category != "" {
		fmt.Fprintf(tw, "category:\t%s\n", it.Category)
	}
	if it.Description != "" {
		fmt.Fprintf(tw, "description:\t%s\n", it.Description)
	}
	keys := make([]string, 0, len(it.Extra))
	for k := range it.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%s\n", k, string(it.Extra[k]))
	}
	return tw.Flush()
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
