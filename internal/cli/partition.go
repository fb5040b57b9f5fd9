package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/hupe1980/sysisolate/internal/category"
	"github.com/hupe1980/sysisolate/internal/model"
)

type partitionOptions struct {
	key     string
	inverse bool
	json    bool
}

// partitionReport is the JSON shape of the partition command's output.
type partitionReport struct {
	Key           string   `json:"key"`
	Supporting    []string `json:"supporting"`
	NonSupporting []string `json:"nonSupporting"`
}

func newPartitionCommand() *cobra.Command {
	opts := &partitionOptions{}

	cmd := &cobra.Command{
		Use:   "partition <model>",
		Short: "Split the model's categories by whether they can carry a property",
		Long: `Partition asks, for every category of the model, whether its objects
can carry the given property (the group key by default), and prints the
categories that can and the ones that cannot.

Capability overrides from the config file are applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartition(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.key, "key", "", "property to partition by (default: group-key)")
	f.BoolVar(&opts.inverse, "inverse", false, "list the categories that cannot carry the property first")
	f.BoolVar(&opts.json, "json", false, "output the partition as JSON")

	return cmd
}

func runPartition(ctx context.Context, w io.Writer, modelPath string, opts *partitionOptions) error {
	e, err := loadEngine(ctx, modelPath)
	if err != nil {
		return err
	}

	key := e.key()
	if opts.key != "" {
		key = model.PropertyKey(opts.key)
	}

	idx, err := category.Partition(ctx, e.model.Universe(), key, e.query)
	if err != nil {
		return engineExit(err)
	}

	if opts.json {
		return writePartitionJSON(w, idx)
	}

	first, second := "with", "without"
	if opts.inverse {
		idx = idx.Inverse()
		first, second = second, first
	}

	writeCategoryList(w, fmt.Sprintf("Categories %s %s", first, key), idx.Supporting)
	writeCategoryList(w, fmt.Sprintf("Categories %s %s", second, key), idx.NonSupporting)

	return nil
}

func writeCategoryList(w io.Writer, title string, cs sets.Set[model.Category]) {
	fmt.Fprintf(w, "%s (%d):\n", title, cs.Len())

	for _, c := range sets.List(cs) {
		fmt.Fprintf(w, "  %s\n", c)
	}
}

func writePartitionJSON(w io.Writer, idx category.Index) error {
	report := partitionReport{
		Key:           string(idx.Key),
		Supporting:    categoryNames(idx.Supporting),
		NonSupporting: categoryNames(idx.NonSupporting),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return &ExitError{Code: exitFailure, Err: fmt.Errorf("encoding partition: %w", err)}
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

func categoryNames(cs sets.Set[model.Category]) []string {
	names := make([]string, 0, cs.Len())
	for _, c := range sets.List(cs) {
		names = append(names, string(c))
	}

	return names
}
