package commands

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "colls", "containers"},
		Short:   "Manage collections",
		Long:    "List, view, create, and delete collections of a database",
	}

	cmd.AddCommand(newCollectionsListCommand())
	cmd.AddCommand(newCollectionsGetCommand())
	cmd.AddCommand(newCollectionsCreateCommand())
	cmd.AddCommand(newCollectionsDeleteCommand())
	cmd.AddCommand(newCollectionsPartitionKeyRangesCommand())

	return cmd
}

func partitionKeyPaths(collection *cosmos.Collection) string {
	if collection.PartitionKey == nil {
		return ""
	}

	return strings.Join(collection.PartitionKey.Paths, ", ")
}

func newCollectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Long:  "List the collections of the selected database",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := requireDatabase()
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			list, err := client.Collections(database).List(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to list collections: %w", err)
			}

			return renderOutput(cmd, list, func(table *tablewriter.Table) error {
				if len(list.Collections) == 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No collections found in database '%s'\n", database)

					return nil
				}

				table.Header("ID", "Partition Key", "RID")

				for i := range list.Collections {
					collection := &list.Collections[i]
					_ = table.Append(collection.ID, partitionKeyPaths(collection), collection.Rid)
				}

				return table.Render()
			})
		},
	}
}

func newCollectionsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get COLLECTION_ID",
		Short: "Get collection details",
		Long:  "Display detailed information about a specific collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := requireDatabase()
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			collection, err := client.Collections(database).Get(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("failed to get collection: %w", err)
			}

			return renderOutput(cmd, collection, func(table *tablewriter.Table) error {
				table.Header("Property", "Value")

				_ = table.Append("ID", collection.ID)
				_ = table.Append("RID", collection.Rid)
				_ = table.Append("Self", collection.Self)
				_ = table.Append("Partition Key", partitionKeyPaths(collection))

				if collection.PartitionKey != nil {
					_ = table.Append("Partition Kind", collection.PartitionKey.Kind)
				}

				if collection.IndexingPolicy != nil {
					_ = table.Append("Indexing Mode", collection.IndexingPolicy.IndexingMode)
				}

				return table.Render()
			})
		},
	}
}

func newCollectionsCreateCommand() *cobra.Command {
	var (
		partitionKeyPath string
		hierarchical     []string
	)

	cmd := &cobra.Command{
		Use:   "create COLLECTION_ID",
		Short: "Create a collection",
		Long:  "Create a new collection partitioned on the given path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := requireDatabase()
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			definition := &cosmos.PartitionKeyDefinition{Paths: []string{partitionKeyPath}, Kind: "Hash"}
			if len(hierarchical) > 0 {
				definition = &cosmos.PartitionKeyDefinition{Paths: hierarchical, Kind: "MultiHash", Version: 2} //nolint:mnd // hierarchical keys require version 2
			}

			collection, err := client.Collections(database).Create(commandContext(cmd), &cosmos.CollectionCreateRequest{
				ID:           args[0],
				PartitionKey: definition,
			})
			if err != nil {
				return fmt.Errorf("failed to create collection: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully created collection '%s' in database '%s'\n", collection.ID, database)

			return nil
		},
	}

	cmd.Flags().StringVar(&partitionKeyPath, "partition-key", "/id", "partition key path")
	cmd.Flags().StringSliceVar(&hierarchical, "hierarchical-keys", nil, "hierarchical partition key paths (comma-separated)")

	return cmd
}

func newCollectionsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete COLLECTION_ID",
		Short: "Delete a collection",
		Long:  "Delete a collection and all of its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID := args[0]

			database, err := requireDatabase()
			if err != nil {
				return err
			}

			if !force && !confirm(cmd, fmt.Sprintf("Really delete collection '%s'?", collectionID)) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")

				return nil
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			err = client.Collections(database).Delete(commandContext(cmd), collectionID)
			if err != nil {
				return fmt.Errorf("failed to delete collection: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted collection '%s'\n", collectionID)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")

	return cmd
}

func newCollectionsPartitionKeyRangesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pkranges COLLECTION_ID",
		Short: "List partition key ranges",
		Long:  "List the physical partition key ranges of a collection, as used by the change feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := requireDatabase()
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			ranges, err := client.Collections(database).PartitionKeyRanges(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("failed to list partition key ranges: %w", err)
			}

			return renderOutput(cmd, ranges, func(table *tablewriter.Table) error {
				table.Header("ID", "Min Inclusive", "Max Exclusive", "Parents")

				for _, pkRange := range ranges.Ranges {
					_ = table.Append(pkRange.ID, pkRange.MinInclusive, pkRange.MaxExclusive, strings.Join(pkRange.Parents, ", "))
				}

				return table.Render()
			})
		},
	}
}
