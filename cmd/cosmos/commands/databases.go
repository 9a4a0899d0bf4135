package commands

import (
	"fmt"

	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewDatabasesCommand creates the databases command group.
func NewDatabasesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "databases",
		Aliases: []string{"database", "db"},
		Short:   "Manage databases",
		Long:    "List, view, create, and delete databases of the account",
	}

	cmd.AddCommand(newDatabasesListCommand())
	cmd.AddCommand(newDatabasesGetCommand())
	cmd.AddCommand(newDatabasesCreateCommand())
	cmd.AddCommand(newDatabasesDeleteCommand())

	return cmd
}

func renderDatabase(cmd *cobra.Command, database *cosmos.Database) error {
	return renderOutput(cmd, database, func(table *tablewriter.Table) error {
		table.Header("Property", "Value")

		_ = table.Append("ID", database.ID)
		_ = table.Append("RID", database.Rid)
		_ = table.Append("Self", database.Self)
		_ = table.Append("ETag", database.ETag)

		if database.Ts != 0 {
			_ = table.Append("Modified", cosmos.DocumentAttributes{Ts: database.Ts}.LastModified().Format(timeFormat))
		}

		return table.Render()
	})
}

func newDatabasesListCommand() *cobra.Command {
	var maxItems int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List databases",
		Long:  "List the databases of the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			list, err := client.Databases().List(commandContext(cmd), cosmos.MaxItemCount(maxItems))
			if err != nil {
				return fmt.Errorf("failed to list databases: %w", err)
			}

			return renderOutput(cmd, list, func(table *tablewriter.Table) error {
				if len(list.Databases) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No databases found")

					return nil
				}

				table.Header("ID", "RID", "ETag")

				for _, database := range list.Databases {
					_ = table.Append(database.ID, database.Rid, database.ETag)
				}

				return table.Render()
			})
		},
	}

	cmd.Flags().IntVar(&maxItems, "max-items", 0, "maximum number of databases to return (0 for service default)")

	return cmd
}

func newDatabasesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get DATABASE_ID",
		Short: "Get database details",
		Long:  "Display detailed information about a specific database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			database, err := client.Databases().Get(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("failed to get database: %w", err)
			}

			return renderDatabase(cmd, database)
		},
	}
}

func newDatabasesCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create DATABASE_ID",
		Short: "Create a database",
		Long:  "Create a new database in the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			database, err := client.Databases().Create(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("failed to create database: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully created database '%s'\n", database.ID)

			return nil
		},
	}
}

func newDatabasesDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete DATABASE_ID",
		Short: "Delete a database",
		Long:  "Delete a database together with all of its collections and documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			databaseID := args[0]

			if !force && !confirm(cmd, fmt.Sprintf("Really delete database '%s' and all its data?", databaseID)) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")

				return nil
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			err = client.Databases().Delete(commandContext(cmd), databaseID)
			if err != nil {
				return fmt.Errorf("failed to delete database: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted database '%s'\n", databaseID)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")

	return cmd
}
