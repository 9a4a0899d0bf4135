package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/fivetwenty-io/cosmos-client/internal/constants"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// payload is the schema-less document body handled by the CLI.
type payload = map[string]interface{}

// systemFields are hidden from the payload rows of table output.
var systemFields = map[string]bool{
	"id": true, "_rid": true, "_ts": true, "_self": true, "_etag": true, "_attachments": true, "_lsn": true,
}

// NewDocumentsCommand creates the documents command group.
func NewDocumentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"document", "docs", "doc"},
		Short:   "Manage documents",
		Long:    "Read, write, query, and follow the changes of documents in a collection",
	}

	cmd.AddCommand(newDocumentsGetCommand())
	cmd.AddCommand(newDocumentsCreateCommand())
	cmd.AddCommand(newDocumentsUpsertCommand())
	cmd.AddCommand(newDocumentsReplaceCommand())
	cmd.AddCommand(newDocumentsDeleteCommand())
	cmd.AddCommand(newDocumentsListCommand())
	cmd.AddCommand(newDocumentsQueryCommand())
	cmd.AddCommand(newDocumentsChangesCommand())
	cmd.AddCommand(newDocumentsImportCommand())

	return cmd
}

// documentsClient opens the documents client of the selected collection.
func documentsClient(cmd *cobra.Command) (cosmos.Client, cosmos.DocumentsClient, error) {
	database, collection, err := requireCollection()
	if err != nil {
		return nil, nil, err
	}

	client, err := CreateClient(cmd)
	if err != nil {
		return nil, nil, err
	}

	return client, client.Documents(database, collection), nil
}

// partitionKeyOptions returns the options for the --partition-key flag.
func partitionKeyOptions(value string) ([]cosmos.HeaderAdder, error) {
	keys, err := parsePartitionKey(value)
	if err != nil {
		return nil, err
	}

	if keys == nil {
		return nil, nil
	}

	return []cosmos.HeaderAdder{keys}, nil
}

// flatten returns the wire form of doc, so that yaml output matches json.
func flatten(doc cosmos.Document[payload]) payload {
	data, err := json.Marshal(doc)
	if err != nil {
		return doc.Payload
	}

	var flat payload

	err = json.Unmarshal(data, &flat)
	if err != nil {
		return doc.Payload
	}

	return flat
}

func renderDocument(cmd *cobra.Command, doc cosmos.Document[payload]) error {
	return renderOutput(cmd, flatten(doc), func(table *tablewriter.Table) error {
		table.Header("Property", "Value")

		_ = table.Append("ID", doc.ID())
		_ = table.Append("Self", doc.URI())
		_ = table.Append("ETag", doc.Attributes.ETag)

		if modified := doc.Attributes.LastModified(); !modified.IsZero() {
			_ = table.Append("Modified", modified.Format(timeFormat))
		}

		keys := make([]string, 0, len(doc.Payload))
		for key := range doc.Payload {
			if !systemFields[key] {
				keys = append(keys, key)
			}
		}

		sort.Strings(keys)

		for _, key := range keys {
			_ = table.Append(key, formatValue(doc.Payload[key]))
		}

		return table.Render()
	})
}

func renderDocumentList(cmd *cobra.Command, documents []cosmos.Document[payload], continuation string) error {
	flat := make([]payload, 0, len(documents))
	for _, doc := range documents {
		flat = append(flat, flatten(doc))
	}

	return renderOutput(cmd, flat, func(table *tablewriter.Table) error {
		if len(documents) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No documents found")

			return nil
		}

		table.Header("ID", "ETag", "Modified")

		for _, doc := range documents {
			modified := constants.NotAvailable
			if ts := doc.Attributes.LastModified(); !ts.IsZero() {
				modified = ts.Format(timeFormat)
			}

			_ = table.Append(doc.ID(), doc.Attributes.ETag, modified)
		}

		err := table.Render()
		if err != nil {
			return err
		}

		if continuation != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nMore results available, continue with --continuation '%s'\n", continuation)
		}

		return nil
	})
}

func newDocumentsGetCommand() *cobra.Command {
	var partitionKey string

	cmd := &cobra.Command{
		Use:   "get DOCUMENT_ID",
		Short: "Get a document",
		Long:  "Display a document and its system properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := partitionKeyOptions(partitionKey)
			if err != nil {
				return err
			}

			client, documents, err := documentsClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			doc, err := cosmos.GetDocument[payload](commandContext(cmd), documents, args[0], options...)
			if err != nil {
				return fmt.Errorf("failed to get document: %w", err)
			}

			return renderDocument(cmd, doc)
		},
	}

	cmd.Flags().StringVarP(&partitionKey, "partition-key", "k", "", "partition key value (JSON, or a plain string)")

	return cmd
}

// writeFlags are shared by create, upsert and replace.
type writeFlags struct {
	file         string
	data         string
	partitionKey string
	exclude      bool
}

func (f *writeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the document from a JSON file ('-' for stdin)")
	cmd.Flags().StringVar(&f.data, "data", "", "document as inline JSON")
	cmd.Flags().StringVarP(&f.partitionKey, "partition-key", "k", "", "partition key value (JSON, or a plain string)")
	cmd.Flags().BoolVar(&f.exclude, "exclude-from-index", false, "exclude the document from indexing")
}

func (f *writeFlags) options() ([]cosmos.HeaderAdder, error) {
	options, err := partitionKeyOptions(f.partitionKey)
	if err != nil {
		return nil, err
	}

	if f.exclude {
		options = append(options, cosmos.IndexingDirectiveExclude)
	}

	return options, nil
}

// newWriteCommand builds create and upsert, which only differ in the helper.
func newWriteCommand(use, short, long, verb string, upsert bool) *cobra.Command {
	var (
		flags writeFlags
		id    string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readDocumentInput(cmd, flags.file, flags.data)
			if err != nil {
				return err
			}

			options, err := flags.options()
			if err != nil {
				return err
			}

			doc := cosmos.NewDocument(body)

			switch {
			case id != "":
				doc = doc.WithID(id)
			case body["id"] == nil || body["id"] == "":
				doc = doc.WithID(uuid.New().String())
			}

			client, documents, err := documentsClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			write := cosmos.CreateDocument[payload]
			if upsert {
				write = cosmos.UpsertDocument[payload]
			}

			stored, err := write(commandContext(cmd), documents, doc, options...)
			if err != nil {
				return fmt.Errorf("failed to %s document: %w", verb, err)
			}

			return renderDocument(cmd, stored)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "document id (generated when the document has none)")

	return cmd
}

func newDocumentsCreateCommand() *cobra.Command {
	return newWriteCommand("create", "Create a document", "Insert a new document into the collection", "create", false)
}

func newDocumentsUpsertCommand() *cobra.Command {
	return newWriteCommand("upsert", "Create or replace a document", "Insert a document or replace the document with the same id", "upsert", true)
}

func newDocumentsReplaceCommand() *cobra.Command {
	var (
		flags   writeFlags
		ifMatch string
	)

	cmd := &cobra.Command{
		Use:   "replace DOCUMENT_ID",
		Short: "Replace a document",
		Long:  "Replace an existing document, optionally only when its ETag matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readDocumentInput(cmd, flags.file, flags.data)
			if err != nil {
				return err
			}

			options, err := flags.options()
			if err != nil {
				return err
			}

			doc := cosmos.NewDocument(body).WithID(args[0])
			doc.Attributes.ETag = ifMatch

			client, documents, err := documentsClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			stored, err := cosmos.ReplaceDocument(commandContext(cmd), documents, doc, options...)
			if err != nil {
				if cosmos.IsPreconditionFailed(err) {
					return fmt.Errorf("document '%s' was modified since ETag %s: %w", args[0], ifMatch, err)
				}

				return fmt.Errorf("failed to replace document: %w", err)
			}

			return renderDocument(cmd, stored)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&ifMatch, "if-match", "", "only replace when the stored ETag matches")

	return cmd
}

func newDocumentsDeleteCommand() *cobra.Command {
	var (
		force        bool
		partitionKey string
	)

	cmd := &cobra.Command{
		Use:   "delete DOCUMENT_ID",
		Short: "Delete a document",
		Long:  "Delete a document from the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID := args[0]

			options, err := partitionKeyOptions(partitionKey)
			if err != nil {
				return err
			}

			if !force && !confirm(cmd, fmt.Sprintf("Really delete document '%s'?", documentID)) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")

				return nil
			}

			client, documents, err := documentsClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			err = cosmos.DeleteDocument(commandContext(cmd), documents, documentID, options...)
			if err != nil {
				return fmt.Errorf("failed to delete document: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted document '%s'\n", documentID)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")
	cmd.Flags().StringVarP(&partitionKey, "partition-key", "k", "", "partition key value (JSON, or a plain string)")

	return cmd
}

func newDocumentsListCommand() *cobra.Command {
	var (
		maxItems     int
		continuation string
		all          bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Long:  "List the documents of the collection one page at a time, or all with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, documents, err := documentsClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			ctx := commandContext(cmd)
			options := []cosmos.HeaderAdder{cosmos.MaxItemCount(maxItems)}

			if all {
				docs, err := cosmos.ListAllDocuments[payload](ctx, documents, options...)
				if err != nil {
					return fmt.Errorf("failed to list documents: %w", err)
				}

				return renderDocumentList(cmd, docs, "")
			}

			page, err := cosmos.ListDocuments[payload](ctx, documents, append(options, cosmos.Continuation(continuation))...)
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}

			return renderDocumentList(cmd, page.Documents, page.Continuation)
		},
	}

	cmd.Flags().IntVar(&maxItems, "max-items", 50, "page size") //nolint:mnd // default page size
	cmd.Flags().StringVar(&continuation, "continuation", "", "continuation token of a previous page")
	cmd.Flags().BoolVar(&all, "all", false, "follow continuation tokens and list every document")

	return cmd
}

// parseQueryParameters turns name=value flags into query parameters. Values
// are decoded as JSON when possible and used as strings otherwise.
func parseQueryParameters(query *cosmos.Query, parameters map[string]string) *cosmos.Query {
	names := make([]string, 0, len(parameters))
	for name := range parameters {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		raw := parameters[name]

		var value interface{}

		err := json.Unmarshal([]byte(raw), &value)
		if err != nil {
			value = raw
		}

		if !strings.HasPrefix(name, "@") {
			name = "@" + name
		}

		query.WithParameter(name, value)
	}

	return query
}

func newDocumentsQueryCommand() *cobra.Command {
	var (
		parameters     map[string]string
		partitionKey   string
		crossPartition bool
		maxItems       int
		continuation   string
		sessionToken   string
	)

	cmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Query documents",
		Long:  "Run a SQL query against the collection, e.g. \"SELECT * FROM c WHERE c.customer = @customer\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := partitionKeyOptions(partitionKey)
			if err != nil {
				return err
			}

			if crossPartition {
				options = append(options, cosmos.QueryCrossPartitionYes, cosmos.ParallelizeCrossPartitionYes)
			}

			options = append(options,
				cosmos.MaxItemCount(maxItems),
				cosmos.Continuation(continuation),
				cosmos.SessionToken(sessionToken))

			client, documents, err := documentsClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			query := parseQueryParameters(cosmos.NewQuery(args[0]), parameters)

			page, err := cosmos.QueryDocuments[payload](commandContext(cmd), documents, query, options...)
			if err != nil {
				return fmt.Errorf("failed to query documents: %w", err)
			}

			return renderDocumentList(cmd, page.Documents, page.Continuation)
		},
	}

	cmd.Flags().StringToStringVarP(&parameters, "param", "p", nil, "query parameter NAME=VALUE (repeatable)")
	cmd.Flags().StringVarP(&partitionKey, "partition-key", "k", "", "restrict the query to one partition key value")
	cmd.Flags().BoolVar(&crossPartition, "cross-partition", false, "allow the query to span partitions")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "page size (0 for service default)")
	cmd.Flags().StringVar(&continuation, "continuation", "", "continuation token of a previous page")
	cmd.Flags().StringVar(&sessionToken, "session-token", "", "session token for session consistency")

	return cmd
}

func newDocumentsChangesCommand() *cobra.Command {
	var (
		ranges   []string
		from     map[string]string
		follow   bool
		maxItems int
	)

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Read the change feed",
		Long: `Read the incremental change feed of the collection. Documents are printed
as JSON lines. Without --follow every range is read until it has no more
changes and the final positions are printed for use with --from.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, collection, err := requireCollection()
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(ranges) == 0 {
				pkRanges, err := client.Collections(database).PartitionKeyRanges(ctx, collection)
				if err != nil {
					return fmt.Errorf("failed to list partition key ranges: %w", err)
				}

				for _, pkRange := range pkRanges.Ranges {
					ranges = append(ranges, pkRange.ID)
				}
			}

			documents := client.Documents(database, collection)
			printer := &changePrinter{encoder: json.NewEncoder(cmd.OutOrStdout())}

			var (
				waitGroup sync.WaitGroup
				mutex     sync.Mutex
				errs      *multierror.Error
				positions = make(map[string]string, len(ranges))
			)

			for _, rangeID := range ranges {
				reader := cosmos.NewChangeFeedReader[payload](documents, rangeID, cosmos.MaxItemCount(maxItems)).
					StartFrom(from[rangeID])

				waitGroup.Add(1)

				go func(rangeID string) {
					defer waitGroup.Done()

					var err error
					if follow {
						err = reader.Poll(ctx, printer.print)
					} else {
						err = drainChangeFeed(ctx, reader, printer)
					}

					mutex.Lock()
					defer mutex.Unlock()

					positions[rangeID] = reader.ETag()

					if err != nil && ctx.Err() == nil {
						errs = multierror.Append(errs, fmt.Errorf("range %s: %w", rangeID, err))
					}
				}(rangeID)
			}

			waitGroup.Wait()

			ids := make([]string, 0, len(positions))
			for rangeID := range positions {
				ids = append(ids, rangeID)
			}

			sort.Strings(ids)

			for _, rangeID := range ids {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "range %s: --from %s=%s\n", rangeID, rangeID, positions[rangeID])
			}

			return errs.ErrorOrNil()
		},
	}

	cmd.Flags().StringSliceVar(&ranges, "range", nil, "partition key range ids (default all ranges)")
	cmd.Flags().StringToStringVar(&from, "from", nil, "resume RANGE=ETAG (repeatable)")
	cmd.Flags().BoolVar(&follow, "follow", false, "keep polling for changes until interrupted")
	cmd.Flags().IntVar(&maxItems, "max-items", 100, "changes per read") //nolint:mnd // default page size

	return cmd
}

// changePrinter serializes change feed output from concurrent readers.
type changePrinter struct {
	mutex   sync.Mutex
	encoder *json.Encoder
}

func (p *changePrinter) print(_ context.Context, documents []cosmos.Document[payload]) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, doc := range documents {
		err := p.encoder.Encode(doc)
		if err != nil {
			return err
		}
	}

	return nil
}

// drainChangeFeed reads a range until it reports no further changes.
func drainChangeFeed(ctx context.Context, reader *cosmos.ChangeFeedReader[payload], printer *changePrinter) error {
	for {
		page, err := reader.Next(ctx)
		if err != nil {
			return err
		}

		if page.NotModified || len(page.Documents) == 0 {
			return nil
		}

		err = printer.print(ctx, page.Documents)
		if err != nil {
			return err
		}
	}
}

// valueAtPath resolves a partition key path such as "/address/city".
func valueAtPath(document payload, path string) (interface{}, bool) {
	var current interface{} = document

	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		object, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}

		current, ok = object[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func newDocumentsImportCommand() *cobra.Command {
	var (
		file             string
		partitionKeyPath string
		concurrency      int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert documents in bulk",
		Long:  "Upsert every document of a JSON array concurrently, taking each partition key from --partition-key-path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// #nosec G304 -- the file is chosen by the user running the CLI
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}

			var bodies []payload

			err = json.Unmarshal(data, &bodies)
			if err != nil {
				return fmt.Errorf("%w: expected a JSON array of objects", constants.ErrDocumentInvalid)
			}

			builder := cosmos.NewBatchBuilder()

			for index, body := range bodies {
				doc := cosmos.NewDocument(body)
				if id, ok := body["id"].(string); ok && id != "" {
					doc = doc.WithID(id)
				} else {
					doc = doc.WithID(uuid.New().String())
				}

				var options []cosmos.HeaderAdder

				if partitionKeyPath != "" {
					value, ok := valueAtPath(body, partitionKeyPath)
					if !ok {
						return fmt.Errorf("document %d: %w: %s not found", index, constants.ErrPartitionKeyInvalid, partitionKeyPath)
					}

					options = append(options, cosmos.NewPartitionKeys(value))
				}

				builder.AddUpsert(doc.ID(), doc, options...)
			}

			client, documents, err := documentsClient(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			results, err := cosmos.NewBatchExecutor(documents, concurrency).Execute(commandContext(cmd), builder.Build())

			var charge float64

			succeeded := 0

			for _, result := range results {
				if result.Success {
					succeeded++
				}

				if result.Response != nil {
					charge += cosmos.RequestCharge(result.Response.Headers)
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d documents (%.2f RU)\n", succeeded, len(results), charge)

			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding an array of documents")
	cmd.Flags().StringVar(&partitionKeyPath, "partition-key-path", "", "path of the partition key inside each document, e.g. /customer")
	cmd.Flags().IntVar(&concurrency, "concurrency", constants.DefaultConcurrencyLimit, "number of concurrent writes")

	_ = cmd.MarkFlagRequired("file")

	return cmd
}
