package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/davidelias/django-firebird/internal/config"
	"github.com/davidelias/django-firebird/internal/database/firebird"
	"github.com/davidelias/django-firebird/internal/ddl"
	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/logger"
	"github.com/davidelias/django-firebird/internal/schema"
	"github.com/davidelias/django-firebird/internal/server"
)

type options struct {
	configFile string
	schemaFile string
	params     int
	existing   []string
	useCatalog bool
	addr       string
	columns    bool
}

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:           "fbdialect",
		Short:         "Firebird dialect tools",
		Long:          `Preview placeholder rewriting and DDL for Firebird, inspect a database, or serve the admin API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&o.configFile, "config", "c", "", "config file (YAML)")

	rewriteCmd := &cobra.Command{
		Use:   "rewrite <sql>",
		Short: "Rewrite %s placeholders to ?",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := o.params
			if n < 0 {
				n = dialect.CountPlaceholders(args[0])
			}
			q, err := dialect.Rewrite(args[0], n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), q)
			return nil
		},
	}
	rewriteCmd.Flags().IntVarP(&o.params, "params", "n", -1, "parameter count (default: count the placeholders)")

	ddlCmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print CREATE statements for a schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, o)
		},
	}
	ddlCmd.Flags().StringVarP(&o.schemaFile, "schema", "s", "", "schema description file (YAML)")
	ddlCmd.Flags().StringSliceVar(&o.existing, "existing", nil, "tables that already exist")
	ddlCmd.Flags().BoolVar(&o.useCatalog, "catalog", false, "read existing tables from the configured database")
	_ = ddlCmd.MarkFlagRequired("schema")

	dropCmd := &cobra.Command{
		Use:   "drop",
		Short: "Print DROP statements for a schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := schema.LoadFile(o.schemaFile)
			if err != nil {
				return err
			}
			stmts, err := ddl.DropAll(tables)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ddl.Script(stmts))
			return nil
		},
	}
	dropCmd.Flags().StringVarP(&o.schemaFile, "schema", "s", "", "schema description file (YAML)")
	_ = dropCmd.MarkFlagRequired("schema")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show server version, charset, tables and generators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, o)
		},
	}
	inspectCmd.Flags().BoolVar(&o.columns, "columns", false, "also list every table's columns and the foreign keys")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o)
		},
	}
	serveCmd.Flags().StringVar(&o.addr, "addr", "", "listen address (overrides server.addr)")

	root.AddCommand(rewriteCmd, ddlCmd, dropCmd, inspectCmd, serveCmd)
	return root
}

func runCreate(cmd *cobra.Command, o *options) error {
	tables, err := schema.LoadFile(o.schemaFile)
	if err != nil {
		return err
	}

	existing := map[string]bool{}
	for _, name := range o.existing {
		existing[name] = true
	}
	if o.useCatalog {
		conn, _, err := connect(o)
		if err != nil {
			return err
		}
		defer conn.Close()
		for _, t := range tables {
			ok, err := conn.TableExists(cmd.Context(), t.Name)
			if err != nil {
				return err
			}
			if ok {
				existing[t.Name] = true
			}
		}
		// Referenced tables outside the file may exist too.
		for _, ref := range referencedTables(tables) {
			if existing[ref] {
				continue
			}
			ok, err := conn.TableExists(cmd.Context(), ref)
			if err != nil {
				return err
			}
			existing[ref] = ok
		}
	}

	toCreate := make([]schema.Table, 0, len(tables))
	for _, t := range tables {
		if o.useCatalog && existing[t.Name] {
			fmt.Fprintf(cmd.ErrOrStderr(), "-- %s exists, skipped\n", t.Name)
			continue
		}
		toCreate = append(toCreate, t)
	}

	plan, err := ddl.CreateAll(toCreate, existing)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), ddl.Script(plan.Statements))
	for _, ref := range plan.Unresolved {
		fmt.Fprintf(cmd.ErrOrStderr(), "-- unresolved reference %s.%s -> %s.%s\n", ref.Table, ref.Column, ref.RefTable, ref.RefColumn)
	}
	return nil
}

func runInspect(cmd *cobra.Command, o *options) error {
	conn, _, err := connect(o)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := cmd.Context()
	version, err := conn.ServerVersion(ctx)
	if err != nil {
		return err
	}
	tables, err := conn.ListTables(ctx)
	if err != nil {
		return err
	}
	gens, err := conn.ListGenerators(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "server:     %s\n", version)
	fmt.Fprintf(out, "charset:    %s\n", conn.Charset().Name)
	fmt.Fprintf(out, "tables:     %s\n", strings.Join(tables, ", "))
	fmt.Fprintf(out, "generators: %s\n", strings.Join(gens, ", "))
	if !o.columns {
		return nil
	}

	info, err := schema.Inspect(ctx, conn)
	if err != nil {
		return err
	}
	printInfo(out, info)
	return nil
}

func printInfo(out io.Writer, info *schema.Info) {
	for _, t := range info.Tables {
		fmt.Fprintf(out, "\n%s\n", t.Name)
		for _, c := range t.Columns {
			var flags []string
			if c.PrimaryKey {
				flags = append(flags, "PK")
			}
			if c.Unique {
				flags = append(flags, "UNIQUE")
			}
			if !c.Nullable {
				flags = append(flags, "NOT NULL")
			}
			if c.Default != nil {
				flags = append(flags, "DEFAULT "+*c.Default)
			}
			fmt.Fprintf(out, "  %-31s %-20s %s\n", c.Name, columnType(c), strings.Join(flags, " "))
		}
	}
	if len(info.ForeignKeys) > 0 {
		fmt.Fprintln(out, "\nforeign keys")
		for _, fk := range info.ForeignKeys {
			fmt.Fprintf(out, "  %s.%s -> %s.%s (%s)\n", fk.FromTable, fk.FromColumn, fk.ToTable, fk.ToColumn, fk.Name)
		}
	}
}

func columnType(c schema.ColumnInfo) string {
	switch {
	case c.Precision != nil:
		return fmt.Sprintf("%s(%d, %d)", c.DataType, *c.Precision, c.Scale)
	case c.Length != nil && (c.DataType == "VARCHAR" || c.DataType == "CHAR"):
		return fmt.Sprintf("%s(%d)", c.DataType, *c.Length)
	}
	return c.DataType
}

func runServe(cmd *cobra.Command, o *options) error {
	conn, cfg, err := connect(o)
	if err != nil {
		return err
	}
	defer conn.Close()

	addr := cfg.Server.Addr
	if o.addr != "" {
		addr = o.addr
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(addr,
		server.WithPinger(conn),
		server.WithCatalog(conn),
		server.WithLogger(logger.Global()),
	).Run(ctx)
}

// connect loads the configuration, installs its logger and returns an
// unconnected Conn.
func connect(o *options) (*firebird.Conn, *config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	logger.SetGlobal(cfg.Log.Logger())

	conn, err := firebird.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return conn, cfg, nil
}

func referencedTables(tables []schema.Table) []string {
	var refs []string
	for _, t := range tables {
		for _, c := range t.Columns {
			if c.References != nil {
				refs = append(refs, c.References.Table)
			}
		}
	}
	return lo.Uniq(refs)
}
