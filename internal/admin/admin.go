// Package admin implements the ledgeradmin maintenance commands: account
// bootstrap, offline ingestion, schema migration and ledger reset.
package admin

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/ledger"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// Runtime is what the commands operate on once connected.
type Runtime struct {
	Service *core.Service
	Migrate func(ctx context.Context) error
	Close   func()
}

// Connector opens a Runtime. Commands call it only after their flags
// parsed, so -help never needs a database.
type Connector func(ctx context.Context) (*Runtime, error)

// Commands returns every ledgeradmin command writing to out.
func Commands(connect Connector, out io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&addUserCmd{connect: connect, out: out},
		&usersCmd{connect: connect, out: out},
		&ingestCmd{connect: connect, out: out},
		&migrateCmd{connect: connect, out: out},
		&resetCmd{connect: connect, out: out},
	}
}

// run connects, calls fn and reports its error on stderr.
func run(ctx context.Context, connect Connector, fn func(*Runtime) error) subcommands.ExitStatus {
	rt, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if rt.Close != nil {
		defer rt.Close()
	}
	if err := fn(rt); err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// cliAdmin is the caller for admin-only operations started from the shell.
var cliAdmin = auth.Principal{Name: "ledgeradmin", Role: auth.RoleAdmin}

type addUserCmd struct {
	connect Connector
	out     io.Writer

	name, email, password, role string
	department, position        string
}

func (*addUserCmd) Name() string     { return "adduser" }
func (*addUserCmd) Synopsis() string { return "create an active account, bypassing registration" }
func (*addUserCmd) Usage() string {
	return `ledgeradmin adduser -name <name> -email <email> -password <password> [-role admin]

  Creates an account directly. Use it to create the first administrator.
`
}

func (c *addUserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Full name.")
	f.StringVar(&c.email, "email", "", "Login email.")
	f.StringVar(&c.password, "password", "", "Initial password.")
	f.StringVar(&c.role, "role", string(auth.RoleAdmin), "Role of the account.")
	f.StringVar(&c.department, "department", "", "Department (optional).")
	f.StringVar(&c.position, "position", "", "Position (optional).")
}

func (c *addUserCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.connect, func(rt *Runtime) error {
		u, err := rt.Service.BootstrapUser(ctx, core.NewUser{
			Name:       c.name,
			Email:      c.email,
			Password:   c.password,
			Role:       c.role,
			Department: c.department,
			Position:   c.position,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "created %s <%s> as %s (%s)\n", u.Name, u.Email, u.Role, u.ID)
		return nil
	})
}

type usersCmd struct {
	connect Connector
	out     io.Writer
}

func (*usersCmd) Name() string     { return "users" }
func (*usersCmd) Synopsis() string { return "list accounts" }
func (*usersCmd) Usage() string    { return "ledgeradmin users\n" }

func (*usersCmd) SetFlags(*flag.FlagSet) {}

func (c *usersCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.connect, func(rt *Runtime) error {
		users, err := rt.Service.ListUsers(ctx, cliAdmin)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EMAIL\tNAME\tROLE\tACTIVE\tLAST LOGIN")
		for _, u := range users {
			last := "never"
			if u.LastLogin != nil {
				last = u.LastLogin.Format(time.DateTime)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", u.Email, u.Name, u.Role, u.IsActive, last)
		}
		return tw.Flush()
	})
}

type ingestCmd struct {
	connect Connector
	out     io.Writer

	as string
}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "ingest ledger CSV files from disk" }
func (*ingestCmd) Usage() string {
	return `ledgeradmin ingest -as <email> <file.csv>...

  Runs the upload pipeline on each file, attributing the entries to the
  account given by -as. The upload concurrency limit does not apply.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.as, "as", "", "Email of the account the upload is attributed to.")
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.as == "" || f.NArg() == 0 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	return run(ctx, c.connect, func(rt *Runtime) error {
		p, err := rt.Service.PrincipalByEmail(ctx, c.as)
		if err != nil {
			return err
		}
		for _, path := range f.Args() {
			report, err := ingestPath(ctx, rt.Service, p.ID, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(c.out, "%s: %s\n", path, report.Summary())
			for _, rej := range report.Errors {
				if rej.Line > 0 {
					fmt.Fprintf(c.out, "  line %d: %s\n", rej.Line, rej.Reason)
				} else {
					fmt.Fprintf(c.out, "  %s: %s\n", rej.Date, rej.Reason)
				}
			}
		}
		return nil
	})
}

func ingestPath(ctx context.Context, svc *core.Service, uploadedBy uuid.UUID, path string) (*ledger.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return svc.IngestFile(ctx, uploadedBy, filepath.Base(path), f)
}

type migrateCmd struct {
	connect Connector
	out     io.Writer
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply the database schema" }
func (*migrateCmd) Usage() string    { return "ledgeradmin migrate\n" }

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.connect, func(rt *Runtime) error {
		if err := rt.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "schema up to date")
		return nil
	})
}

type resetCmd struct {
	connect Connector
	out     io.Writer

	yes bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "delete every ledger entry" }
func (*resetCmd) Usage() string {
	return `ledgeradmin reset -yes

  Deletes all ledger entries. Accounts and registration requests are kept.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Confirm the deletion.")
}

func (c *resetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "refusing to reset without -yes")
		return subcommands.ExitUsageError
	}
	return run(ctx, c.connect, func(rt *Runtime) error {
		ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
		defer cancel()
		n, err := rt.Service.ResetLedger(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "deleted %d ledger entries\n", n)
		return nil
	})
}
