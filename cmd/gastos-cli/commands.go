package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"gastos/internal/backend"
	"gastos/internal/cli"
	"gastos/internal/config"
	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/session"
	"gastos/internal/tui"
)

// formRunner runs an interactive form; tests swap it for a fake.
type formRunner func(ctx context.Context, f *huh.Form) error

func defaultRunner(ctx context.Context, f *huh.Form) error {
	return f.RunWithContext(ctx)
}

// app is what every subcommand works on, opened in PersistentPreRunE.
type app struct {
	cfg     *config.Config
	ledger  *services.LedgerService
	session string
	cleanup backend.CleanupFunc
	forms   formRunner

	// fromProfile is set when session came from, or was saved to, the profile.
	fromProfile bool

	// flags
	dbPath      string
	sessionFlag string
	verbose     bool
}

// execute runs the command line and closes whatever the command opened,
// also when it failed.
func execute(forms formRunner, args []string, out io.Writer) error {
	root, a := newRootCmd(forms)
	if args != nil {
		root.SetArgs(args)
	}
	if out != nil {
		root.SetOut(out)
	}
	err := root.Execute()
	return errors.Join(err, a.close())
}

func newRootCmd(forms formRunner) (*cobra.Command, *app) {
	a := &app{forms: forms}

	root := &cobra.Command{
		Use:           "gastos-cli",
		Short:         "Planificador de gastos en la terminal",
		Long:          "Define a budget, record expenses against it and see what is left.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
		RunE: a.runList,
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database (default SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&a.sessionFlag, "session", "", "Ledger session id (default GASTOS_SESSION or the saved one)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		a.budgetCmd(),
		a.addCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.listCmd(),
		a.filterCmd(),
		a.resetCmd(),
		a.forgetCmd(),
	)
	return root, a
}

func (a *app) open(ctx context.Context, logOut io.Writer) error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg := config.Load()
	profile, err := config.LoadProfile()
	if err != nil {
		return err
	}
	profile.Apply(cfg)
	// The terminal ledger must survive between invocations.
	cfg.DataBackend = config.BackendSQLite
	if a.dbPath != "" {
		cfg.SQLiteDBPath = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger := cli.SetupLogger(level, logOut)

	id, err := a.resolveSession(profile)
	if err != nil {
		return err
	}
	a.session = id

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	data, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	a.cleanup = data.Cleanup

	manager, err := cli.NewSessionManager(cfg, data.Store, logger)
	if err != nil {
		return err
	}
	a.ledger = services.NewLedgerService(manager, data.Publisher, nil, logger.WithComponent(log.ComponentCLI))
	return nil
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	cleanup := a.cleanup
	a.cleanup = nil
	return cleanup()
}

// resolveSession picks the session id from the flag, the environment or the
// profile, saving a new one to the profile on first use.
func (a *app) resolveSession(profile config.Profile) (string, error) {
	id := a.sessionFlag
	if id == "" {
		id = os.Getenv("GASTOS_SESSION")
	}
	if id != "" {
		if !session.ValidID(id) {
			return "", fmt.Errorf("%w: %q", session.ErrInvalidID, id)
		}
		return id, nil
	}

	a.fromProfile = true
	if session.ValidID(profile.Ledger.Session) {
		return profile.Ledger.Session, nil
	}
	profile.Ledger.Session = session.NewID()
	if err := config.SaveProfile(profile); err != nil {
		return "", fmt.Errorf("save session id: %w", err)
	}
	return profile.Ledger.Session, nil
}

func (a *app) state(ctx context.Context) (ledger.State, error) {
	return a.ledger.State(ctx, a.session)
}

func (a *app) print(cmd *cobra.Command, st ledger.State, notice string) {
	out := cmd.OutOrStdout()
	if notice != "" {
		fmt.Fprintln(out, tui.RenderSuccess(notice))
	}
	fmt.Fprintln(out, tui.RenderSummary(st, a.cfg.CurrencySymbol))
	if st.HasBudget() {
		fmt.Fprintln(out, tui.RenderList(st, a.cfg.CurrencySymbol))
	}
}

func (a *app) runList(cmd *cobra.Command, _ []string) error {
	st, err := a.state(cmd.Context())
	if err != nil {
		return err
	}
	a.print(cmd, st, "")
	return nil
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the budget and the expenses",
		Args:    cobra.NoArgs,
		RunE:    a.runList,
	}
}

func (a *app) budgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budget [amount]",
		Short: "Define the budget",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 1 {
				raw = args[0]
			} else if err := a.forms(cmd.Context(), tui.BudgetForm(&raw)); err != nil {
				return err
			}
			res, err := a.ledger.DefineBudget(cmd.Context(), a.session, raw)
			if err != nil {
				return err
			}
			a.print(cmd, res.After, "Presupuesto definido")
			return nil
		},
	}
}

type expenseFlags struct {
	name, amount, category, date string
	interactive                  bool
}

func (f *expenseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Nombre del gasto")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Cantidad, e.g. 300 or 12,50")
	cmd.Flags().StringVar(&f.category, "category", "", "Category id or name")
	cmd.Flags().StringVar(&f.date, "date", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "Fill the expense in a form")
}

// apply overlays the flags that were given on sub.
func (f *expenseFlags) apply(sub *ledger.Submission) {
	if f.name != "" {
		sub.Name = f.name
	}
	if f.amount != "" {
		sub.Amount = f.amount
	}
	if f.category != "" {
		sub.Category = resolveCategory(f.category)
	}
	if f.date != "" {
		sub.Date = f.date
	}
}

func (f *expenseFlags) incomplete() bool {
	return f.name == "" || f.amount == "" || f.category == ""
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (a *app) addCmd() *cobra.Command {
	var f expenseFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sub := ledger.Submission{Date: core.Today().ISO()}
			f.apply(&sub)
			if f.interactive || (f.incomplete() && isTerminal(os.Stdin)) {
				if err := a.forms(cmd.Context(), tui.ExpenseForm(&sub)); err != nil {
					return err
				}
			}
			res, err := a.ledger.Submit(cmd.Context(), a.session, sub)
			if err != nil {
				return err
			}
			a.print(cmd, res.After, "Gasto registrado")
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var f expenseFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a recorded expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.state(ctx)
			if err != nil {
				return err
			}
			id, err := resolveID(st, args[0])
			if err != nil {
				return err
			}
			res, err := a.ledger.StartEdit(ctx, a.session, id)
			if err != nil {
				return err
			}
			e, _ := res.After.Editing()
			sub := ledger.Submission{
				ID:       e.ID,
				Name:     e.Name,
				Amount:   e.Amount.Decimal(),
				Category: e.Category,
				Date:     e.Date.ISO(),
			}
			f.apply(&sub)

			// Leave the ledger out of edit mode whatever happens next.
			submitted := false
			defer func() {
				if !submitted {
					_, _ = a.ledger.CancelEdit(context.WithoutCancel(ctx), a.session)
				}
			}()

			if f.interactive {
				if err := a.forms(ctx, tui.ExpenseForm(&sub)); err != nil {
					return err
				}
			}
			res, err = a.ledger.Submit(ctx, a.session, sub)
			if err != nil {
				return err
			}
			submitted = true
			a.print(cmd, res.After, "Gasto actualizado")
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.state(cmd.Context())
			if err != nil {
				return err
			}
			id, err := resolveID(st, args[0])
			if err != nil {
				return err
			}
			if ok, err := a.confirm(cmd.Context(), yes, "¿Eliminar este gasto?"); err != nil || !ok {
				return err
			}
			res, err := a.ledger.Delete(cmd.Context(), a.session, id)
			if err != nil {
				return err
			}
			a.print(cmd, res.After, "Gasto eliminado")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) filterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filter [category]",
		Short: "Show only one category; without argument show all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var category string
			if len(args) == 1 {
				category = resolveCategory(args[0])
			}
			res, err := a.ledger.Filter(cmd.Context(), a.session, category)
			if err != nil {
				return err
			}
			a.print(cmd, res.After, "")
			return nil
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every expense and restore the initial budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ok, err := a.confirm(cmd.Context(), yes, "¿Seguro que quieres reiniciar la aplicación?"); err != nil || !ok {
				return err
			}
			res, err := a.ledger.Reset(cmd.Context(), a.session)
			if err != nil {
				return err
			}
			a.print(cmd, res.After, "Aplicación reiniciada")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// forgetCmd deletes the saved ledger. A session kept in the profile is
// cleared there too, so the next command starts a new one.
func (a *app) forgetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete the saved ledger of this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ok, err := a.confirm(cmd.Context(), yes, "¿Borrar el presupuesto guardado de esta sesión?"); err != nil || !ok {
				return err
			}
			if err := a.ledger.Forget(cmd.Context(), a.session); err != nil {
				return err
			}
			if a.fromProfile {
				profile, err := config.LoadProfile()
				if err != nil {
					return err
				}
				profile.Ledger.Session = ""
				if err := config.SaveProfile(profile); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSuccess("Sesión olvidada"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) confirm(ctx context.Context, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	ok := false
	if err := a.forms(ctx, tui.ConfirmForm(question, &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

var errAmbiguousID = errors.New("ambiguous expense id")

// resolveID accepts a full expense id or a unique prefix of one, as shown by list.
func resolveID(st ledger.State, prefix string) (string, error) {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), "*")
	if _, ok := st.Find(prefix); ok {
		return prefix, nil
	}
	var match string
	for _, e := range st.Expenses {
		if prefix != "" && strings.HasPrefix(e.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w: %s", errAmbiguousID, prefix)
			}
			match = e.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ledger.ErrExpenseNotFound, prefix)
	}
	return match, nil
}

// resolveCategory maps a category name to its id. Unknown values are passed
// through so that validation reports them.
func resolveCategory(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := core.CategoryByID(s); ok {
		return s
	}
	for _, c := range core.Categories {
		if strings.EqualFold(c.Name, s) {
			return c.ID
		}
	}
	return s
}
