// Command ledgerctl runs operator tasks directly against the ledger
// database: balance and history lookups, adjustments, reconciliation and
// admin management.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amirasaad/ledger/infra/initializer"
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	adminsvc "github.com/amirasaad/ledger/pkg/service/admin"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

const usage = `Usage: ledgerctl <command> [arguments]
Commands:
  balance <account_id>
  entries <account_id> [limit]
  adjust <account_id|email> <delta> [reason]
  reconcile <account_id>
  grant-admin <email>
  revoke-admin <email>
  create-admin <username> <email>`

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		return
	}

	cfg, err := config.Load(".env")
	if err != nil {
		errColor.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		errColor.Fprintln(os.Stderr, "Failed to connect:", err)
		os.Exit(1)
	}

	c := &cli{
		app:      app.New(deps.ToAppDeps(), cfg),
		out:      os.Stdout,
		password: terminalPassword,
	}
	err = c.run(context.Background(), os.Args[1:])
	_ = deps.Close()
	if err != nil {
		errColor.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type cli struct {
	app      *app.App
	out      io.Writer
	password func(prompt string) (string, error)
}

var errUsage = errors.New("invalid arguments")

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(c.out, usage)
		return errUsage
	}
	switch args[0] {
	case "balance":
		if len(args) < 2 {
			return c.usage("balance <account_id>")
		}
		return c.balance(ctx, args[1])
	case "entries":
		if len(args) < 2 {
			return c.usage("entries <account_id> [limit]")
		}
		limit := 0
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[2], err)
			}
			limit = n
		}
		return c.entries(ctx, args[1], limit)
	case "adjust":
		if len(args) < 3 {
			return c.usage("adjust <account_id|email> <delta> [reason]")
		}
		reason := ""
		if len(args) > 3 {
			reason = args[3]
		}
		return c.adjust(ctx, args[1], args[2], reason)
	case "reconcile":
		if len(args) < 2 {
			return c.usage("reconcile <account_id>")
		}
		return c.reconcile(ctx, args[1])
	case "grant-admin", "revoke-admin":
		if len(args) < 2 {
			return c.usage(args[0] + " <email>")
		}
		return c.setAdmin(ctx, args[1], args[0] == "grant-admin")
	case "create-admin":
		if len(args) < 3 {
			return c.usage("create-admin <username> <email>")
		}
		return c.createAdmin(ctx, args[1], args[2])
	default:
		fmt.Fprintln(c.out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (c *cli) usage(line string) error {
	fmt.Fprintln(c.out, "Usage: ledgerctl", line)
	return errUsage
}

func parseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid account id %q", raw)
	}
	return id, nil
}

func (c *cli) balance(ctx context.Context, raw string) error {
	id, err := parseAccountID(raw)
	if err != nil {
		return err
	}
	bal, err := c.app.LedgerService.GetBalance(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Account %s balance: %s\n", id, okColor.Sprint(bal.StringFixed(ledger.Scale)))
	return nil
}

func (c *cli) entries(ctx context.Context, raw string, limit int) error {
	id, err := parseAccountID(raw)
	if err != nil {
		return err
	}
	page, err := c.app.LedgerService.ListEntries(ctx, id, "", limit)
	if err != nil {
		return err
	}
	if len(page.Entries) == 0 {
		warnColor.Fprintln(c.out, "No entries")
		return nil
	}
	for _, e := range page.Entries {
		delta := e.Delta.StringFixed(ledger.Scale)
		if e.Delta.IsPositive() {
			delta = okColor.Sprint("+" + delta)
		} else {
			delta = errColor.Sprint(delta)
		}
		fmt.Fprintf(c.out, "%6d  %s  %12s  %12s  %s\n",
			e.Sequence,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			delta,
			e.BalanceAfter.StringFixed(ledger.Scale),
			e.Reason,
		)
	}
	if page.NextCursor != "" {
		warnColor.Fprintf(c.out, "More entries after sequence %s\n", page.NextCursor)
	}
	return nil
}

func (c *cli) adjust(ctx context.Context, target, rawDelta, reason string) error {
	delta, err := decimal.NewFromString(rawDelta)
	if err != nil {
		return fmt.Errorf("invalid delta %q: %w", rawDelta, err)
	}
	res, err := c.app.AdminService.AdjustAsOperator(ctx, adminsvc.AdjustRequest{
		Target:         target,
		Delta:          delta,
		Reason:         reason,
		IdempotencyKey: "ledgerctl-" + uuid.NewString(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Entry %s recorded on account %s. New balance: %s\n",
		res.Entry.ID,
		res.Entry.AccountID,
		okColor.Sprint(res.Entry.BalanceAfter.StringFixed(ledger.Scale)),
	)
	return nil
}

func (c *cli) reconcile(ctx context.Context, raw string) error {
	id, err := parseAccountID(raw)
	if err != nil {
		return err
	}
	rec, err := c.app.LedgerService.Reconcile(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Balance:      %s\n", rec.Balance.StringFixed(ledger.Scale))
	fmt.Fprintf(c.out, "Sum(deltas):  %s\n", rec.Sum.StringFixed(ledger.Scale))
	fmt.Fprintf(c.out, "Last balance: %s\n", rec.LastBalance.StringFixed(ledger.Scale))
	fmt.Fprintf(c.out, "Entries:      %d (version %d)\n", rec.Entries, rec.Version)
	if !rec.Consistent {
		errColor.Fprintln(c.out, "INCONSISTENT")
		return errors.New("ledger is inconsistent")
	}
	okColor.Fprintln(c.out, "Consistent")
	return nil
}

func (c *cli) setAdmin(ctx context.Context, email string, isAdmin bool) error {
	acct, err := c.app.AdminService.GrantAdmin(ctx, email, isAdmin)
	if err != nil {
		return err
	}
	state := "revoked"
	if acct.IsAdmin {
		state = "granted"
	}
	fmt.Fprintf(c.out, "Admin %s for %s (account %s)\n", okColor.Sprint(state), email, acct.ID)
	return nil
}

func (c *cli) createAdmin(ctx context.Context, username, email string) error {
	password, err := c.password("Password: ")
	if err != nil {
		return err
	}
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	reg, err := c.app.UserService.CreateAdmin(ctx, username, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Admin %s created with account %s\n", okColor.Sprint(reg.User.Username), reg.Account.ID)
	return nil
}

// terminalPassword reads a password without echo when stdin is a terminal
// and falls back to a plain line otherwise.
func terminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
