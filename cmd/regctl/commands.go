package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/application/orchestrators"
	"skykeen/internal/application/projections"
	"skykeen/internal/config"
	"skykeen/internal/domain/registration"
)

const usage = `usage:
  regctl list [-sort student_name|student_class|payment_verified|created_at] [-desc] [-pending]
  regctl show <id>
  regctl verify [-notes text] <id>
  regctl delete [-yes] <id>
`

var errUsage = errors.New("invalid usage")

type cli struct {
	cfg    config.Client
	stdin  io.Reader
	stdout io.Writer
}

// run signs in, executes one subcommand and signs out again.
func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	var exec command
	var err error
	switch cmd {
	case "list":
		exec, err = c.listCmd(rest)
	case "show":
		exec, err = c.showCmd(rest)
	case "verify":
		exec, err = c.verifyCmd(rest)
	case "delete":
		exec, err = c.deleteCmd(rest)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}

	api, actor, err := c.login(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = orchestrators.ExecuteLogout(context.WithoutCancel(ctx), orchestrators.LogoutInput{Actor: actor}, orchestrators.LogoutDeps{Backend: api})
	}()
	return exec(ctx, api, actor)
}

func (c *cli) login(ctx context.Context) (*backend.Client, orchestrators.Actor, error) {
	if c.cfg.AdminEmail == "" || c.cfg.AdminPassword == "" {
		return nil, orchestrators.Actor{}, errors.New("SKYKEEN_ADMIN_EMAIL and SKYKEEN_ADMIN_PASSWORD must be set")
	}
	api := backend.NewClient(c.cfg.APIBaseURL, backend.WithTimeout(c.cfg.BackendTimeout)).WithJar(backend.NewJar())
	res, err := orchestrators.ExecuteLogin(ctx, orchestrators.LoginInput{
		Email:     c.cfg.AdminEmail,
		Password:  c.cfg.AdminPassword,
		UserAgent: "regctl",
	}, orchestrators.LoginDeps{Backend: api})
	if err != nil {
		return nil, orchestrators.Actor{}, fmt.Errorf("login: %s", orchestrators.LoginMessage(err))
	}
	actor := orchestrators.Actor{Email: res.Email, UserAgent: "regctl"}
	if res.AdminID != 0 {
		actor.ID = strconv.Itoa(res.AdminID)
	}
	return api, actor, nil
}

// command runs against a signed-in client.
type command = func(ctx context.Context, api *backend.Client, actor orchestrators.Actor) error

func (c *cli) listCmd(args []string) (command, error) {
	fs := newFlagSet("list")
	sortKey := fs.String("sort", "", "column to sort by")
	desc := fs.Bool("desc", false, "sort descending")
	pending := fs.Bool("pending", false, "only registrations awaiting verification")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return nil, errUsage
	}

	var state registration.SortState
	if *sortKey != "" {
		key := registration.SortKey(*sortKey)
		if !slices.Contains(registration.SortableKeys, key) {
			return nil, fmt.Errorf("unknown sort column %q", *sortKey)
		}
		state = registration.SortState{Key: key, Dir: registration.Asc}
		if *desc {
			state.Dir = registration.Desc
		}
	}

	return func(ctx context.Context, api *backend.Client, _ orchestrators.Actor) error {
		res, err := projections.QueryGetRegistrationList(ctx, projections.GetRegistrationListQuery{
			Sort:        state,
			PendingOnly: *pending,
		}, projections.GetRegistrationListDeps{Backend: api})
		if err != nil {
			return errors.New(backend.UserMessage(err, "Failed to fetch registrations"))
		}
		renderList(c.stdout, res)
		return nil
	}, nil
}

func (c *cli) showCmd(args []string) (command, error) {
	fs := newFlagSet("show")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	id, err := idArg(fs)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, api *backend.Client, _ orchestrators.Actor) error {
		res, err := projections.QueryGetRegistrationDetail(ctx, projections.GetRegistrationDetailQuery{ID: id},
			projections.GetRegistrationDetailDeps{Backend: api})
		if err != nil {
			return errors.New(backend.UserMessage(err, "Failed to fetch registration details"))
		}
		renderDetail(c.stdout, res)
		return nil
	}, nil
}

func (c *cli) verifyCmd(args []string) (command, error) {
	fs := newFlagSet("verify")
	notes := fs.String("notes", "", "verification notes")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	id, err := idArg(fs)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, api *backend.Client, actor orchestrators.Actor) error {
		r, err := orchestrators.ExecuteVerifyPayment(ctx, orchestrators.VerifyPaymentInput{
			ID:    id,
			Notes: *notes,
			Actor: actor,
		}, orchestrators.VerifyPaymentDeps{Backend: api})
		switch {
		case errors.Is(err, registration.ErrAlreadyVerified):
			notice(c.stdout, "Registration %d is already verified.", id)
			return nil
		case err != nil:
			return errors.New(backend.UserMessage(err, "Failed to verify payment"))
		}
		success(c.stdout, "Payment verified for %s (#%d).", r.StudentName, id)
		return nil
	}, nil
}

func (c *cli) deleteCmd(args []string) (command, error) {
	fs := newFlagSet("delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	id, err := idArg(fs)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, api *backend.Client, actor orchestrators.Actor) error {
		confirmed := *yes || c.confirm(orchestrators.DeleteConfirmationPrompt)
		err := orchestrators.ExecuteDeleteRegistration(ctx, orchestrators.DeleteRegistrationInput{
			ID:        id,
			Confirmed: confirmed,
			Actor:     actor,
		}, orchestrators.DeleteRegistrationDeps{Backend: api})
		switch {
		case errors.Is(err, orchestrators.ErrNotConfirmed):
			notice(c.stdout, "Delete cancelled.")
			return nil
		case err != nil:
			return errors.New(backend.UserMessage(err, "Failed to delete registration"))
		}
		success(c.stdout, "Registration %d deleted.", id)
		return nil
	}, nil
}

// confirm asks a yes/no question on stdin. Anything but y or yes is a no.
func (c *cli) confirm(prompt string) bool {
	fmt.Fprintf(c.stdout, "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(c.stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func idArg(fs *flag.FlagSet) (int, error) {
	if fs.NArg() != 1 {
		return 0, errUsage
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid registration id %q", fs.Arg(0))
	}
	return id, nil
}
