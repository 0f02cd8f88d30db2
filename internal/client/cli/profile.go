package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophauth/internal/authrpc"
)

const defaultPage = 20

func (a *App) Profile(ctx context.Context) error {
	p, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}
	a.printProfiles([]authrpc.Profile{*p})
	return nil
}

// parseRange reads optional [start] [end] arguments.
func parseRange(args []string) (start, end int, err error) {
	if len(args) > 0 {
		if start, err = strconv.Atoi(args[0]); err != nil {
			return 0, 0, fmt.Errorf("invalid start %q", args[0])
		}
	}
	end = start + defaultPage
	if len(args) > 1 {
		if end, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, fmt.Errorf("invalid end %q", args[1])
		}
	}
	return start, end, nil
}

func (a *App) ListUsers(ctx context.Context, args []string) error {
	var (
		users []authrpc.Profile
		err   error
	)
	if len(args) == 1 && args[0] == "all" {
		users, err = a.api.ListAllUsers(ctx)
	} else {
		start, end, perr := parseRange(args)
		if perr != nil {
			return perr
		}
		users, err = a.api.ListUsers(ctx, start, end)
	}
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No users")
		return nil
	}
	a.printProfiles(users)
	return nil
}

func (a *App) printProfiles(list []authrpc.Profile) {
	w := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tCONFIRMED\tROLES")
	for _, p := range list {
		name := strings.TrimSpace(p.Name + " " + p.Surname)
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", p.ID, p.Email, name, p.EmailConfirmed, strings.Join(p.Roles, ","))
	}
	_ = w.Flush()
}
