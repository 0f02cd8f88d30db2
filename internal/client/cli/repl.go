package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

type command struct {
	usage string
	auth  bool
	run   func(ctx context.Context, args []string) error
}

func (a *App) commands() map[string]command {
	return map[string]command{
		"register": {usage: "register", run: func(ctx context.Context, _ []string) error { return a.Register(ctx) }},
		"login":    {usage: "login", run: func(ctx context.Context, _ []string) error { return a.Login(ctx) }},
		"confirm": {usage: "confirm <userid> <token>", run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return errUsage
			}
			return a.ConfirmEmail(ctx, args[0], args[1])
		}},
		"forgot":    {usage: "forgot [email]", run: a.ForgotPassword},
		"reset":     {usage: "reset", run: func(ctx context.Context, _ []string) error { return a.ResetPassword(ctx) }},
		"resend":    {usage: "resend [email]", run: a.ResendConfirmation},
		"logout":    {usage: "logout", auth: true, run: func(ctx context.Context, _ []string) error { return a.Logout(ctx) }},
		"logoutall": {usage: "logoutall", auth: true, run: func(ctx context.Context, _ []string) error { return a.LogoutAll(ctx) }},
		"profile":   {usage: "profile", auth: true, run: func(ctx context.Context, _ []string) error { return a.Profile(ctx) }},
		"users":     {usage: "users [start] [end] | users all", auth: true, run: a.ListUsers},
	}
}

var errUsage = errors.New("wrong arguments")

func (a *App) prompt() string {
	s := string(a.Mode())
	if a.email != "" {
		s = a.email + " " + s
	}
	s = strings.TrimSpace(s)
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return "authctl " + s + "> "
}

func (a *App) help(cmds map[string]command) {
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if c.auth && !a.isLoggedIn() {
			continue
		}
		names = append(names, c.usage)
	}
	sort.Strings(names)
	fmt.Fprintln(a.out, "Available commands:")
	for _, n := range names {
		fmt.Fprintln(a.out, "  "+n)
	}
	fmt.Fprintln(a.out, "  help, exit")
}

// Root runs the read-eval loop until exit or end of input.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "gophauth CLI (type 'help' for commands)")
	cmds := a.commands()

	for {
		fmt.Fprint(a.out, a.prompt())
		line, err := a.reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		case "help":
			a.help(cmds)
			continue
		}

		c, ok := cmds[name]
		if !ok {
			fmt.Fprintln(a.out, "Unknown command:", name)
			continue
		}
		if c.auth && !a.isLoggedIn() {
			fmt.Fprintln(a.out, "Please log in first")
			continue
		}

		if err := c.run(ctx, args); err != nil {
			if errors.Is(err, errUsage) {
				fmt.Fprintln(a.out, "Usage:", c.usage)
				continue
			}
			fmt.Fprintln(a.out, "Error:", err)
		}
	}
}
