// Command gruechat-admin manages user accounts in the relay database.
//
// Usage:
//
//	gruechat-admin [--db <path>] list                  list accounts
//	gruechat-admin [--db <path>] add    <user>         add account (prompts for password)
//	gruechat-admin [--db <path>] del    <user>         remove account
//	gruechat-admin [--db <path>] passwd <user>         reset password (prompts)
//	gruechat-admin [--db <path>] modes  <user> [spec]  show or change modes
//
// The modes spec uses the wire grammar (+o grants, -o revokes, bare
// letters grant) but is applied with operator privileges: any letter,
// including o, can be set here.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/gruenet/gruechat/internal/db"
	"github.com/gruenet/gruechat/internal/perm"
	"github.com/gruenet/gruechat/internal/user"
)

func main() {
	fs := flag.NewFlagSet("gruechat-admin", flag.ExitOnError)
	dbPath := fs.String("db", "./data/gruechat.db", "path to the relay database")
	fs.Usage = usage

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	args := fs.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	database, err := db.Open(*dbPath, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer database.Close()
	repo := user.NewRepo(database.DB)

	switch args[0] {
	case "list":
		err = cmdList(repo)

	case "add":
		err = withTarget(args, func(name string) error { return cmdAdd(repo, name) })

	case "del":
		err = withTarget(args, func(name string) error { return repo.Delete(name) })

	case "passwd":
		err = withTarget(args, func(name string) error { return cmdPasswd(repo, name) })

	case "modes":
		err = withTarget(args, func(name string) error { return cmdModes(repo, name, args[2:]) })

	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", args[0])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  gruechat-admin [--db <path>] list
  gruechat-admin [--db <path>] add    <user>
  gruechat-admin [--db <path>] del    <user>
  gruechat-admin [--db <path>] passwd <user>
  gruechat-admin [--db <path>] modes  <user> [spec]`)
}

func withTarget(args []string, fn func(name string) error) error {
	if len(args) < 2 {
		usage()
		return fmt.Errorf("missing username argument")
	}
	return fn(args[1])
}

func cmdList(repo *user.Repo) error {
	users, err := repo.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tMODES\tCALLS\tLAST SEEN")
	for _, u := range users {
		lastSeen := "never"
		if u.LastSeenAt != nil {
			lastSeen = u.LastSeenAt.Format("2006-01-02 15:04")
		}
		modes := u.Perms.String()
		if modes == "" {
			modes = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", u.Username, modes, u.TotalCalls, lastSeen)
	}
	return w.Flush()
}

func cmdAdd(repo *user.Repo, username string) error {
	if repo.Exists(username) {
		return fmt.Errorf("user %q already exists", username)
	}
	password, err := promptPassword()
	if err != nil {
		return err
	}
	if _, err := repo.Create(username, password); err != nil {
		return err
	}
	fmt.Printf("added %s\n", username)
	return nil
}

func cmdPasswd(repo *user.Repo, username string) error {
	if !repo.Exists(username) {
		return fmt.Errorf("no such user %q", username)
	}
	password, err := promptPassword()
	if err != nil {
		return err
	}
	if err := repo.UpdatePassword(username, password); err != nil {
		return err
	}
	fmt.Printf("password updated for %s\n", username)
	return nil
}

func cmdModes(repo *user.Repo, username string, specs []string) error {
	u, err := repo.GetByUsername(username)
	if err != nil {
		return fmt.Errorf("no such user %q", username)
	}

	if len(specs) > 0 {
		u.Perms.Apply(perm.ParseModes(strings.Join(specs, "")))
		if err := repo.UpdateModes(username, u.Perms.String()); err != nil {
			return err
		}
	}

	granted := u.Perms.String()
	if granted == "" {
		granted = "(none)"
	}
	grantable := u.Perms.Grantable()
	if grantable == "" {
		grantable = "(none)"
	}
	fmt.Printf("%s: modes %s, may grant %s\n", username, granted, grantable)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Print("Again: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(first), nil
}
