// Command fuda manages a scope-aware markdown article vault: a local vault
// rooted at the nearest .fuda marker plus a global vault under the home
// directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/corvid-labs/fuda/internal/apperr"
	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/linker"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/search"
	"github.com/corvid-labs/fuda/internal/storage"
)

// env bundles the shared dependencies behind every subcommand.
type env struct {
	store  storage.Provider
	scopes *scope.Resolver
	svc    *article.Service
	engine *search.Engine
}

func newEnv() (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	store := storage.NewFS()
	scopes, err := scope.New(store, cwd, home)
	if err != nil {
		return nil, err
	}
	idx := index.NewRepo(store, scopes)
	links := linker.NewRepo(store, scopes)
	svc := article.NewService(store, scopes, idx, links)
	return &env{
		store:  store,
		scopes: scopes,
		svc:    svc,
		engine: search.NewEngine(store, idx),
	}, nil
}

func scopeFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "scope",
		Aliases: []string{"s"},
		Usage:   "Scope selector: local, global, or all (default: auto)",
	}
}

func selectorOf(cmd *cli.Command) (scope.Selector, error) {
	return scope.ParseSelector(cmd.String("scope"))
}

func main() {
	root := &cli.Command{
		Name:  "fuda",
		Usage: "Scope-aware markdown article vault with wiki-links and full-text search",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit machine-readable JSON output",
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			createCommand(),
			readCommand(),
			editCommand(),
			deleteCommand(),
			listCommand(),
			searchCommand(),
			linksCommand(),
			backlinksCommand(),
			reindexCommand(),
			templateCommand(),
			vaultCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		exitWithError(err, jsonRequested(os.Args))
	}
}

// jsonRequested scans raw args so error rendering honors --json even when
// flag parsing itself failed.
func jsonRequested(args []string) bool {
	for _, a := range args {
		if a == "--json" {
			return true
		}
	}
	return false
}

func exitWithError(err error, asJSON bool) {
	code := apperr.ExitGeneral
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		code = appErr.ExitCode()
	}
	printError(err, asJSON)
	os.Exit(code)
}
