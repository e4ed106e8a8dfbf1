package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/corvid-labs/fuda/internal/article"
	"github.com/corvid-labs/fuda/internal/index"
	"github.com/corvid-labs/fuda/internal/mcpserver"
	"github.com/corvid-labs/fuda/internal/scope"
	"github.com/corvid-labs/fuda/internal/search"
	"github.com/corvid-labs/fuda/internal/server"
	pkgconfig "github.com/corvid-labs/fuda/pkg/config"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a scope (a .fuda marker here, or the global root)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "global", Aliases: []string{"g"}, Usage: "Initialize the global scope instead of a local one"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			var root string
			var s scope.Scope
			if cmd.Bool("global") {
				root, err = e.scopes.EnsureGlobalScope()
				s = scope.Global
			} else {
				root, err = e.scopes.InitLocalScope()
				s = scope.Local
			}
			if err != nil {
				return err
			}
			return emit(cmd, map[string]string{"scope": string(s), "root": root}, func() {
				fmt.Printf("initialized %s scope at %s\n", s, root)
			})
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new article",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			scopeFlag(),
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Folder inside the vault"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag (repeatable)"},
			&cli.StringFlag{Name: "template", Usage: "Template name (default: note)"},
			&cli.StringFlag{Name: "slug", Usage: "Explicit slug (default: derived from title)"},
			&cli.StringFlag{Name: "body", Usage: "Markdown body (default: expanded template)"},
			&cli.BoolFlag{Name: "draft", Usage: "Mark the article as a draft"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			title := cmd.Args().First()
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}
			art, warnings, err := e.svc.Create(title, article.CreateOptions{
				Folder:   cmd.String("folder"),
				Tags:     cmd.StringSlice("tag"),
				Template: cmd.String("template"),
				Scope:    sel,
				Slug:     cmd.String("slug"),
				Body:     cmd.String("body"),
				Draft:    cmd.Bool("draft"),
			})
			if err != nil {
				return err
			}
			printWarnings(warnings)
			return emit(cmd, map[string]any{"article": art, "warnings": warnings}, func() {
				fmt.Printf("created %s:%s (%s)\n", art.Scope, art.Meta.Slug, art.Meta.FilePath)
			})
		},
	}
}

func readCommand() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Read an article by slug, folder/slug, title, or alias",
		ArgsUsage: "<identifier>",
		Flags:     []cli.Flag{scopeFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}
			art, err := e.svc.Read(cmd.Args().First(), sel)
			if err != nil {
				return err
			}
			return emit(cmd, art, func() { printArticle(art) })
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Update an article's metadata or body",
		ArgsUsage: "<identifier>",
		Flags: []cli.Flag{
			scopeFlag(),
			&cli.StringFlag{Name: "title", Usage: "New title"},
			&cli.StringSliceFlag{Name: "add-tag", Usage: "Tag to add (repeatable)"},
			&cli.StringSliceFlag{Name: "remove-tag", Usage: "Tag to remove (repeatable)"},
			&cli.StringFlag{Name: "body", Usage: "Replace the body"},
			&cli.StringFlag{Name: "append", Usage: "Append a paragraph to the body"},
			&cli.BoolFlag{Name: "draft", Usage: "Mark as draft"},
			&cli.BoolFlag{Name: "publish", Usage: "Clear the draft flag"},
			&cli.StringFlag{Name: "add-alias", Usage: "Alias to add"},
			&cli.StringFlag{Name: "remove-alias", Usage: "Alias to remove"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}

			opts := article.UpdateOptions{
				AddTags:     cmd.StringSlice("add-tag"),
				RemoveTags:  cmd.StringSlice("remove-tag"),
				AddAlias:    cmd.String("add-alias"),
				RemoveAlias: cmd.String("remove-alias"),
				Scope:       sel,
			}
			if cmd.IsSet("title") {
				v := cmd.String("title")
				opts.Title = &v
			}
			if cmd.IsSet("body") {
				v := cmd.String("body")
				opts.Body = &v
			}
			if cmd.IsSet("append") {
				v := cmd.String("append")
				opts.Append = &v
			}
			if cmd.Bool("draft") {
				v := true
				opts.Draft = &v
			} else if cmd.Bool("publish") {
				v := false
				opts.Draft = &v
			}

			art, warnings, err := e.svc.Update(cmd.Args().First(), opts)
			if err != nil {
				return err
			}
			printWarnings(warnings)
			return emit(cmd, map[string]any{"article": art, "warnings": warnings}, func() {
				fmt.Printf("updated %s:%s\n", art.Scope, art.Meta.Slug)
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an article",
		ArgsUsage: "<identifier>",
		Flags:     []cli.Flag{scopeFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}
			resolved, err := e.svc.Delete(cmd.Args().First(), sel)
			if err != nil {
				return err
			}
			return emit(cmd, map[string]string{
				"slug":  resolved.Meta.Slug,
				"scope": string(resolved.Scope),
			}, func() {
				fmt.Printf("deleted %s:%s\n", resolved.Scope, resolved.Meta.Slug)
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List articles with filters, sorting, and pagination",
		Flags: []cli.Flag{
			scopeFlag(),
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Filter by folder"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Filter by tag (repeatable, all must match)"},
			&cli.StringFlag{Name: "sort", Usage: "Sort field: created, updated, or title (default: updated)"},
			&cli.StringFlag{Name: "order", Usage: "Sort order: asc or desc (default: desc)"},
			&cli.IntFlag{Name: "limit", Usage: "Page size (default: 20)"},
			&cli.IntFlag{Name: "offset", Usage: "Page offset"},
			&cli.BoolFlag{Name: "drafts", Usage: "Only drafts"},
			&cli.BoolFlag{Name: "published", Usage: "Only published articles"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}
			opts := index.QueryOptions{
				Folder: cmd.String("folder"),
				Tags:   cmd.StringSlice("tag"),
				Sort:   cmd.String("sort"),
				Order:  cmd.String("order"),
				Limit:  int(cmd.Int("limit")),
				Offset: int(cmd.Int("offset")),
			}
			if cmd.Bool("drafts") {
				v := true
				opts.Draft = &v
			} else if cmd.Bool("published") {
				v := false
				opts.Draft = &v
			}

			listings, err := e.svc.List(sel, opts)
			if err != nil {
				return err
			}
			return emit(cmd, listings, func() { printListings(listings) })
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search across titles, tags, aliases, and bodies",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			scopeFlag(),
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Filter results by tag (repeatable)"},
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Filter results by folder"},
			&cli.IntFlag{Name: "limit", Usage: "Max results (default: 20)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}
			res, err := e.scopes.Resolve(sel, scope.Read)
			if err != nil {
				return err
			}
			resp, err := e.engine.Search(query, search.Options{
				Roots:  res.Roots(),
				Tags:   cmd.StringSlice("tag"),
				Folder: cmd.String("folder"),
				Limit:  int(cmd.Int("limit")),
			})
			if err != nil {
				return err
			}
			return emit(cmd, resp, func() {
				fmt.Printf("%d result(s)\n", resp.Total)
				for _, r := range resp.Results {
					fmt.Printf("  %.1f  %s:%s  %s\n", r.Score, r.Scope, r.Slug, r.Title)
				}
			})
		},
	}
}

func linksCommand() *cli.Command {
	return &cli.Command{
		Name:      "links",
		Usage:     "Show an article's outgoing wiki-links",
		ArgsUsage: "<identifier>",
		Flags:     []cli.Flag{scopeFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}
			resolved, links, err := e.svc.ForwardLinks(cmd.Args().First(), sel)
			if err != nil {
				return err
			}
			return emit(cmd, map[string]any{
				"slug":  resolved.Meta.Slug,
				"scope": resolved.Scope,
				"links": links,
			}, func() {
				for _, l := range links {
					marker := ""
					if !l.Exists {
						marker = "  (missing)"
					}
					fmt.Printf("  %s:%s  %s%s\n", l.Scope, l.Slug, l.Title, marker)
				}
			})
		},
	}
}

func backlinksCommand() *cli.Command {
	return &cli.Command{
		Name:      "backlinks",
		Usage:     "Show the articles that link to an article",
		ArgsUsage: "<identifier>",
		Flags:     []cli.Flag{scopeFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}
			resolved, refs, err := e.svc.Backlinks(cmd.Args().First(), sel)
			if err != nil {
				return err
			}
			return emit(cmd, map[string]any{
				"slug":      resolved.Meta.Slug,
				"scope":     resolved.Scope,
				"backlinks": refs,
			}, func() {
				for _, ref := range refs {
					fmt.Printf("  %s:%s  %s\n", ref.Scope, ref.Slug, ref.Title)
				}
			})
		},
	}
}

func reindexCommand() *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the metadata index and link graph from the vault",
		Flags: []cli.Flag{scopeFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			sel, err := selectorOf(cmd)
			if err != nil {
				return err
			}
			results, err := e.svc.Reindex(sel)
			if err != nil {
				return err
			}
			return emit(cmd, results, func() {
				for _, r := range results {
					fmt.Printf("[%s] %d article(s), %d link(s)\n", r.Scope, r.Articles, r.Links)
				}
			})
		},
	}
}

func templateCommand() *cli.Command {
	return &cli.Command{
		Name:  "template",
		Usage: "Manage article templates",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List visible templates (local shadows global)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := newEnv()
					if err != nil {
						return err
					}
					templates, err := e.svc.ListTemplates()
					if err != nil {
						return err
					}
					return emit(cmd, templates, func() {
						for _, t := range templates {
							fmt.Printf("  %-20s [%s]\n", t.Name, t.Scope)
						}
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Print a template's content",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := newEnv()
					if err != nil {
						return err
					}
					info, content, err := e.svc.ReadTemplate(cmd.Args().First())
					if err != nil {
						return err
					}
					return emit(cmd, map[string]any{"template": info, "content": content}, func() {
						fmt.Print(content)
					})
				},
			},
			{
				Name:      "new",
				Usage:     "Create a template",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					scopeFlag(),
					&cli.StringFlag{Name: "file", Usage: "Read template content from a file"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := newEnv()
					if err != nil {
						return err
					}
					sel, err := selectorOf(cmd)
					if err != nil {
						return err
					}
					res, err := e.scopes.Resolve(sel, scope.Write)
					if err != nil {
						return err
					}
					var root string
					switch res.Scopes[0] {
					case scope.Local:
						root = res.LocalRoot
					case scope.Global:
						root, err = e.scopes.EnsureGlobalScope()
						if err != nil {
							return err
						}
					}

					content := ""
					if file := cmd.String("file"); file != "" {
						data, err := os.ReadFile(file)
						if err != nil {
							return fmt.Errorf("read template file: %w", err)
						}
						content = string(data)
					}
					path, err := e.svc.CreateTemplate(cmd.Args().First(), content, root)
					if err != nil {
						return err
					}
					return emit(cmd, map[string]string{"path": path}, func() {
						fmt.Printf("created template %s\n", path)
					})
				},
			},
		},
	}
}

func vaultCommand() *cli.Command {
	return &cli.Command{
		Name:  "vault",
		Usage: "Manage named global vaults",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered vaults",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := newEnv()
					if err != nil {
						return err
					}
					vaults := e.scopes.ListVaults()
					return emit(cmd, vaults, func() {
						for _, v := range vaults {
							marker := " "
							if v.Active {
								marker = "*"
							}
							fmt.Printf("%s %-20s %s\n", marker, v.Name, v.Path)
						}
					})
				},
			},
			{
				Name:      "add",
				Usage:     "Register a vault backed by a content directory",
				ArgsUsage: "<name> <path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := newEnv()
					if err != nil {
						return err
					}
					name, path := cmd.Args().Get(0), cmd.Args().Get(1)
					if err := e.scopes.AddVault(name, path); err != nil {
						return err
					}
					return emit(cmd, map[string]string{"name": name, "path": path}, func() {
						fmt.Printf("added vault %s\n", name)
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Unregister a vault (content is left on disk)",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := newEnv()
					if err != nil {
						return err
					}
					name := cmd.Args().First()
					path, err := e.scopes.RemoveVault(name)
					if err != nil {
						return err
					}
					return emit(cmd, map[string]string{"removed": name, "path": path}, func() {
						fmt.Printf("removed vault %s (content left at %s)\n", name, path)
					})
				},
			},
			{
				Name:      "use",
				Usage:     "Select the active global vault",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := newEnv()
					if err != nil {
						return err
					}
					name := cmd.Args().First()
					dir, err := e.scopes.UseVault(name)
					if err != nil {
						return err
					}
					return emit(cmd, map[string]string{"name": name, "dir": dir}, func() {
						fmt.Printf("using vault %s (%s)\n", name, dir)
					})
				},
			},
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server with SSE and a filesystem watcher",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Value:   "fuda.yaml",
				Sources: cli.EnvVars("FUDA_CONFIG_FILE"),
			},
			&cli.IntFlag{Name: "port", Usage: "Override the HTTP port"},
			scopeFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := server.NewDefaultConfig()
			configPath := cmd.String("config")
			if err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
				return err
			}

			// Port precedence: --port flag, then the YAML file, then the
			// global scope's config.json, then the built-in default.
			switch {
			case cmd.IsSet("port"):
				cfg.App.HTTP.Port = int(cmd.Int("port"))
			case fileMissing(configPath):
				if e, err := newEnv(); err == nil {
					if port := e.scopes.ServerPort(); port != 0 {
						cfg.App.HTTP.Port = port
					}
				}
			}
			if cmd.IsSet("scope") {
				cfg.Serve.Scope = cmd.String("scope")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return server.Run(ctx, server.WithConfig(cfg))
		},
	}
}

func fileMissing(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP stdio server for LLM integration",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			return mcpserver.New(e.svc, e.engine).ServeStdio()
		},
	}
}
