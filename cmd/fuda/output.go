package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/corvid-labs/fuda/internal/apperr"
	"github.com/corvid-labs/fuda/internal/article"
)

// envelope is the --json output contract: {ok, data, error}.
type envelope struct {
	OK    bool           `json:"ok"`
	Data  any            `json:"data,omitempty"`
	Error *envelopeError `json:"error,omitempty"`
}

type envelopeError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Candidates []string `json:"candidates,omitempty"`
}

// emit prints data in JSON envelope form when --json is set; otherwise it
// calls text to render the human form.
func emit(cmd *cli.Command, data any, text func()) error {
	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(envelope{OK: true, Data: data})
	}
	text()
	return nil
}

func printError(err error, asJSON bool) {
	if asJSON {
		e := envelopeError{Code: string(apperr.CodeOf(err)), Message: err.Error()}
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			e.Message = appErr.Message
			e.Candidates = appErr.Candidates
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(envelope{OK: false, Error: &e})
		return
	}

	fmt.Fprintf(os.Stderr, "fuda: %v\n", err)
	var appErr *apperr.Error
	if errors.As(err, &appErr) && len(appErr.Candidates) > 0 {
		fmt.Fprintln(os.Stderr, "candidates:")
		for _, c := range appErr.Candidates {
			fmt.Fprintf(os.Stderr, "  %s\n", c)
		}
	}
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func printArticle(art article.Article) {
	fmt.Printf("# %s\n", art.Meta.Title)
	fmt.Printf("slug: %s\n", art.Meta.Slug)
	fmt.Printf("scope: %s\n", art.Scope)
	if art.Meta.Folder != "" {
		fmt.Printf("folder: %s\n", art.Meta.Folder)
	}
	if len(art.Meta.Tags) > 0 {
		fmt.Printf("tags: %s\n", strings.Join(art.Meta.Tags, ", "))
	}
	if len(art.Meta.Aliases) > 0 {
		fmt.Printf("aliases: %s\n", strings.Join(art.Meta.Aliases, ", "))
	}
	if art.Meta.Draft {
		fmt.Println("draft: true")
	}
	fmt.Printf("created: %s\nupdated: %s\n\n", art.Meta.Created, art.Meta.Updated)
	fmt.Println(art.Body)
}

func printListings(listings []article.Listing) {
	for _, listing := range listings {
		fmt.Printf("[%s] %d article(s)\n", listing.Scope, listing.Total)
		for _, meta := range listing.Articles {
			name := meta.Slug
			if meta.Folder != "" {
				name = meta.Folder + "/" + meta.Slug
			}
			line := fmt.Sprintf("  %-30s %s", name, meta.Title)
			if meta.Draft {
				line += " (draft)"
			}
			fmt.Println(line)
		}
	}
}
