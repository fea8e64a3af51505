package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag { return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"} }

// run performs o and prints the decoded result with render, or as JSON when
// --json is set or there is no table form.
func run[T any](ctx context.Context, c *cli.Command, o op, render func(T)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var out T
	if err := cfg.do(ctx, o, &out); err != nil {
		return err
	}
	if render == nil || c.Bool("json") {
		return printJSON(out)
	}
	render(out)
	return nil
}

// setFields copies the flags the user actually passed into a request body.
func setFields(c *cli.Command, names ...string) map[string]any {
	out := map[string]any{}
	for _, name := range names {
		if !c.IsSet(name) {
			continue
		}
		key := strings.ReplaceAll(name, "-", "_")
		switch name {
		case "parent-id", "community-id", "collection-id":
			out[key] = c.Uint(name)
		default:
			out[key] = c.String(name)
		}
	}
	return out
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Login and store a CLI token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "socket", Value: defaultSocket},
					&cli.StringFlag{Name: "login", Required: true, Usage: "username or email"},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
					&cli.IntFlag{Name: "ttl-hours", Usage: "token lifetime, 0 for no expiry"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					var out struct {
						Token string          `json:"token"`
						User  domain.Identity `json:"user"`
					}
					if err := doLogin(ctx, cfg, c.String("login"), c.String("password"), c.String("token-name"), c.Int("ttl-hours"), &out); err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s (%s)\n", out.User.Username, out.User.Role)
					return nil
				},
			},
			{
				Name:   "whoami",
				Usage:  "Show the authenticated user",
				Flags:  []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opWhoAmI(), printIdentity) },
			},
			{
				Name:  "logout",
				Usage: "Revoke the CLI token and forget it",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if cfg.Token != "" {
						if err := cfg.do(ctx, opLogout(), nil); err != nil {
							fmt.Fprintf(os.Stderr, "revoking token: %v\n", err)
						}
					}
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func communitiesCommand() *cli.Command {
	fields := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "description"},
			&cli.UintFlag{Name: "parent-id"},
			jsonFlag(),
		}
	}
	return &cli.Command{
		Name:  "communities",
		Usage: "Browse and manage communities",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List top-level communities",
				Flags:  []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opRootCommunities(), printCommunities) },
			},
			{
				Name:   "all",
				Usage:  "List every community (admin)",
				Flags:  []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opAllCommunities(), printCommunityList) },
			},
			{
				Name:  "show",
				Usage: "Show a community with its children and collections",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opCommunity(c.Uint("id")), printCommunityDetail)
				},
			},
			{
				Name:  "create",
				Usage: "Create a community (admin)",
				Flags: fields(),
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opSaveCommunity(0, setFields(c, "name", "description", "parent-id")), printCommunity)
				},
			},
			{
				Name:  "update",
				Usage: "Update a community (admin)",
				Flags: append([]cli.Flag{&cli.UintFlag{Name: "id", Required: true}}, fields()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opSaveCommunity(c.Uint("id"), setFields(c, "name", "description", "parent-id")), printCommunity)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete an empty community (admin)",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run[map[string]any](ctx, c, opDeleteCommunity(c.Uint("id")), printDone)
				},
			},
		},
	}
}

func collectionsCommand() *cli.Command {
	fields := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "description"},
			&cli.UintFlag{Name: "community-id"},
			jsonFlag(),
		}
	}
	return &cli.Command{
		Name:  "collections",
		Usage: "Browse and manage collections",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List collections",
				Flags: []cli.Flag{&cli.UintFlag{Name: "community-id"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					var communityID *uint
					if c.IsSet("community-id") {
						v := c.Uint("community-id")
						communityID = &v
					}
					return run(ctx, c, opCollections(communityID), printCollections)
				},
			},
			{
				Name:  "show",
				Usage: "Show a collection and a page of its published items",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}, &cli.IntFlag{Name: "page"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opCollection(c.Uint("id"), c.Int("page")), func(out struct {
						domain.Collection
						CommunityName string                         `json:"community_name"`
						Items         domain.Page[domain.ItemListing] `json:"items"`
					}) {
						printCollection(out.Collection)
						fmt.Println()
						printListingPage(out.Items)
					})
				},
			},
			{
				Name:  "create",
				Usage: "Create a collection (admin)",
				Flags: fields(),
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opSaveCollection(0, setFields(c, "name", "description", "community-id")), printCollection)
				},
			},
			{
				Name:  "update",
				Usage: "Update a collection (admin)",
				Flags: append([]cli.Flag{&cli.UintFlag{Name: "id", Required: true}}, fields()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opSaveCollection(c.Uint("id"), setFields(c, "name", "description", "community-id")), printCollection)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete an empty collection (admin)",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run[map[string]any](ctx, c, opDeleteCollection(c.Uint("id")), printDone)
				},
			},
		},
	}
}

func itemsCommand() *cli.Command {
	idFlag := func() cli.Flag { return &cli.UintFlag{Name: "id", Required: true, Usage: "item id"} }
	return &cli.Command{
		Name:  "items",
		Usage: "Submit, edit and inspect items",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Start a draft submission",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "collection-id", Required: true},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringSliceFlag{Name: "meta", Usage: "key=value, repeatable"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					metadata, err := parseMeta(c.StringSlice("meta"))
					if err != nil {
						return err
					}
					return run(ctx, c, opCreateItem(c.Uint("collection-id"), c.String("title"), metadata), printItemDetail)
				},
			},
			{
				Name:   "show",
				Usage:  "Show an item you may see",
				Flags:  []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opItem(c.Uint("id")), printItemDetail) },
			},
			{
				Name:  "view",
				Usage: "Show a published item",
				Flags: []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opPublishedItem(c.Uint("id")), printItemDetail)
				},
			},
			{
				Name:   "recent",
				Usage:  "List the newest published items",
				Flags:  []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opRecentItems(), printListings) },
			},
			{
				Name:  "retitle",
				Usage: "Change the title of an editable item",
				Flags: []cli.Flag{idFlag(), &cli.StringFlag{Name: "title", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opRetitleItem(c.Uint("id"), c.String("title")), printItemDetail)
				},
			},
			{
				Name:   "submit",
				Usage:  "Send a draft or rejected item to review",
				Flags:  []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opSubmitItem(c.Uint("id")), printItem) },
			},
			{
				Name:  "mine",
				Usage: "List your submissions",
				Flags: []cli.Flag{&cli.IntFlag{Name: "page"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opMySubmissions(c.Int("page")), printListingPage)
				},
			},
			{
				Name:  "list",
				Usage: "List all items (admin)",
				Flags: []cli.Flag{&cli.StringFlag{Name: "status"}, &cli.IntFlag{Name: "page"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opAllItems(strings.ToUpper(c.String("status")), c.Int("page")), printListingPage)
				},
			},
			{
				Name:  "set",
				Usage: "Change title, status or collection of any item (admin)",
				Flags: []cli.Flag{
					idFlag(),
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "status"},
					&cli.UintFlag{Name: "collection-id"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					fields := setFields(c, "title", "collection-id")
					if c.IsSet("status") {
						fields["status"] = strings.ToUpper(c.String("status"))
					}
					return run(ctx, c, opAdminUpdateItem(c.Uint("id"), fields), printItemDetail)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete an item with its metadata and files (admin)",
				Flags: []cli.Flag{idFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run[map[string]any](ctx, c, opDeleteItem(c.Uint("id")), printDone)
				},
			},
			metadataCommand(idFlag),
			bitstreamsCommand(idFlag),
			{
				Name:  "search",
				Usage: "Search published items",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "text in title or any metadata value"},
					&cli.StringFlag{Name: "facet", Usage: "author or subject"},
					&cli.StringFlag{Name: "value", Usage: "facet value"},
					&cli.IntFlag{Name: "start-year"},
					&cli.IntFlag{Name: "end-year"},
					&cli.IntFlag{Name: "page"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					query := map[string]any{
						"q":           c.String("q"),
						"facet":       c.String("facet"),
						"facet_value": c.String("value"),
						"start_year":  c.Int("start-year"),
						"end_year":    c.Int("end-year"),
						"page":        c.Int("page"),
					}
					return run(ctx, c, opSearch(query), printListingPage)
				},
			},
		},
	}
}

func metadataCommand(idFlag func() cli.Flag) *cli.Command {
	return &cli.Command{
		Name:  "metadata",
		Usage: "Edit item metadata",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opMetadata(c.Uint("id")), printDescribedMetadata)
				},
			},
			{
				Name:  "add",
				Flags: []cli.Flag{idFlag(), &cli.StringFlag{Name: "key", Required: true}, &cli.StringFlag{Name: "value"}, &cli.BoolFlag{Name: "admin"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					o := opAddMetadata(c.Uint("id"), c.String("key"), c.String("value"), c.Bool("admin"))
					return run(ctx, c, o, func(f domain.MetadataField) { printMetadata([]domain.MetadataField{f}) })
				},
			},
			{
				Name:  "set",
				Usage: "Update field values, each given as field_id=value",
				Flags: []cli.Flag{idFlag(), &cli.StringSliceFlag{Name: "field", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					updates, err := parseUpdates(c.StringSlice("field"))
					if err != nil {
						return err
					}
					return run(ctx, c, opUpdateMetadata(c.Uint("id"), updates), printMetadata)
				},
			},
			{
				Name:  "delete",
				Flags: []cli.Flag{idFlag(), &cli.UintFlag{Name: "field-id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run[map[string]any](ctx, c, opDeleteMetadata(c.Uint("id"), c.Uint("field-id")), printDone)
				},
			},
		},
	}
}

func bitstreamsCommand(idFlag func() cli.Flag) *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "Manage item bitstreams",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Flags:  []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opBitstreams(c.Uint("id")), printBitstreams) },
			},
			{
				Name:  "upload",
				Flags: []cli.Flag{idFlag(), &cli.StringFlag{Name: "file", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Bitstream
					if err := doUpload(ctx, cfg, c.Uint("id"), c.String("file"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printBitstreams([]domain.Bitstream{out})
					return nil
				},
			},
			{
				Name:  "delete",
				Flags: []cli.Flag{idFlag(), &cli.UintFlag{Name: "bitstream-id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run[map[string]any](ctx, c, opDeleteBitstream(c.Uint("id"), c.Uint("bitstream-id")), printDone)
				},
			},
			{
				Name:  "download",
				Usage: "Write a bitstream to --out, or stdout",
				Flags: []cli.Flag{&cli.UintFlag{Name: "bitstream-id", Required: true}, &cli.StringFlag{Name: "out"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var w io.Writer = os.Stdout
					if path := c.String("out"); path != "" {
						f, err := os.Create(path)
						if err != nil {
							return err
						}
						defer func() { _ = f.Close() }()
						w = f
					}
					return doDownload(ctx, cfg, c.Uint("bitstream-id"), w)
				},
			},
		},
	}
}

func reviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Reviewer workflow",
		Commands: []*cli.Command{
			{
				Name:  "queue",
				Usage: "List items awaiting review, oldest first",
				Flags: []cli.Flag{&cli.IntFlag{Name: "page"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opReviewQueue(c.Int("page")), printListingPage)
				},
			},
			{
				Name:  "decide",
				Usage: "Publish or reject an item",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "item-id", Required: true},
					&cli.StringFlag{Name: "status", Required: true, Usage: "PUBLISHED or REJECTED"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opReview(c.Uint("item-id"), strings.ToUpper(c.String("status"))), printItem)
				},
			},
		},
	}
}

func discoverCommand() *cli.Command {
	facet := func(name, usage string) *cli.Command {
		return &cli.Command{
			Name:   name,
			Usage:  usage,
			Flags:  []cli.Flag{jsonFlag()},
			Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opRead(discoverRoutes, name), printFacets) },
		}
	}
	return &cli.Command{
		Name:  "discover",
		Usage: "Facets over published items",
		Commands: []*cli.Command{
			facet("authors", "Top authors"),
			facet("subjects", "Top subjects"),
			{
				Name:  "years",
				Usage: "Items per issue year",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opRead(discoverRoutes, "years"), func(years []domain.YearCount) {
						rows := make([][]string, 0, len(years))
						for _, y := range years {
							rows = append(rows, []string{y.Year, int64ToString(y.Count)})
						}
						printTable([]string{"YEAR", "COUNT"}, rows)
					})
				},
			},
			{
				Name:  "date-range",
				Usage: "Earliest and latest issue year",
				Action: func(ctx context.Context, c *cli.Command) error {
					return run[domain.YearRange](ctx, c, opRead(discoverRoutes, "date-range"), nil)
				},
			},
			{
				Name:  "browse-authors",
				Usage: "Alphabetical author index",
				Flags: []cli.Flag{&cli.IntFlag{Name: "page"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opBrowseAuthors(c.Int("page")), func(page domain.Page[domain.FacetEntry]) {
						printFacets(page.Items)
						fmt.Printf("page %d of %d, %d total\n", page.CurrentPage, page.TotalPages, page.Total)
					})
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	series := func(name, usage string) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Flags: []cli.Flag{jsonFlag()},
			Action: func(ctx context.Context, c *cli.Command) error {
				return run(ctx, c, opRead(statsRoutes, name), func(buckets []domain.MonthBucket) {
					rows := make([][]string, 0, len(buckets))
					for _, b := range buckets {
						rows = append(rows, []string{b.Month, int64ToString(b.Value)})
					}
					printTable([]string{"MONTH", "VALUE"}, rows)
				})
			},
		}
	}
	return &cli.Command{
		Name:  "stats",
		Usage: "Repository statistics",
		Commands: []*cli.Command{
			{
				Name:  "summary",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opRead(statsRoutes, "summary"), func(s domain.StatsSummary) {
						printKV([][2]string{
							{"published_items", int64ToString(s.PublishedItems)},
							{"collections", int64ToString(s.Collections)},
							{"communities", int64ToString(s.Communities)},
							{"total_downloads", int64ToString(s.TotalDownloads)},
							{"new_items_this_month", int64ToString(s.NewItemsThisMonth)},
						})
					})
				},
			},
			{
				Name:  "top-authors",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opRead(statsRoutes, "top-authors"), printFacets)
				},
			},
			{
				Name:  "top-downloads",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opRead(statsRoutes, "top-downloads"), func(items []domain.ItemDownloads) {
						rows := make([][]string, 0, len(items))
						for _, item := range items {
							rows = append(rows, []string{uintToString(item.ItemID), item.Title, int64ToString(item.Downloads)})
						}
						printTable([]string{"ITEM_ID", "TITLE", "DOWNLOADS"}, rows)
					})
				},
			},
			series("downloads-over-time", "Downloads per month, last twelve months"),
			series("submissions-over-time", "Published submissions per month, last twelve months"),
			{
				Name:  "submissions-by-type",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opRead(statsRoutes, "submissions-by-type"), printFacets)
				},
			},
			{
				Name:  "active-collections",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opRead(statsRoutes, "active-collections"), func(list []domain.CollectionActivity) {
						rows := make([][]string, 0, len(list))
						for _, a := range list {
							rows = append(rows, []string{uintToString(a.CollectionID), a.Name, int64ToString(a.PublishedItems), int64ToString(a.Downloads)})
						}
						printTable([]string{"ID", "NAME", "ITEMS", "DOWNLOADS"}, rows)
					})
				},
			},
		},
	}
}

func usersCommand() *cli.Command {
	fields := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "username"},
			&cli.StringFlag{Name: "password"},
			&cli.StringFlag{Name: "role", Usage: "ADMIN, REVIEWER, SUBMITTER or USER"},
			jsonFlag(),
		}
	}
	names := []string{"name", "email", "username", "password", "role"}
	printUser := func(u domain.User) { printUsers([]domain.User{u}) }
	return &cli.Command{
		Name:  "users",
		Usage: "User administration",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{&cli.StringFlag{Name: "q"}, &cli.IntFlag{Name: "limit"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opUsers(c.String("q"), c.Int("limit")), printUsers)
				},
			},
			{
				Name:   "show",
				Flags:  []cli.Flag{&cli.UintFlag{Name: "id", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opUser(c.Uint("id")), printUser) },
			},
			{
				Name:  "create",
				Flags: fields(),
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opCreateUser(setFields(c, names...)), printUser)
				},
			},
			{
				Name:  "update",
				Flags: append([]cli.Flag{&cli.UintFlag{Name: "id", Required: true}}, fields()...),
				Action: func(ctx context.Context, c *cli.Command) error {
					return run(ctx, c, opUpdateUser(c.Uint("id"), setFields(c, names...)), printUser)
				},
			},
			{
				Name:  "delete",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return run[map[string]any](ctx, c, opDeleteUser(c.Uint("id")), printDone)
				},
			},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Audit log (admin)",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "limit", Value: 100}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error { return run(ctx, c, opAudit(c.Int("limit")), printAudit) },
			},
		},
	}
}

func printDone(map[string]any) { fmt.Println("ok") }

func printCommunity(c domain.Community) { printCommunityList([]domain.Community{c}) }

// parseMeta reads repeated key=value flags.
func parseMeta(pairs []string) ([]map[string]string, error) {
	out := make([]map[string]string, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("metadata must be key=value, got %q", pair)
		}
		out = append(out, map[string]string{"key": strings.TrimSpace(key), "value": value})
	}
	return out, nil
}

func parseUpdates(pairs []string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(pairs))
	for _, pair := range pairs {
		rawID, value, ok := strings.Cut(pair, "=")
		var fieldID uint
		if ok {
			_, err := fmt.Sscanf(rawID, "%d", &fieldID)
			ok = err == nil && fieldID > 0
		}
		if !ok {
			return nil, fmt.Errorf("field must be field_id=value, got %q", pair)
		}
		out = append(out, map[string]any{"id": fieldID, "value": value})
	}
	return out, nil
}
