package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func uintToString(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func int64ToString(v int64) string { return strconv.FormatInt(v, 10) }

func formatMaybeUint(v *uint) string {
	if v == nil {
		return "-"
	}
	return uintToString(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func printIdentity(who domain.Identity) {
	printKV([][2]string{
		{"id", uintToString(who.UserID)},
		{"username", who.Username},
		{"name", who.Name},
		{"role", string(who.Role)},
	})
}

func printCommunities(list []domain.CommunitySummary) {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{uintToString(c.ID), c.Name, int64ToString(c.SubCommunityCount), int64ToString(c.CollectionCount)})
	}
	printTable([]string{"ID", "NAME", "SUB_COMMUNITIES", "COLLECTIONS"}, rows)
}

func printCommunityList(list []domain.Community) {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{uintToString(c.ID), c.Name, formatMaybeUint(c.ParentID), formatTime(c.UpdatedAt)})
	}
	printTable([]string{"ID", "NAME", "PARENT_ID", "UPDATED_AT"}, rows)
}

func printCommunityDetail(c domain.CommunityDetail) {
	printKV([][2]string{
		{"id", uintToString(c.ID)},
		{"name", c.Name},
		{"parent_id", formatMaybeUint(c.ParentID)},
		{"description", c.Description},
	})
	if len(c.SubCommunities) > 0 {
		fmt.Println()
		printCommunityList(c.SubCommunities)
	}
	fmt.Println()
	printCollections(c.Collections)
}

func printCollections(list []domain.CollectionSummary) {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{uintToString(c.ID), uintToString(c.CommunityID), c.Name, int64ToString(c.ItemCount)})
	}
	printTable([]string{"ID", "COMMUNITY_ID", "NAME", "ITEMS"}, rows)
}

func printCollection(c domain.Collection) {
	printKV([][2]string{
		{"id", uintToString(c.ID)},
		{"community_id", uintToString(c.CommunityID)},
		{"name", c.Name},
		{"description", c.Description},
	})
}

func printListings(items []domain.ItemListing) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			string(item.Status),
			item.Title,
			item.CollectionName,
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "STATUS", "TITLE", "COLLECTION", "CREATED_AT"}, rows)
}

func printListingPage(page domain.Page[domain.ItemListing]) {
	printListings(page.Items)
	fmt.Printf("page %d of %d, %d total\n", page.CurrentPage, page.TotalPages, page.Total)
}

func printItem(item domain.Item) {
	printKV([][2]string{
		{"id", uintToString(item.ID)},
		{"title", item.Title},
		{"status", string(item.Status)},
		{"collection_id", uintToString(item.CollectionID)},
		{"updated_at", formatTime(item.UpdatedAt)},
	})
}

func printItemDetail(item domain.ItemDetail) {
	printKV([][2]string{
		{"id", uintToString(item.ID)},
		{"title", item.Title},
		{"status", string(item.Status)},
		{"collection", item.CollectionName},
		{"submitter", item.SubmitterName},
	})
	fmt.Println()
	printMetadata(item.Metadata)
	fmt.Println()
	printBitstreams(item.Bitstreams)
}

func printMetadata(fields []domain.MetadataField) {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{uintToString(f.ID), f.Key, f.Value})
	}
	printTable([]string{"ID", "KEY", "VALUE"}, rows)
}

func printDescribedMetadata(fields []domain.DescribedField) {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{uintToString(f.ID), f.Descriptor.Label, f.Key, f.Value})
	}
	printTable([]string{"ID", "FIELD", "KEY", "VALUE"}, rows)
}

func printBitstreams(list []domain.Bitstream) {
	rows := make([][]string, 0, len(list))
	for _, b := range list {
		rows = append(rows, []string{uintToString(b.ID), b.Name, b.MimeType, int64ToString(b.Size), int64ToString(b.DownloadCount)})
	}
	printTable([]string{"ID", "NAME", "MIME_TYPE", "SIZE", "DOWNLOADS"}, rows)
}

func printFacets(entries []domain.FacetEntry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Name, strconv.Itoa(e.Count)})
	}
	printTable([]string{"NAME", "COUNT"}, rows)
}

func printUsers(users []domain.User) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{uintToString(u.ID), u.Username, u.Name, u.Email, string(u.Role)})
	}
	printTable([]string{"ID", "USERNAME", "NAME", "EMAIL", "ROLE"}, rows)
}

func printAudit(records []domain.AuditRecord) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		actor := r.ActorUsername
		if actor == "" {
			actor = formatMaybeUint(r.ActorUserID)
		}
		rows = append(rows, []string{
			formatTime(r.CreatedAt),
			actor,
			r.Action,
			r.TargetType,
			formatMaybeUint(r.TargetID),
			r.Metadata,
		})
	}
	printTable([]string{"AT", "ACTOR", "ACTION", "TARGET_TYPE", "TARGET_ID", "DETAIL"}, rows)
}
