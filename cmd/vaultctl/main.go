package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/matheus3301/chatvault/internal/archive"
	"github.com/matheus3301/chatvault/internal/model"
	"github.com/matheus3301/chatvault/internal/store"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.chatvault/config.toml)")
	dataDirFlag := flag.String("data-dir", "", "data directory (overrides config)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var engine *archive.Engine
	var db *store.DB
	app := fx.New(
		fx.NopLogger,
		archive.Module(archive.Params{ConfigPath: *configFlag, DataDir: *dataDirFlag}),
		fx.Populate(&engine, &db),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	ctx, opCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer opCancel()

	ok := true
	switch args[0] {
	case "archive":
		ok = cmdArchive(ctx, engine, args[1:], *jsonFlag)
	case "restore":
		ok = cmdRestore(ctx, engine, args[1:], *jsonFlag)
	case "search":
		ok = cmdSearch(ctx, engine, args[1:], *jsonFlag)
	case "list":
		ok = cmdList(ctx, engine, args[1:], *jsonFlag)
	case "chats":
		ok = cmdChats(ctx, db, *jsonFlag)
	case "show":
		ok = cmdShow(ctx, engine, args[1:], *jsonFlag)
	case "delete":
		ok = cmdDelete(ctx, engine, args[1:], *jsonFlag)
	case "stats":
		ok = cmdStats(ctx, engine, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		ok = false
	}
	if !ok {
		// Run deferred cleanup before exiting.
		opCancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = app.Stop(stopCtx)
		stopCancel()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: vaultctl [--config <path>] [--data-dir <dir>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  archive <chat-id>     Archive a live chat")
	fmt.Fprintln(os.Stderr, "  restore <archive-id>  Restore an archive to the live store")
	fmt.Fprintln(os.Stderr, "  search <query>        Search archived messages")
	fmt.Fprintln(os.Stderr, "  list                  List archived chats")
	fmt.Fprintln(os.Stderr, "  chats                 List live chats")
	fmt.Fprintln(os.Stderr, "  show <archive-id>     Show a full archive")
	fmt.Fprintln(os.Stderr, "  delete <archive-id>   Permanently delete an archive")
	fmt.Fprintln(os.Stderr, "  stats                 Show vault statistics")
}

func cmdArchive(ctx context.Context, e *archive.Engine, args []string, jsonOut bool) bool {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	reason := fs.String("reason", "", "why the chat is being archived")
	tags := fs.String("tags", "", "comma-separated tags")
	noCompress := fs.Bool("no-compress", false, "disable whole-archive compression")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vaultctl archive <chat-id> [--reason <text>] [--tags a,b] [--no-compress]")
		return false
	}

	opts := archive.DefaultArchiveOptions()
	opts.Reason = *reason
	opts.CompressLargeArchives = !*noCompress
	if *tags != "" {
		opts.Tags = strings.Split(*tags, ",")
	}

	res := e.ArchiveChat(ctx, fs.Arg(0), opts)
	return printResult(res, jsonOut)
}

func cmdRestore(ctx context.Context, e *archive.Engine, args []string, jsonOut bool) bool {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	target := fs.String("target", "", "restore into this chat id instead of the original")
	overwrite := fs.Bool("overwrite", false, "allow restoring into an existing chat")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vaultctl restore <archive-id> [--target <chat-id>] [--overwrite]")
		return false
	}

	res := e.RestoreChat(ctx, fs.Arg(0), &archive.RestoreOptions{
		TargetChatID:      *target,
		OverwriteExisting: *overwrite,
	})
	return printResult(res, jsonOut)
}

func cmdSearch(ctx context.Context, e *archive.Engine, args []string, jsonOut bool) bool {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	contact := fs.String("contact", "", "filter by contact name")
	after := fs.String("after", "", "only messages after this date (2006-01-02)")
	before := fs.String("before", "", "only messages before this date (2006-01-02)")
	starred := fs.Bool("starred", false, "starred messages only")
	limit := fs.Int("limit", 50, "maximum matches")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: vaultctl search <query> [--contact <name>] [--after <date>] [--before <date>] [--starred] [--limit <n>]")
		return false
	}

	f := &model.SearchFilter{ContactName: *contact, StarredOnly: *starred}
	var err error
	if f.After, err = parseDate(*after); err != nil {
		fmt.Fprintf(os.Stderr, "error: bad --after: %v\n", err)
		return false
	}
	if f.Before, err = parseDate(*before); err != nil {
		fmt.Fprintf(os.Stderr, "error: bad --before: %v\n", err)
		return false
	}

	res, err := e.SearchArchives(ctx, strings.Join(fs.Args(), " "), f, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	if jsonOut {
		outputJSON(res)
		return true
	}

	if len(res.Matches) == 0 {
		fmt.Println("No matches.")
		return true
	}
	contacts := make(map[string]string, len(res.Chats))
	for _, c := range res.Chats {
		contacts[c.ArchiveID] = c.ContactName
	}
	for _, m := range res.Matches {
		fmt.Printf("[%s] %s  %s\n", formatTime(m.Message.OriginalTimestamp), contacts[m.ArchiveID], m.Message.Content)
	}
	if res.HasMore {
		fmt.Println("(more results available; raise --limit)")
	}
	return true
}

func cmdList(ctx context.Context, e *archive.Engine, args []string, jsonOut bool) bool {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	contact := fs.String("contact", "", "filter by contact name")
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "page offset")
	_ = fs.Parse(args)

	list, err := e.GetArchivedChats(ctx, &model.ListFilter{ContactName: *contact}, *limit, *offset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	if jsonOut {
		outputJSON(list)
		return true
	}

	if len(list) == 0 {
		fmt.Println("No archives.")
		return true
	}
	for _, s := range list {
		compressed := ""
		if s.IsCompressed {
			compressed = " [compressed]"
		}
		fmt.Printf("%s  %-20s %4d msgs  archived %s%s\n",
			s.ArchiveID, s.ContactName, s.MessageCount, formatTime(s.ArchivedAt), compressed)
	}
	return true
}

func cmdChats(ctx context.Context, db *store.DB, jsonOut bool) bool {
	chats, err := db.Chats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	if jsonOut {
		outputJSON(chats)
		return true
	}

	if len(chats) == 0 {
		fmt.Println("No live chats.")
		return true
	}
	for _, c := range chats {
		fmt.Printf("%s  %-20s last message %s\n", c.ID, c.ContactName, formatTime(c.LastMessageAt))
	}
	return true
}

func cmdShow(ctx context.Context, e *archive.Engine, args []string, jsonOut bool) bool {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: vaultctl show <archive-id>")
		return false
	}

	arch, err := e.GetArchivedChat(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	if arch == nil {
		fmt.Fprintf(os.Stderr, "error: archive %q not found\n", args[0])
		return false
	}
	if jsonOut {
		outputJSON(arch)
		return true
	}

	fmt.Printf("Archive:  %s\n", arch.ArchiveID)
	fmt.Printf("Contact:  %s\n", arch.ContactName)
	fmt.Printf("Archived: %s\n", formatTime(arch.ArchivedAt))
	fmt.Printf("Messages: %d\n", arch.MessageCount)
	if arch.Metadata.Reason != "" {
		fmt.Printf("Reason:   %s\n", arch.Metadata.Reason)
	}
	if len(arch.Metadata.Tags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(arch.Metadata.Tags, ", "))
	}
	if arch.IsCompressed && arch.CompressionInfo != nil {
		fmt.Printf("Size:     %d bytes (compressed to %.0f%%)\n",
			arch.EstimatedSize, arch.CompressionInfo.Ratio*100)
	} else {
		fmt.Printf("Size:     %d bytes\n", arch.EstimatedSize)
	}
	fmt.Println()
	for _, m := range arch.Messages {
		sender := arch.ContactName
		if m.FromMe {
			sender = "me"
		}
		fmt.Printf("[%s] %s: %s\n", formatTime(m.OriginalTimestamp), sender, m.Content)
	}
	return true
}

func cmdDelete(ctx context.Context, e *archive.Engine, args []string, jsonOut bool) bool {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: vaultctl delete <archive-id>")
		return false
	}
	res := e.PermanentlyDeleteArchive(ctx, args[0])
	return printResult(res, jsonOut)
}

func cmdStats(ctx context.Context, e *archive.Engine, jsonOut bool) bool {
	stats, err := e.GetArchiveStatistics(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	if jsonOut {
		outputJSON(stats)
		return true
	}

	fmt.Printf("Archives:   %d (%d compressed)\n", stats.Totals.Archives, stats.Totals.CompressedArchives)
	fmt.Printf("Messages:   %d\n", stats.Totals.Messages)
	fmt.Printf("Total size: %d bytes\n", stats.Totals.SizeBytes)
	if len(stats.PerContact) > 0 {
		fmt.Println("\nBy contact:")
		for contact, n := range stats.PerContact {
			fmt.Printf("  %-20s %d\n", contact, n)
		}
	}
	if len(stats.PerMonth) > 0 {
		fmt.Println("\nBy month:")
		for month, n := range stats.PerMonth {
			fmt.Printf("  %s  %d\n", month, n)
		}
	}
	return true
}

func printResult(res *archive.OperationResult, jsonOut bool) bool {
	if jsonOut {
		outputJSON(res)
		return res.Success
	}
	if !res.Success {
		fmt.Fprintf(os.Stderr, "error: %s\n", res.Message)
		return false
	}
	switch res.Op {
	case "archive":
		fmt.Printf("Archived %s as %s (%d messages, %s)\n",
			res.ChatID, res.ArchiveID, res.MessagesArchived, res.Elapsed.Round(time.Millisecond))
	case "restore":
		fmt.Printf("Restored %s to %s (%d messages, %s)\n",
			res.ArchiveID, res.ChatID, res.MessagesRestored, res.Elapsed.Round(time.Millisecond))
	case "delete":
		fmt.Printf("Deleted %s\n", res.ArchiveID)
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return true
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func parseDate(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
