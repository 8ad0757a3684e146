package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"kidtube"
	"kidtube/config"
	"kidtube/screentime"
	"kidtube/storage"
	"kidtube/youtube"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "profile":
		cmdProfile(ctx, args)
	case "resolve":
		cmdResolve(ctx, args)
	case "add":
		cmdAdd(ctx, args)
	case "list":
		cmdList(ctx, args)
	case "remove":
		cmdRemove(ctx, args)
	case "videos":
		cmdVideos(ctx, args)
	case "search":
		cmdSearch(ctx, args)
	case "watch":
		cmdWatch(ctx, args)
	case "status":
		cmdStatus(ctx, args)
	case "sleep":
		cmdSleep(ctx, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `kidtube - whitelist-only video watching for kids

Usage:
  kidtube profile add [-limit N] <name>        Create a child profile
  kidtube profile list                         List profiles
  kidtube profile limit <profile-id> <N|none>  Set the daily limit in minutes
  kidtube resolve [-mirrors] <url>             Resolve a link without saving it
  kidtube add -profile <id> <url>              Approve a channel, playlist or video
  kidtube list -profile <id>                   List approved content
  kidtube remove <item-id>                     Remove approved content
  kidtube videos [-max N] <channel-id>         List recent videos of a channel
  kidtube search [-max N] <query>              Search channels (needs an API key)
  kidtube watch -profile <id> -video <id> -seconds N
                                               Record watched time
  kidtube status [-follow] -profile <id>       Show today's time-limit status
  kidtube sleep -profile <id> -minutes N       Run a sleep timer
  kidtube help                                 Show this help message

Examples:
  kidtube add -profile 4f1c... https://www.youtube.com/@sciencekids
  kidtube add -profile 4f1c... "https://www.youtube.com/watch?v=abc&list=PL123"
  kidtube profile limit 4f1c... 60

For help on specific command: kidtube <command> -h
`)
}

// setup loads the configuration and builds the app.
func setup(ctx context.Context) *kidtube.App {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	app, err := kidtube.NewApp(ctx, cfg, newLogger(cfg.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting: %v\n", err)
		os.Exit(1)
	}
	return app
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// fail prints the parent-facing message, and the raw error underneath.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", kidtube.UserMessage(err))
	fmt.Fprintf(os.Stderr, "  (%v)\n", err)
	os.Exit(1)
}

func cmdProfile(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: kidtube profile add|list|limit ...\n")
		os.Exit(1)
	}

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("profile add", flag.ExitOnError)
		limit := fs.Int("limit", -1, "Daily limit in minutes (-1 = unrestricted)")
		fs.Parse(args[1:])
		if fs.NArg() == 0 {
			fmt.Fprintf(os.Stderr, "Error: missing name\n")
			os.Exit(1)
		}

		app := setup(ctx)
		defer app.Close()

		p := &storage.Profile{Name: fs.Arg(0)}
		if *limit >= 0 {
			p.DailyLimitMinutes = limit
		}
		if err := app.Store.CreateProfile(ctx, p); err != nil {
			fail(err)
		}
		fmt.Println(p.ID)

	case "list":
		app := setup(ctx)
		defer app.Close()

		profiles, err := app.Store.ListProfiles(ctx)
		if err != nil {
			fail(err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDAILY LIMIT")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, formatLimit(p.DailyLimitMinutes))
		}
		w.Flush()

	case "limit":
		if len(args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: kidtube profile limit <profile-id> <minutes|none>\n")
			os.Exit(1)
		}

		var limit *int
		if args[2] != "none" {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 0 {
				fmt.Fprintf(os.Stderr, "Error: invalid limit %q\n", args[2])
				os.Exit(1)
			}
			limit = &n
		}

		app := setup(ctx)
		defer app.Close()

		p, err := app.Store.GetProfile(ctx, args[1])
		if err != nil {
			fail(err)
		}
		p.DailyLimitMinutes = limit
		if err := app.Store.UpdateProfile(ctx, p); err != nil {
			fail(err)
		}
		fmt.Printf("%s: %s\n", p.Name, formatLimit(limit))

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown profile command %q\n", args[0])
		os.Exit(1)
	}
}

func cmdResolve(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	showMirrors := fs.Bool("mirrors", false, "Print mirror pool health afterwards")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kidtube resolve [-mirrors] <url>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	ref, ok := youtube.ParseURL(fs.Arg(0))
	if !ok {
		fail(fmt.Errorf("%w: %q", kidtube.ErrUnrecognizedURL, fs.Arg(0)))
	}

	app := setup(ctx)
	defer app.Close()

	fmt.Fprintf(os.Stderr, "Resolving %s...\n", ref)
	m, err := app.Resolver.Resolve(ctx, ref)
	if *showMirrors {
		printMirrors(app)
	}
	if err != nil {
		var resErr *kidtube.ResolutionError
		if errors.As(err, &resErr) {
			for _, a := range resErr.Attempts {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", a.Provider, a.Err)
			}
		}
		fail(err)
	}
	printJSON(m)
}

func cmdAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	profileID := fs.String("profile", "", "Profile ID")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kidtube add -profile <id> <url>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if *profileID == "" || fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	app := setup(ctx)
	defer app.Close()

	item, err := app.Whitelist.AddFromURL(ctx, *profileID, fs.Arg(0))
	if err != nil {
		fail(err)
	}
	fmt.Printf("Approved %s %q (%s)\n", item.Kind, item.Title, item.ID)
}

func cmdList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	profileID := fs.String("profile", "", "Profile ID")
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Parse(args)
	if *profileID == "" {
		fmt.Fprintf(os.Stderr, "Error: missing -profile\n")
		os.Exit(1)
	}

	app := setup(ctx)
	defer app.Close()

	items, err := app.Whitelist.List(ctx, *profileID)
	if err != nil {
		fail(err)
	}
	if *asJSON {
		printJSON(items)
		return
	}
	if len(items) == 0 {
		fmt.Println("Nothing approved yet.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTITLE\tURL")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ID, it.Kind, truncate(it.Title, 50), it.URL())
	}
	w.Flush()
}

func cmdRemove(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: kidtube remove <item-id>\n")
		os.Exit(1)
	}

	app := setup(ctx)
	defer app.Close()

	if err := app.Whitelist.Remove(ctx, args[0]); err != nil {
		fail(err)
	}
	fmt.Println("Removed.")
}

func cmdVideos(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("videos", flag.ExitOnError)
	maxVideos := fs.Int("max", 0, "Maximum videos to list (0 = provider default)")
	fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: kidtube videos [-max N] <channel-id>\n")
		os.Exit(1)
	}

	app := setup(ctx)
	defer app.Close()

	videos, err := app.Whitelist.ChannelVideos(ctx, fs.Arg(0), &youtube.ListOptions{MaxResults: *maxVideos})
	if err != nil {
		fail(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VIDEO ID\tTITLE\tDURATION")
	for _, v := range videos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.YouTubeID, truncate(v.Title, 50), formatDuration(v.Duration))
	}
	w.Flush()
	fmt.Fprintf(os.Stderr, "\nTotal: %d videos\n", len(videos))
}

func cmdSearch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	maxResults := fs.Int("max", 10, "Maximum channels to return")
	fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: kidtube search [-max N] <query>\n")
		os.Exit(1)
	}

	app := setup(ctx)
	defer app.Close()

	if app.API == nil {
		fmt.Fprintf(os.Stderr, "Error: search needs KIDTUBE_API_KEY\n")
		os.Exit(1)
	}
	channels, err := app.API.SearchChannels(ctx, fs.Arg(0), *maxResults)
	if err != nil {
		fail(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL ID\tTITLE")
	for _, c := range channels {
		fmt.Fprintf(w, "%s\t%s\n", c.YouTubeID, truncate(c.Title, 60))
	}
	w.Flush()
}

func cmdWatch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	profileID := fs.String("profile", "", "Profile ID")
	videoID := fs.String("video", "", "Video ID")
	title := fs.String("title", "", "Video title")
	seconds := fs.Int("seconds", 0, "Seconds watched")
	fs.Parse(args)
	if *profileID == "" || *videoID == "" || *seconds <= 0 {
		fmt.Fprintf(os.Stderr, "Usage: kidtube watch -profile <id> -video <id> -seconds N [-title T]\n")
		os.Exit(1)
	}

	app := setup(ctx)
	defer app.Close()

	if err := app.Store.RecordWatch(ctx, *profileID, *videoID, *title, *seconds); err != nil {
		fail(err)
	}
	total, err := app.Store.WatchedSecondsOn(ctx, *profileID, time.Now())
	if err != nil {
		fail(err)
	}
	fmt.Printf("Watched today: %s\n", formatDuration(time.Duration(total)*time.Second))
}

func cmdStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	profileID := fs.String("profile", "", "Profile ID")
	follow := fs.Bool("follow", false, "Keep printing on every change")
	fs.Parse(args)
	if *profileID == "" {
		fmt.Fprintf(os.Stderr, "Error: missing -profile\n")
		os.Exit(1)
	}

	app := setup(ctx)
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for st := range app.Evaluator.Status(ctx, *profileID) {
		printStatus(st)
		if !*follow {
			return
		}
	}
}

func cmdSleep(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("sleep", flag.ExitOnError)
	profileID := fs.String("profile", "", "Profile ID")
	minutes := fs.Int("minutes", 0, "Countdown length in minutes")
	fs.Parse(args)
	if *profileID == "" || *minutes <= 0 {
		fmt.Fprintf(os.Stderr, "Usage: kidtube sleep -profile <id> -minutes N\n")
		os.Exit(1)
	}

	app := setup(ctx)
	defer app.Close()

	updates, unsubscribe := app.SleepTimer.Subscribe()
	defer unsubscribe()
	if err := app.SleepTimer.Start(*profileID, *minutes); err != nil {
		fail(err)
	}

	for {
		select {
		case <-ctx.Done():
			app.SleepTimer.Stop()
			fmt.Println("\nSleep timer cancelled.")
			return
		case st := <-updates:
			switch {
			case st.Status == screentime.Expired:
				fmt.Println("\nTime to stop watching. Good night!")
				return
			case st.Status == screentime.Running && st.RemainingSeconds%60 == 0:
				fmt.Printf("%d min left\n", st.RemainingSeconds/60)
			}
		}
	}
}

func printMirrors(app *kidtube.App) {
	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MIRROR\tHEALTHY\tFAILURES\tLAST FAILURE")
	for _, st := range app.Tracker.Stats() {
		last := "-"
		if !st.LastFailure.IsZero() {
			last = st.LastFailure.Format(time.Kitchen)
		}
		fmt.Fprintf(w, "%s\t%t\t%d\t%s\n", st.Host, st.Healthy, st.ConsecutiveFailures, last)
	}
	w.Flush()
}

func printStatus(st screentime.TimeLimitStatus) {
	if st.DailyLimitMinutes == nil {
		fmt.Printf("Watched %s today, no daily limit.\n", formatDuration(time.Duration(st.WatchedTodaySeconds)*time.Second))
		return
	}
	remaining := time.Duration(*st.RemainingSeconds) * time.Second
	fmt.Printf("Watched %s of %d min, %s left",
		formatDuration(time.Duration(st.WatchedTodaySeconds)*time.Second), *st.DailyLimitMinutes, formatDuration(remaining))
	if st.IsLimitReached {
		fmt.Print(" (limit reached)")
	}
	fmt.Println()
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func formatLimit(limit *int) string {
	if limit == nil {
		return "none"
	}
	return fmt.Sprintf("%d min", *limit)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	secs := int(d.Seconds())
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	secs %= 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
