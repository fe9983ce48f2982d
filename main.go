package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"memories-bot/disk"
	"memories-bot/memories"
	"memories-bot/publish"
	"memories-bot/telegram"
)

var dateFlag = flag.StringP("date", "d", "", "Override today's date, DD.MM")
var dryRun = flag.Bool("dry-run", false, "Select photos but send nothing")

func main() {
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if os.Getenv("APP_ENV") == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	err := godotenv.Load(".env", ".env.local")
	if err != nil {
		slog.Info("no dotenv", "err", err)
	}

	lg := slog.Default().With("run_id", uuid.Must(uuid.NewV4()).String())

	diskToken := mustGetEnv("DISK_TOKEN")
	tgToken := mustGetEnv("TELEGRAM_BOT_TOKEN")
	chatID := mustGetEnv("TELEGRAM_CHAT_ID")
	secondaryToken := os.Getenv("DISK_TOKEN_SECONDARY")
	folders := splitList(os.Getenv("DISK_ALBUM_FOLDERS"))

	tg, err := telegram.New(tgToken, chatID, lg)
	if err != nil {
		log.Fatal(err)
	}
	primary, err := disk.New(diskToken, lg)
	if err != nil {
		log.Fatal(err)
	}
	var secondary *disk.Client
	if secondaryToken != "" {
		secondary, err = disk.New(secondaryToken, lg)
		if err != nil {
			log.Fatal(err)
		}
	}

	day, month, err := targetDate(*dateFlag)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := run(ctx, lg, tg, primary, secondary, folders, day, month); err != nil {
		lg.Error("run failed", "err", err)
		// Best effort: a failure note in the chat beats a silent gap.
		if notifyErr := tg.SendMessage(ctx, fmt.Sprintf("⚠️ Ошибка в боте воспоминаний:\n\n%v", err)); notifyErr != nil {
			lg.Error("failure notification not delivered", "err", notifyErr)
		}
		os.Exit(1)
	}
	lg.Info("run complete")
}

func run(
	ctx context.Context,
	lg *slog.Logger,
	tg *telegram.Client,
	primary, secondary *disk.Client,
	folders []string,
	day, month int,
) error {
	start := time.Now()
	lg.Info("searching archive", "day", day, "month", month)

	finder := &memories.Finder{Disk: primary, Folders: folders, Source: "primary", Log: lg}
	matches, err := finder.Find(ctx, day, month)
	if err != nil {
		return err
	}

	if secondary != nil {
		second := &memories.Finder{Disk: secondary, Source: "secondary", Log: lg}
		secondMatches, err := second.Find(ctx, day, month)
		if err != nil {
			return err
		}
		matches = memories.Merge(matches, secondMatches)
	}

	plan := memories.Select(matches, memories.DefaultCap)
	lg.Info("selection ready", "matches", len(matches), "selected", len(plan), "elapsed", time.Since(start))

	if *dryRun {
		for _, m := range plan {
			lg.Info("would publish", "year", m.Year, "name", m.Name, "source", m.Source)
		}
		return nil
	}

	captions := publish.NewCaptioner(time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
	captions.Name = os.Getenv("CAPTION_NAME")
	return publish.New(tg, captions, lg).Publish(ctx, day, month, plan)
}

// targetDate resolves the day and month to search: today in UTC, unless
// overridden with --date DD.MM.
func targetDate(override string) (day, month int, err error) {
	if override == "" {
		today := time.Now().UTC()
		return today.Day(), int(today.Month()), nil
	}

	parts := strings.Split(override, ".")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("--date must be DD.MM, got %q", override)
	}
	day, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("--date must be DD.MM, got %q", override)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("--date must be DD.MM, got %q", override)
	}
	return day, month, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s not set", key)
	}
	return value
}
