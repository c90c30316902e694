package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-assist/ai"
	"chat-assist/bot"
	"chat-assist/dispatch"
	"chat-assist/moderation"
	"chat-assist/repositories"
	"chat-assist/runtime"
	"chat-assist/runtime/workers"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	openai "github.com/sashabaranov/go-openai"
	tele "gopkg.in/telebot.v3"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assistant terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components and blocks until shutdown. Keeping
// the logic out of main ensures every defer (database close, index
// flush) executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return exitConfig, fmt.Errorf("config validation failed: %w", err)
	}
	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Repositories
	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger)
	ticketRepository := repositories.NewTicketRepository(db)
	adminRepository := repositories.NewAdminRepository(db)
	referralRepository := repositories.NewReferralRepository(db)
	contentRepository := repositories.NewContentRepository(db)
	tokenRepository := repositories.NewTokenRepository(db)
	searchIndex := repositories.NewSearchIndex(blugeWriter)

	if err := contentRepository.SeedDefaults(); err != nil {
		return exitRuntime, fmt.Errorf("seeding default content failed: %w", err)
	}

	// 4. Moderation
	censored, err := runtime.LoadCensoredWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading censored words failed: %w", err)
	}
	logger.Info("Moderation dictionaries loaded",
		"words", len(censored.Words), "languages", censored.Languages)
	moderator, err := moderation.NewModerator(censored.Words, charReplacement, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("building moderator failed: %w", err)
	}

	// 5. Assistant (OpenAI)
	assistant := ai.NewAssistant(
		openai.NewClient(config.OpenAIAPIKey),
		messageRepository, tokenRepository,
		logger, config.OpenAIModel, config.HistoryLimit,
	)

	// 6. Telegram bots
	userTele, err := tele.NewBot(tele.Settings{
		Token:  config.UserBotToken,
		Poller: &tele.LongPoller{Timeout: config.PollTimeout},
	})
	if err != nil {
		return exitRuntime, fmt.Errorf("user bot init failed: %w", err)
	}
	adminTele, err := tele.NewBot(tele.Settings{
		Token:  config.AdminBotToken,
		Poller: &tele.LongPoller{Timeout: config.PollTimeout},
	})
	if err != nil {
		return exitRuntime, fmt.Errorf("admin bot init failed: %w", err)
	}

	userTransport := bot.NewTelegram(userTele, logger)
	recorder := repositories.NewConversationRecorder(messageRepository, userRepository, searchIndex, logger)

	dispatcher := dispatch.NewDispatcher(logger, userTransport, assistant, recorder, dispatch.Options{
		EditInterval:  config.EditInterval,
		TypingPeriod:  config.TypingPeriod,
		StreamTimeout: config.StreamTimeout,
	})

	notifier := bot.NewTicketNotifier(adminTele, ticketRepository, logger, config.AdminChannelID)
	userBot := bot.NewUserBot(userTele, logger, dispatcher, &moderator,
		userRepository, referralRepository, ticketRepository, contentRepository, notifier)
	adminBot := bot.NewAdminBot(adminTele, logger, config.SuperAdminID,
		adminRepository, ticketRepository, userRepository, messageRepository,
		tokenRepository, searchIndex, userTransport, notifier)

	heartbeat := workers.NewHeartbeatWorker(logger, dispatcher, config.MetricInterval)

	// 7. Supervision & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting bot pair",
		"user_bot", userTele.Me.Username, "admin_bot", adminTele.Me.Username)
	workers.NewSupervisor(logger).
		Add(userBot, adminBot, heartbeat).
		Run(ctx)

	logger.Info("Shutdown complete")
	return exitOK, nil
}
