package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-moderator/internal/config"
	"tg-moderator/internal/logger"
	"tg-moderator/internal/models"
)

// allowedUpdates lists the update types the moderator consumes. chat_member updates are
// only delivered when requested explicitly.
var allowedUpdates = []string{"message", "edited_message", "chat_member", "my_chat_member", "callback_query"}

// BotService represents the Telegram bot service
type BotService struct {
	Bot     *telego.Bot
	Handler *th.BotHandler
	Self    *telego.User
}

// Start starts the bot handler
func (b *BotService) Start() {
	b.Handler.Start()
}

// Stop stops the bot handler
func (b *BotService) Stop() {
	b.Handler.Stop()
}

// Initialize creates the bot and its update source. In webhook mode the returned server
// serves the webhook; in polling mode it only serves the debug and metrics endpoints.
func Initialize(ctx context.Context, cfg *config.Config) (*BotService, *WebhookServer, error) {
	if cfg.Bot.Token == "" {
		return nil, nil, fmt.Errorf("bot token is required")
	}

	bot, err := telego.NewBot(cfg.Bot.Token, telego.WithDefaultLogger(cfg.Logger.Level == "DEBUG", true))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	botUser, err := bot.GetMe(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	logger.Infof("Authorized on account %s", botUser.Username)

	setLocalizedCommands(ctx, bot, cfg.Moderation.Language)

	err = bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to delete existing webhook: %w", err)
	}

	var (
		updates <-chan telego.Update
		server  *WebhookServer
	)
	switch cfg.Bot.Mode {
	case "polling":
		updates, err = bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
			Timeout:        30,
			AllowedUpdates: allowedUpdates,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start long polling: %w", err)
		}
		server = NewStatusServer(bot, cfg.Bot.Webhook)
	default:
		secretToken := "secure_webhook_token_" + cfg.Bot.Token[len(cfg.Bot.Token)-6:]
		updates, server, err = SetupWebhook(ctx, bot, cfg.Bot.Webhook, secretToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to setup webhook: %w", err)
		}
	}

	bh, err := th.NewBotHandler(bot, updates)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bot handler: %w", err)
	}

	return &BotService{
		Bot:     bot,
		Handler: bh,
		Self:    botUser,
	}, server, nil
}

// setLocalizedCommands sets bot commands in different languages
func setLocalizedCommands(ctx context.Context, bot *telego.Bot, defaultLang string) {
	commandKeys := []struct {
		Command string
		DescKey string
	}{
		{Command: "help", DescKey: "cmd_desc_help"},
		{Command: "ban", DescKey: "cmd_desc_ban"},
		{Command: "kick", DescKey: "cmd_desc_kick"},
		{Command: "timeout", DescKey: "cmd_desc_timeout"},
		{Command: "unban", DescKey: "cmd_desc_unban"},
	}

	// Map of language codes to Telegram language codes
	langCodes := map[string]string{
		models.LangEnglish:           "en",
		models.LangSimplifiedChinese: "zh",
	}

	commandsFor := func(lang string) []telego.BotCommand {
		var commands []telego.BotCommand
		for _, cmd := range commandKeys {
			commands = append(commands, telego.BotCommand{
				Command:     cmd.Command,
				Description: models.GetTranslation(lang, cmd.DescKey),
			})
		}
		return commands
	}

	for lang, telegramLang := range langCodes {
		err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
			Commands:     commandsFor(lang),
			LanguageCode: telegramLang,
		})
		if err != nil {
			logger.Warningf("Failed to set bot commands for %s: %v", lang, err)
		}
	}

	err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commandsFor(defaultLang),
	})
	if err != nil {
		logger.Warningf("Failed to set default bot commands: %v", err)
	}
}
