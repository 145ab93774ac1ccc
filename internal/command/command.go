package command

import (
	"time"

	commandHandler "fingate/internal/command/handler"

	"github.com/google/wire"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var ProviderSet = wire.NewSet(NewCommand, commandHandler.NewWebhookHandler, commandHandler.NewCredentialHandler)

type Command struct {
	webhookCommandHandler    *commandHandler.WebhookHandler
	credentialCommandHandler *commandHandler.CredentialHandler
}

// NewCommand .
func NewCommand(
	webhookCommandHandler *commandHandler.WebhookHandler,
	credentialCommandHandler *commandHandler.CredentialHandler,
) *Command {
	return &Command{
		webhookCommandHandler:    webhookCommandHandler,
		credentialCommandHandler: credentialCommandHandler,
	}
}

func Register(rootCmd *cobra.Command, newCmd func() (*Command, func(), error)) {
	// 每個子命令執行時才初始化依賴
	run := func(fn func(cmd *cobra.Command, command *Command) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			command, cleanup, err := newCmd()
			if err != nil {
				return err
			}
			defer cleanup()
			return fn(cmd, command)
		}
	}

	var deliverTimeout time.Duration
	deliverCmd := &cobra.Command{
		Use:   "deliver-webhooks",
		Short: "run one webhook delivery batch",
		RunE: run(func(cmd *cobra.Command, command *Command) error {
			return command.webhookCommandHandler.DeliverOnce(cmd, deliverTimeout)
		}),
	}
	deliverCmd.Flags().DurationVar(&deliverTimeout, "timeout", 5*time.Minute, "upper bound for the whole batch")

	var (
		keyOwner string
		keyName  string
		keyLimit int
	)
	issueKeyCmd := &cobra.Command{
		Use:   "issue-key",
		Short: "create an API key and print the plaintext once",
		RunE: run(func(cmd *cobra.Command, command *Command) error {
			return command.credentialCommandHandler.IssueKey(cmd, keyOwner, keyName, keyLimit)
		}),
	}
	requireOwner(issueKeyCmd, issueKeyCmd.Flags(), &keyOwner)
	issueKeyCmd.Flags().StringVar(&keyName, "name", "cli", "key name")
	issueKeyCmd.Flags().IntVar(&keyLimit, "limit", 0, "requests per minute (0 = default)")

	var (
		tokenOwner string
		tokenTTL   time.Duration
	)
	issueTokenCmd := &cobra.Command{
		Use:   "issue-token",
		Short: "sign an owner token for the admin API",
		RunE: run(func(cmd *cobra.Command, command *Command) error {
			return command.credentialCommandHandler.IssueToken(cmd, tokenOwner, tokenTTL)
		}),
	}
	requireOwner(issueTokenCmd, issueTokenCmd.Flags(), &tokenOwner)
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	var (
		signSecret string
		signFile   string
	)
	signCmd := &cobra.Command{
		Use:   "sign-payload",
		Short: "print the webhook signature header for a payload",
		RunE: run(func(cmd *cobra.Command, command *Command) error {
			return command.credentialCommandHandler.SignPayload(cmd, signSecret, signFile)
		}),
	}
	signCmd.Flags().StringVar(&signSecret, "secret", "", "webhook secret")
	_ = signCmd.MarkFlagRequired("secret")
	signCmd.Flags().StringVar(&signFile, "file", "-", "payload file, - for stdin")

	rootCmd.AddCommand(deliverCmd, issueKeyCmd, issueTokenCmd, signCmd)
}

// requireOwner issue-key 與 issue-token 都必須指定 owner
func requireOwner(cmd *cobra.Command, fs *pflag.FlagSet, target *string) {
	fs.StringVar(target, "owner", "", "owner id")
	_ = cmd.MarkFlagRequired("owner")
}
