// Command pubky-agent runs an automated Pubky identity that watches its
// notification feed and answers mentions with generated replies.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/pubky-agent/internal/ai"
	"github.com/nhle/pubky-agent/internal/checkpoint"
	"github.com/nhle/pubky-agent/internal/content"
	"github.com/nhle/pubky-agent/internal/credential"
	"github.com/nhle/pubky-agent/internal/dispatch"
	"github.com/nhle/pubky-agent/internal/homeserver"
	"github.com/nhle/pubky-agent/internal/identity"
	"github.com/nhle/pubky-agent/internal/logging"
	"github.com/nhle/pubky-agent/internal/model"
	"github.com/nhle/pubky-agent/internal/nexus"
	"github.com/nhle/pubky-agent/internal/publisher"
	"github.com/nhle/pubky-agent/internal/store"
	"github.com/nhle/pubky-agent/internal/sync"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pubky-agent",
		Short: "Automated mention-reply agent for the Pubky network",
		Long: "pubky-agent polls the nexus feed for notifications addressed " +
			"to the bot's identity, answers mentions through a " +
			"text-generation service, and publishes the replies to the " +
			"bot's homeserver storage.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context())
		},
	}
	root.AddCommand(newRunCmd(), newSetupCmd(), newAuthCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the polling agent until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context())
		},
	}
}

// runAgent wires the components together and polls until a signal arrives.
// Startup failures (configuration, identity, signin) abort; once the loop
// is running, failures are contained inside it.
func runAgent(ctx context.Context) error {
	cfg, err := model.LoadConfig(credential.Get)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	keys, err := identity.FromMnemonic(cfg.SecretWords)
	if err != nil {
		return fmt.Errorf("deriving bot identity: %w", err)
	}
	if err := keys.Verify(cfg.PublicKey); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	objects := homeserver.NewClient(cfg.HomeserverURL, keys)
	if err := objects.Signin(ctx); err != nil {
		return fmt.Errorf("homeserver signin: %w", err)
	}
	log.Infow("signed in to homeserver",
		"identity", keys.PublicID(), "homeserver", cfg.HomeserverURL)

	journal, err := store.NewSQLiteStore(cfg.JournalDBPath)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer journal.Close()

	knowledge, err := ai.LoadKnowledgeBase(cfg.KnowledgeBasePath)
	if err != nil {
		return err
	}
	if knowledge != "" {
		log.Infow("loaded knowledge base", "path", cfg.KnowledgeBasePath)
	}

	responder := ai.New(cfg.OpenAIKey, "", cfg.OpenAIModel, knowledge)
	resolver := content.NewResolver(objects)
	replies := publisher.New(objects, keys.PublicID())
	dispatcher := dispatch.New(resolver, responder, replies, journal, keys.PublicID(), log)
	feed := nexus.NewClient(cfg.NexusURL)
	checkpoints := checkpoint.NewStore(objects, keys.PublicID(), log)
	sched := sync.NewScheduler(cfg.PollInterval, 8*cfg.PollInterval)
	poller := sync.NewPoller(keys.PublicID(), checkpoints, feed, dispatcher, sched, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poller.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Infow("shutting down")
	return nil
}

func newSetupCmd() *cobra.Command {
	var name, bio, image string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Publish the bot's public profile (one-time bootstrap)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(credential.Get)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			keys, err := identity.FromMnemonic(cfg.SecretWords)
			if err != nil {
				return fmt.Errorf("deriving bot identity: %w", err)
			}
			if err := keys.Verify(cfg.PublicKey); err != nil {
				return err
			}

			ctx := cmd.Context()
			objects := homeserver.NewClient(cfg.HomeserverURL, keys)
			if err := objects.Signin(ctx); err != nil {
				return fmt.Errorf("homeserver signin: %w", err)
			}

			profile := model.Profile{
				Name:  name,
				Bio:   bio,
				Image: image,
			}
			if err := publisher.New(objects, keys.PublicID()).PublishProfile(ctx, profile); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "profile published for %s\n", keys.PublicID())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "AI Rand", "profile display name")
	cmd.Flags().StringVar(&bio, "bio", "Mention me and I will respond to you!", "profile bio")
	cmd.Flags().StringVar(&image, "image", "", "profile image URI")

	return cmd
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage credentials stored in the OS keyring",
	}

	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential, reading its value from stdin",
		Long: "Reads the credential value from stdin and stores it in the " +
			"OS keyring. Known names: " + credential.KeyOpenAIAPI + ", " +
			credential.KeySecretWords + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading credential value: %w", err)
			}
			value := strings.TrimSpace(string(data))
			if value == "" {
				return fmt.Errorf("empty credential value")
			}
			return credential.Set(args[0], value)
		},
	}

	unset := &cobra.Command{
		Use:   "unset <name>",
		Short: "Remove a credential from the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return credential.Delete(args[0])
		},
	}

	cmd.AddCommand(set, unset)
	return cmd
}
