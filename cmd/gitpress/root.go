package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/router-for-me/gitpress/internal/buildinfo"
	"github.com/router-for-me/gitpress/internal/cmd"
	"github.com/router-for-me/gitpress/internal/config"
	"github.com/router-for-me/gitpress/internal/logging"
	"github.com/router-for-me/gitpress/sdk/github"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type rootFlags struct {
	configPath string
	debug      bool
}

// newRootCmd builds the command tree. Every subcommand loads the configuration
// lazily so `gitpress version` works without one.
func newRootCmd(out io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "gitpress",
		Short:         "Publish to GitHub from your desktop",
		Long:          "gitpress signs in to GitHub with your browser and manages the files of the repository your site is published to.",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetVersionTemplate(`{{printf "gitpress version %s\n" .Version}}`)
	root.PersistentFlags().StringVar(&flags.configPath, "config", DefaultConfigPath, "Configuration file path (optional)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newWhoAmICmd(flags),
		newReposCmd(flags),
		newCommitsCmd(flags),
		newTreeCmd(flags),
		newFileCmd(flags),
		newVersionCmd(),
	)
	return root
}

// session loads the configuration, applies logging settings and opens the store.
func (f *rootFlags) session(c *cobra.Command) (*cmd.Session, error) {
	cfg, err := config.LoadConfigOptional(f.configPath, f.configPath == DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	if f.debug {
		cfg.Debug = true
	}
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Warnf("failed to configure log output: %v", err)
	}
	return cmd.NewSession(cfg, c.OutOrStdout())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(c.OutOrStdout(), buildinfo.String())
		},
	}
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	opts := &cmd.LoginOptions{}
	var noPrompt bool
	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in to GitHub in your browser",
		Long: `Sign in to GitHub with the OAuth authorization code flow.

A browser tab opens on GitHub's consent page; after you approve, GitHub redirects back
to a short-lived listener on 127.0.0.1 and the access token is stored in the system
keychain (or the credentials file when no keychain is available).

If the browser cannot reach this machine, paste the URL of the page GitHub redirected
you to when prompted.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			if err = s.Config.Validate(); err != nil {
				return err
			}
			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			if interactive && !noPrompt {
				opts.Prompt = cmd.DefaultPrompt()
			}
			opts.Spinner = term.IsTerminal(int(os.Stdout.Fd()))
			return cmd.DoLogin(c.Context(), s, opts)
		},
	}
	c.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	c.Flags().IntVar(&opts.CallbackPort, "callback-port", 0, "Preferred local callback port (default from config, 8765)")
	c.Flags().BoolVar(&noPrompt, "no-prompt", false, "Never ask for a pasted callback URL")
	return c
}

func newLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored GitHub credential",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			return cmd.DoLogout(c.Context(), s)
		},
	}
}

func newWhoAmICmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in GitHub account",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			return cmd.DoWhoAmI(c.Context(), s)
		},
	}
}

func newReposCmd(flags *rootFlags) *cobra.Command {
	var opts github.ListOptions
	repos := &cobra.Command{
		Use:   "repos",
		Short: "List your repositories",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			return cmd.DoListRepos(c.Context(), s, opts)
		},
	}
	repos.Flags().IntVar(&opts.Page, "page", 0, "Page number")
	repos.Flags().IntVar(&opts.PerPage, "per-page", 30, "Results per page (max 100)")
	repos.Flags().StringVar(&opts.Visibility, "visibility", "", "all, public or private")
	repos.Flags().StringVar(&opts.Affiliation, "affiliation", "", "owner, collaborator, organization_member")
	repos.Flags().StringVar(&opts.Sort, "sort", "pushed", "created, updated, pushed or full_name")

	var create github.CreateRepositoryRequest
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			create.Name = args[0]
			return cmd.DoCreateRepo(c.Context(), s, create)
		},
	}
	createCmd.Flags().StringVar(&create.Description, "description", "", "Repository description")
	createCmd.Flags().BoolVar(&create.Private, "private", false, "Create a private repository")
	createCmd.Flags().BoolVar(&create.AutoInit, "init", false, "Create an initial commit with a README")
	repos.AddCommand(createCmd)
	return repos
}

func newCommitsCmd(flags *rootFlags) *cobra.Command {
	var opts github.CommitListOptions
	c := &cobra.Command{
		Use:   "commits <owner/repo>",
		Short: "List commit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ref, err := cmd.ParseRepoRef(args[0])
			if err != nil {
				return err
			}
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			return cmd.DoListCommits(c.Context(), s, ref, opts)
		},
	}
	c.Flags().StringVar(&opts.SHA, "branch", "", "Branch or commit SHA to start from")
	c.Flags().StringVar(&opts.Path, "path", "", "Only commits touching this path")
	c.Flags().IntVar(&opts.Page, "page", 0, "Page number")
	c.Flags().IntVar(&opts.PerPage, "per-page", 20, "Results per page (max 100)")
	return c
}

func newTreeCmd(flags *rootFlags) *cobra.Command {
	var treeRef string
	var recursive bool
	c := &cobra.Command{
		Use:   "tree <owner/repo>",
		Short: "List the files of a branch, tag or tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ref, err := cmd.ParseRepoRef(args[0])
			if err != nil {
				return err
			}
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			return cmd.DoTree(c.Context(), s, ref, treeRef, recursive)
		},
	}
	c.Flags().StringVar(&treeRef, "ref", "", "Branch, tag or tree SHA (default branch when empty)")
	c.Flags().BoolVarP(&recursive, "recursive", "r", false, "Include every subtree")
	return c
}

func newFileCmd(flags *rootFlags) *cobra.Command {
	file := &cobra.Command{
		Use:   "file",
		Short: "Read, write and delete repository files",
	}

	var getRef, outPath string
	getCmd := &cobra.Command{
		Use:   "get <owner/repo> <path>",
		Short: "Print a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ref, err := cmd.ParseRepoRef(args[0])
			if err != nil {
				return err
			}
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			return cmd.DoGetFile(c.Context(), s, ref, args[1], getRef, outPath)
		},
	}
	getCmd.Flags().StringVar(&getRef, "ref", "", "Branch, tag or commit")
	getCmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this local file instead of stdout")

	var put cmd.FilePut
	var source string
	putCmd := &cobra.Command{
		Use:   "put <owner/repo> <path>",
		Short: "Create or update a file from a local file or stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ref, err := cmd.ParseRepoRef(args[0])
			if err != nil {
				return err
			}
			put.Path = strings.TrimPrefix(args[1], "/")
			if put.Content, err = readSource(c, source); err != nil {
				return err
			}
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			return cmd.DoPutFile(c.Context(), s, ref, put)
		},
	}
	putCmd.Flags().StringVarP(&source, "from", "f", "-", "Local file to upload, - for stdin")
	putCmd.Flags().StringVarP(&put.Message, "message", "m", "", "Commit message")
	putCmd.Flags().StringVar(&put.SHA, "sha", "", "Current blob SHA of the file being replaced")
	putCmd.Flags().StringVar(&put.Branch, "branch", "", "Target branch (default branch when empty)")
	putCmd.Flags().BoolVar(&put.Update, "update", false, "Only update an existing file; requires --sha")

	var delSHA, delMessage, delBranch string
	deleteCmd := &cobra.Command{
		Use:   "delete <owner/repo> <path>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ref, err := cmd.ParseRepoRef(args[0])
			if err != nil {
				return err
			}
			s, err := flags.session(c)
			if err != nil {
				return err
			}
			return cmd.DoDeleteFile(c.Context(), s, ref, args[1], delSHA, delMessage, delBranch)
		},
	}
	deleteCmd.Flags().StringVar(&delSHA, "sha", "", "Current blob SHA of the file (required)")
	deleteCmd.Flags().StringVarP(&delMessage, "message", "m", "", "Commit message")
	deleteCmd.Flags().StringVar(&delBranch, "branch", "", "Target branch (default branch when empty)")

	file.AddCommand(getCmd, putCmd, deleteCmd)
	return file
}

func readSource(c *cobra.Command, source string) ([]byte, error) {
	if source == "" || source == "-" {
		return io.ReadAll(c.InOrStdin())
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return data, nil
}
